package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/herald/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Source.Path = "/notes"
	cfg.Site.RepoPath = "/site"
	return cfg
}

func TestDefaultConfig_RequiresPaths(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("default config without paths should fail")
	}
	if !strings.Contains(err.Error(), "SOURCE_DIR") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Source.Path = "/notes"
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "REPO_ROOT") {
		t.Errorf("missing repo path: got %v", err)
	}

	if err := validConfig().Validate(); err != nil {
		t.Errorf("config with paths should pass: %v", err)
	}
}

func TestDefaultConfig_Values(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Publish.TriggerTag != "публикация" {
		t.Errorf("trigger = %q", cfg.Publish.TriggerTag)
	}
	if cfg.Sync.Interval != 15*time.Minute {
		t.Errorf("interval = %v", cfg.Sync.Interval)
	}
	if cfg.Git.CommitMessage != "Auto-publish from Obsidian" {
		t.Errorf("commit message = %q", cfg.Git.CommitMessage)
	}
	l := cfg.Site.Layout()
	if l.DocumentPath("a.md") != "content/blog/a.md" {
		t.Errorf("document path = %q", l.DocumentPath("a.md"))
	}
	if l.ImagePrefix != "/images/blog/" || l.FilesPrefix != "/files/blog/" || l.LinkPrefix != "/blog/" {
		t.Errorf("layout = %+v", l)
	}
}

func TestSiteConfig_PrefixMustBeSlashed(t *testing.T) {
	cfg := validConfig()
	cfg.Site.ImagePrefix = "images/blog"
	if err := cfg.Validate(); err == nil {
		t.Fatal("prefix without slashes should fail")
	}
}

func TestHTTPConfig_PortOnlyWhenEnabled(t *testing.T) {
	cfg := HTTPConfig{Enabled: false, Port: 0}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled http should not need a port: %v", err)
	}
	cfg.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled http without port should fail")
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("out-of-range port should fail")
	}
}

func TestGitConfig_RemoteRequiredWhenEnabled(t *testing.T) {
	cfg := GitConfig{Enabled: true, CommitMessage: "m"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled git without remote should fail")
	}
	cfg.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled git: %v", err)
	}
}

func TestSyncConfig_Interval(t *testing.T) {
	cfg := SyncConfig{Interval: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero interval should fail")
	}
	cfg.Interval = time.Minute
	cfg.Debounce = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative debounce should fail")
	}
}

func TestPublishConfig_Policy(t *testing.T) {
	cfg := PublishConfig{TriggerTag: "#publish", IgnoredPrefixes: []string{"type/"}}
	pol := cfg.Policy()
	if pol.Trigger != "publish" {
		t.Errorf("trigger = %q", pol.Trigger)
	}
	if !pol.IsEligible([]string{"publish"}) {
		t.Error("publish should be eligible")
	}
	if !pol.IsTechnical("type/post") {
		t.Error("type/post should be technical")
	}
}

func TestConfig_LoadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	content := `app:
  log_level: debug
  http:
    enabled: false
source:
  path: ${HERALD_TEST_SOURCE}
site:
  repo_path: /srv/site
sync:
  interval: 5m
  debounce: 500ms
git:
  enabled: false
`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HERALD_TEST_SOURCE", "/srv/notes")

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.Source.Path != "/srv/notes" || cfg.Site.RepoPath != "/srv/site" {
		t.Errorf("paths = %q, %q", cfg.Source.Path, cfg.Site.RepoPath)
	}
	if cfg.Sync.Interval != 5*time.Minute || cfg.Sync.Debounce != 500*time.Millisecond {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if cfg.Site.ContentDir != "content/blog" {
		t.Errorf("default content dir lost: %q", cfg.Site.ContentDir)
	}
	if cfg.Git.Enabled {
		t.Error("git should be disabled")
	}
}

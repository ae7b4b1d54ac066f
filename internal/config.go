package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/herald/internal/gitsync"
	"github.com/starford/herald/internal/policy"
	"github.com/starford/herald/internal/publisher"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Source  SourceConfig      `yaml:"source"`
	Site    SiteConfig        `yaml:"site"`
	Publish PublishConfig     `yaml:"publish"`
	Sync    SyncConfig        `yaml:"sync"`
	Git     GitConfig         `yaml:"git"`
	Journal JournalConfig     `yaml:"journal"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []interface{ Validate() error }{
		&c.App, &c.Source, &c.Site, &c.Publish, &c.Sync, &c.Git, &c.Journal, &c.Auth,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.When(c.Enabled, validation.Required, validation.Min(1), validation.Max(65535))),
	)
}

// SourceConfig holds the path to the notes tree.
type SourceConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required.Error("source directory is required (SOURCE_DIR)")),
	)
}

// SiteConfig describes the site repository and where published content goes
// inside it.
type SiteConfig struct {
	RepoPath    string `yaml:"repo_path"`
	RepoURL     string `yaml:"repo_url"`
	ContentDir  string `yaml:"content_dir"`
	ImagesDir   string `yaml:"images_dir"`
	FilesDir    string `yaml:"files_dir"`
	ImagePrefix string `yaml:"image_prefix"`
	FilesPrefix string `yaml:"files_prefix"`
	LinkPrefix  string `yaml:"link_prefix"`
	Author      string `yaml:"author"`
	IndexFile   string `yaml:"index_file"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	urlPrefix := validation.By(func(v interface{}) error {
		s, _ := v.(string)
		if !strings.HasPrefix(s, "/") || !strings.HasSuffix(s, "/") {
			return validation.NewError("validation_url_prefix", "must start and end with '/'")
		}
		return nil
	})
	return validation.ValidateStruct(c,
		validation.Field(&c.RepoPath, validation.Required.Error("site repository is required (REPO_ROOT)")),
		validation.Field(&c.ContentDir, validation.Required),
		validation.Field(&c.ImagesDir, validation.Required),
		validation.Field(&c.FilesDir, validation.Required),
		validation.Field(&c.ImagePrefix, validation.Required, urlPrefix),
		validation.Field(&c.FilesPrefix, validation.Required, urlPrefix),
		validation.Field(&c.LinkPrefix, validation.Required, urlPrefix),
		validation.Field(&c.Author, validation.Required),
		validation.Field(&c.IndexFile, validation.Required),
	)
}

// Layout converts the section into the publisher's output layout.
func (c *SiteConfig) Layout() publisher.Layout {
	return publisher.Layout{
		ContentDir:  c.ContentDir,
		ImagesDir:   c.ImagesDir,
		FilesDir:    c.FilesDir,
		ImagePrefix: c.ImagePrefix,
		FilesPrefix: c.FilesPrefix,
		LinkPrefix:  c.LinkPrefix,
		IndexFile:   c.IndexFile,
	}
}

// PublishConfig holds the tag vocabulary.
type PublishConfig struct {
	TriggerTag      string   `yaml:"trigger_tag"`
	IgnoredPrefixes []string `yaml:"ignored_prefixes"`
}

// Validate validates the publish configuration.
func (c *PublishConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TriggerTag, validation.Required),
	)
}

// Policy converts the section into a publish policy.
func (c *PublishConfig) Policy() policy.Policy {
	return policy.Policy{
		Trigger:         policy.Clean(c.TriggerTag),
		IgnoredPrefixes: append([]string(nil), c.IgnoredPrefixes...),
	}
}

// SyncConfig controls when passes run.
type SyncConfig struct {
	Interval time.Duration `yaml:"interval"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// GitConfig configures the site repository's remote.
type GitConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Remote        string `yaml:"remote"`
	Branch        string `yaml:"branch"`
	CommitMessage string `yaml:"commit_message"`
	UserName      string `yaml:"user_name"`
	UserEmail     string `yaml:"user_email"`
}

// Validate validates the git configuration.
func (c *GitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Remote, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.CommitMessage, validation.When(c.Enabled, validation.Required)),
	)
}

// Options converts the section into gitsync options for the repository at
// path, cloned from url when missing.
func (c *GitConfig) Options(path, url string) gitsync.Options {
	return gitsync.Options{
		Path:          path,
		URL:           url,
		Remote:        c.Remote,
		Branch:        c.Branch,
		CommitMessage: c.CommitMessage,
		UserName:      c.UserName,
		UserEmail:     c.UserEmail,
	}
}

// JournalConfig holds SQLite journal configuration.
type JournalConfig struct {
	Path       string `yaml:"path"`
	KeepPasses int    `yaml:"keep_passes"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.KeepPasses, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values. The
// source and repository paths have no default.
func NewDefaultConfig() *Config {
	layout := publisher.DefaultLayout()
	pol := policy.Default()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Enabled: true,
				Port:    8080,
			},
		},
		Site: SiteConfig{
			ContentDir:  layout.ContentDir,
			ImagesDir:   layout.ImagesDir,
			FilesDir:    layout.FilesDir,
			ImagePrefix: layout.ImagePrefix,
			FilesPrefix: layout.FilesPrefix,
			LinkPrefix:  layout.LinkPrefix,
			Author:      "JerTheFox",
			IndexFile:   layout.IndexFile,
		},
		Publish: PublishConfig{
			TriggerTag:      pol.Trigger,
			IgnoredPrefixes: pol.IgnoredPrefixes,
		},
		Sync: SyncConfig{
			Interval: 15 * time.Minute,
			Watch:    true,
			Debounce: 2 * time.Second,
		},
		Git: GitConfig{
			Enabled:       true,
			Remote:        "origin",
			CommitMessage: "Auto-publish from Obsidian",
			UserName:      "ObsidianBot",
			UserEmail:     "bot@bytefox.ru",
		},
		Journal: JournalConfig{
			Path:       "./herald.db",
			KeepPasses: 500,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

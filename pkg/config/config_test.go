package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Extra string `yaml:"extra"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("HERALD_TEST_NAME", "blog")
	p := writeConfig(t, "name: ${HERALD_TEST_NAME}\nport: 9000\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "blog" || s.Port != 9000 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	p := writeConfig(t, "name: x\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRead_KeepsDefaults(t *testing.T) {
	p := writeConfig(t, "name: x\n")
	s := sample{Port: 1, Extra: "default"}
	if err := Read(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "x" || s.Port != 1 || s.Extra != "default" {
		t.Errorf("got %+v", s)
	}
}

func TestReadIfExists_Missing(t *testing.T) {
	s := sample{Port: 7}
	found, err := ReadIfExists(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("found = true for a missing file")
	}
	if s.Port != 7 {
		t.Errorf("target modified: %+v", s)
	}
}

func TestReadIfExists_BadYAML(t *testing.T) {
	p := writeConfig(t, "name: [unterminated\n")
	var s sample
	if _, err := ReadIfExists(p, &s); err == nil {
		t.Fatal("expected parse error")
	}
}

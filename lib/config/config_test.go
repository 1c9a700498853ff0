// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeEnv returns a Getenv over a fixed map so tests never see the
// real environment.
func fakeEnv(values map[string]string) func(string) string {
	return func(name string) string { return values[name] }
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Web.Address() != "127.0.0.1:8080" {
		t.Errorf("default address = %s", cfg.Web.Address())
	}
	if cfg.ResolvePolicy != "strict" {
		t.Errorf("default resolve policy = %q", cfg.ResolvePolicy)
	}
	if debounce, err := cfg.Viewer.DebounceDuration(); err != nil || debounce != 200*time.Millisecond {
		t.Errorf("default debounce = %v, %v", debounce, err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	directory := t.TempDir()
	writeConfig(t, filepath.Join(directory, ".git", "HEAD"), "ref: refs/heads/main\n")

	cfg, path, err := Load(LoadOptions{WorkingDir: directory, Getenv: fakeEnv(nil)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Port = %d", cfg.Web.Port)
	}
}

func TestLoadRepositoryFile(t *testing.T) {
	repo := t.TempDir()
	writeConfig(t, filepath.Join(repo, ".git", "HEAD"), "")
	configPath := filepath.Join(repo, ".config", "tkr", "config.yml")
	writeConfig(t, configPath, `
project: web
web:
  port: 9090
  default_assignee: sam
`)
	nested := filepath.Join(repo, "src", "pkg")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	cfg, path, err := Load(LoadOptions{WorkingDir: nested, Getenv: fakeEnv(nil)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %q, want %q", path, configPath)
	}
	if cfg.Project != "web" || cfg.Web.Port != 9090 || cfg.Web.DefaultAssignee != "sam" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Web.Host != "127.0.0.1" {
		t.Errorf("unset host lost its default: %q", cfg.Web.Host)
	}
}

func TestLoadStopsAtRepositoryRoot(t *testing.T) {
	outer := t.TempDir()
	writeConfig(t, filepath.Join(outer, ".config", "tkr", "config.yml"), "project: outer\n")
	repo := filepath.Join(outer, "repo")
	writeConfig(t, filepath.Join(repo, ".git", "HEAD"), "")

	cfg, path, err := Load(LoadOptions{WorkingDir: repo, Getenv: fakeEnv(nil)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != "" || cfg.Project != "" {
		t.Errorf("read config above the repository root: %q project=%q", path, cfg.Project)
	}
}

func TestLoadUserConfig(t *testing.T) {
	repo := t.TempDir()
	writeConfig(t, filepath.Join(repo, ".git", "HEAD"), "")
	home := t.TempDir()
	userPath := filepath.Join(home, ".config", "tkr", "config.yml")
	writeConfig(t, userPath, "category: personal\n")

	cfg, path, err := Load(LoadOptions{WorkingDir: repo, Getenv: fakeEnv(map[string]string{"HOME": home})})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != userPath || cfg.Category != "personal" {
		t.Errorf("path = %q category = %q", path, cfg.Category)
	}

	xdg := t.TempDir()
	xdgPath := filepath.Join(xdg, "tkr", "config.yml")
	writeConfig(t, xdgPath, "category: xdg\n")
	cfg, path, err = Load(LoadOptions{WorkingDir: repo, Getenv: fakeEnv(map[string]string{"HOME": home, "XDG_CONFIG_HOME": xdg})})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != xdgPath || cfg.Category != "xdg" {
		t.Errorf("XDG_CONFIG_HOME not preferred: %q %q", path, cfg.Category)
	}
}

func TestLoadJSONC(t *testing.T) {
	directory := t.TempDir()
	configPath := filepath.Join(directory, "tkr.jsonc")
	writeConfig(t, configPath, `{
  // trailing commas and comments are allowed
  "resolve_policy": "first",
  "viewer": {"debounce": "1s",},
}`)
	cfg, path, err := Load(LoadOptions{ExplicitPath: configPath, WorkingDir: directory, Getenv: fakeEnv(nil)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != configPath || cfg.ResolvePolicy != "first" || cfg.Viewer.Debounce != "1s" {
		t.Errorf("path=%q cfg=%+v", path, cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	directory := t.TempDir()
	configPath := filepath.Join(directory, "config.yml")
	writeConfig(t, configPath, `
tickets_dir: ${REPO_ROOT}/.work-tickets
repo_root: ${HOME}/src/app
project: from-file
category: from-file
`)
	env := fakeEnv(map[string]string{
		EnvConfig:   configPath,
		EnvCategory: "from-env",
		"HOME":      "/home/sam",
	})
	cfg, _, err := Load(LoadOptions{WorkingDir: directory, Getenv: env})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project != "from-file" || cfg.Category != "from-env" {
		t.Errorf("project=%q category=%q", cfg.Project, cfg.Category)
	}
	if cfg.RepoRoot != "/home/sam/src/app" || cfg.TicketsDir != "/home/sam/src/app/.work-tickets" {
		t.Errorf("variables not expanded: repo=%q tickets=%q", cfg.RepoRoot, cfg.TicketsDir)
	}
}

func TestLoadErrors(t *testing.T) {
	directory := t.TempDir()
	if _, _, err := Load(LoadOptions{ExplicitPath: filepath.Join(directory, "missing.yml"), WorkingDir: directory, Getenv: fakeEnv(nil)}); err == nil {
		t.Error("missing explicit file accepted")
	}

	bad := filepath.Join(directory, "bad.yml")
	writeConfig(t, bad, "resolve_policy: sometimes\nweb:\n  port: 70000\nviewer:\n  debounce: soon\n")
	_, err := LoadFile(bad)
	if err == nil {
		t.Fatal("invalid values accepted")
	}
	for _, want := range []string{"resolve_policy", "web.port", "viewer.debounce"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	unparsable := filepath.Join(directory, "broken.yml")
	writeConfig(t, unparsable, "web: [unterminated\n")
	if _, err := LoadFile(unparsable); err == nil {
		t.Error("unparsable YAML accepted")
	}
}

func TestFindTicketsDir(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if got := FindTicketsDir("", nested); got != filepath.Join(nested, ".tickets") {
		t.Errorf("nothing present: %q", got)
	}

	if err := os.Mkdir(filepath.Join(root, "tickets"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if got := FindTicketsDir("", nested); got != filepath.Join(root, "tickets") {
		t.Errorf("ancestor tickets dir: %q", got)
	}

	if err := os.Mkdir(filepath.Join(root, ".tickets"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if got := FindTicketsDir("", nested); got != filepath.Join(root, ".tickets") {
		t.Errorf(".tickets not preferred: %q", got)
	}

	repo := filepath.Join(root, "a")
	if got := FindTicketsDir(repo, nested); got != filepath.Join(repo, ".tickets") {
		t.Errorf("repo root without tickets dir: %q", got)
	}
	if err := os.Mkdir(filepath.Join(repo, "ticket"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if got := FindTicketsDir(repo, nested); got != filepath.Join(repo, "ticket") {
		t.Errorf("repo root ticket dir: %q", got)
	}
}

func TestStoreRoot(t *testing.T) {
	cfg := Default()
	cfg.TicketsDir = "work/.tickets"
	if got := cfg.StoreRoot("/src/app"); got != "/src/app/work/.tickets" {
		t.Errorf("relative TicketsDir = %q", got)
	}
	cfg.TicketsDir = "/var/tickets"
	if got := cfg.StoreRoot("/src/app"); got != "/var/tickets" {
		t.Errorf("absolute TicketsDir = %q", got)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the resolved configuration for one tkr invocation.
type Config struct {
	// TicketsDir is the store root. Empty means discover it with
	// [FindTicketsDir].
	TicketsDir string `yaml:"tickets_dir" json:"tickets_dir"`

	// RepoRoot anchors ticket directory discovery. Empty means walk
	// up from the working directory.
	RepoRoot string `yaml:"repo_root" json:"repo_root"`

	// Project and Category are stamped on created and imported
	// tickets.
	Project  string `yaml:"project" json:"project"`
	Category string `yaml:"category" json:"category"`

	// ResolvePolicy is "strict" (ambiguous prefixes are errors) or
	// "first" (the first match in scan order wins).
	ResolvePolicy string `yaml:"resolve_policy" json:"resolve_policy"`

	// ReconcileOnOpen repairs duplicate and misfiled documents every
	// time the store is opened.
	ReconcileOnOpen bool `yaml:"reconcile_on_open" json:"reconcile_on_open"`

	Web    WebConfig    `yaml:"web" json:"web"`
	Viewer ViewerConfig `yaml:"viewer" json:"viewer"`
}

// WebConfig configures `tkr web`.
type WebConfig struct {
	// Host and Port form the listen address.
	// Default: 127.0.0.1:8080
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// DefaultAssignee is applied to tickets created through the API
	// without an assignee.
	DefaultAssignee string `yaml:"default_assignee" json:"default_assignee"`

	// StaticDir, when set, is served at / for a board front end.
	StaticDir string `yaml:"static_dir" json:"static_dir"`
}

// ViewerConfig configures `tkr tui`.
type ViewerConfig struct {
	// Debounce is how long the viewer waits after a filesystem change
	// before reloading, so that a burst of writes (a cascade, an
	// import) causes one reload.
	// Default: 200ms
	Debounce string `yaml:"debounce" json:"debounce"`
}

// Environment variables consulted by [Load]. They override the config
// file and are themselves overridden by command-line flags.
const (
	EnvConfig     = "TKR_CONFIG"
	EnvTicketsDir = "TICKETS_DIR"
	EnvRepoRoot   = "REPO_ROOT"
	EnvProject    = "TICKET_PROJECT"
	EnvCategory   = "TICKET_CATEGORY"
)

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		ResolvePolicy: "strict",
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Viewer: ViewerConfig{
			Debounce: "200ms",
		},
	}
}

// LoadOptions tell [Load] where to look.
type LoadOptions struct {
	// ExplicitPath is the --config flag value. When set, only this
	// file is read and it must exist.
	ExplicitPath string

	// WorkingDir starts the search for a repository config file.
	// Empty uses the process working directory.
	WorkingDir string

	// Getenv reads environment variables. Nil uses os.Getenv.
	Getenv func(string) string
}

// Load builds a Config from defaults, the first config file found, and
// the environment, in increasing precedence. Returns the config and
// the path of the file that was read ("" when none).
//
// File search order: ExplicitPath, then $TKR_CONFIG, then
// .config/tkr/config.{yml,yaml,jsonc,json} in WorkingDir and each
// parent up to the enclosing git repository root, then
// $XDG_CONFIG_HOME/tkr/config.yml (or ~/.config/tkr/config.yml). A
// missing file is not an error except for an explicit one.
func Load(options LoadOptions) (*Config, string, error) {
	getenv := options.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	workingDir := options.WorkingDir
	if workingDir == "" {
		var err error
		workingDir, err = os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("determining working directory: %w", err)
		}
	}

	cfg := Default()
	path := options.ExplicitPath
	if path == "" {
		path = getenv(EnvConfig)
	}
	if path == "" {
		path = discover(workingDir, getenv)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, "", err
		}
	}

	cfg.applyEnvironment(getenv)
	cfg.expandVariables(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration in %s: %w", displayPath(path), err)
	}
	return cfg, path, nil
}

// LoadFile reads a single config file over the defaults. Environment
// variables are not applied.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// loadFile merges a config file into c. ".json" and ".jsonc" files are
// JSON with comments and trailing commas allowed; anything else is
// YAML.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// repoConfigNames are tried in order inside each .config/tkr directory.
var repoConfigNames = []string{"config.yml", "config.yaml", "config.jsonc", "config.json"}

func discover(workingDir string, getenv func(string) string) string {
	current := filepath.Clean(workingDir)
	for {
		for _, name := range repoConfigNames {
			candidate := filepath.Join(current, ".config", "tkr", name)
			if isFile(candidate) {
				return candidate
			}
		}
		if exists(filepath.Join(current, ".git")) {
			break
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	configHome := getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home := getenv("HOME"); home != "" {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		candidate := filepath.Join(configHome, "tkr", "config.yml")
		if isFile(candidate) {
			return candidate
		}
	}
	return ""
}

func (c *Config) applyEnvironment(getenv func(string) string) {
	for name, field := range map[string]*string{
		EnvTicketsDir: &c.TicketsDir,
		EnvRepoRoot:   &c.RepoRoot,
		EnvProject:    &c.Project,
		EnvCategory:   &c.Category,
	} {
		if value := getenv(name); value != "" {
			*field = value
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
// ${REPO_ROOT} refers to the configured repository root.
func (c *Config) expandVariables(getenv func(string) string) {
	vars := map[string]string{"HOME": getenv("HOME")}
	c.RepoRoot = expandVars(c.RepoRoot, vars, getenv)
	vars["REPO_ROOT"] = c.RepoRoot
	c.TicketsDir = expandVars(c.TicketsDir, vars, getenv)
	c.Web.StaticDir = expandVars(c.Web.StaticDir, vars, getenv)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string, getenv func(string) string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks field values that cannot be checked by the decoder.
func (c *Config) Validate() error {
	var errs []error
	switch c.ResolvePolicy {
	case "", "strict", "first":
	default:
		errs = append(errs, fmt.Errorf("resolve_policy must be strict or first, got %q", c.ResolvePolicy))
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		errs = append(errs, fmt.Errorf("web.port %d out of range", c.Web.Port))
	}
	if _, err := c.Viewer.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DebounceDuration parses Debounce. Empty means zero.
func (v ViewerConfig) DebounceDuration() (time.Duration, error) {
	if v.Debounce == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(v.Debounce)
	if err != nil {
		return 0, fmt.Errorf("viewer.debounce: %w", err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("viewer.debounce must not be negative, got %s", v.Debounce)
	}
	return duration, nil
}

// Address returns the host:port listen address.
func (w WebConfig) Address() string {
	return net.JoinHostPort(w.Host, strconv.Itoa(w.Port))
}

func displayPath(path string) string {
	if path == "" {
		return "defaults and environment"
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Package config loads application configuration from environment variables
// and an optional YAML file describing the watched repositories.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	GitHubToken  string
	PollInterval time.Duration
	ListenAddr   string
	DBPath       string
	Workers      int
	LogLevel     slog.Level
	LogFormat    string // "text" or "json".
	ConfigFile   string
	Repositories []RepositoryConfig
	Commands     []string
}

// RepositoryConfig is the per-repository notification configuration.
type RepositoryConfig struct {
	Name          string            `yaml:"name"`
	Branches      string            `yaml:"branches"`
	Integrator    string            `yaml:"integrator"`
	ReadyComments map[string]string `yaml:"ready_comments"`

	// Compiled forms, populated by Load.
	BranchFilter  *regexp.Regexp            `yaml:"-"`
	ReadyPatterns map[string]*regexp.Regexp `yaml:"-"`
}

// fileConfig is the YAML document layout.
type fileConfig struct {
	Repositories []RepositoryConfig `yaml:"repositories"`
	Commands     []string           `yaml:"commands"`
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is loaded first without overriding
// variables that are already set. configFile, when non-empty, takes precedence
// over FORGEWATCH_CONFIG_FILE.
// Optional variables with defaults: FORGEWATCH_POLL_INTERVAL (1m),
// FORGEWATCH_LISTEN_ADDR (127.0.0.1:8080), FORGEWATCH_DB_PATH (forgewatch.db),
// FORGEWATCH_WORKERS (4), FORGEWATCH_LOG_LEVEL (info), FORGEWATCH_LOG_FORMAT (text).
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		GitHubToken:  os.Getenv("FORGEWATCH_GITHUB_TOKEN"),
		PollInterval: time.Minute,
		ListenAddr:   "127.0.0.1:8080",
		DBPath:       "forgewatch.db",
		Workers:      4,
		LogLevel:     slog.LevelInfo,
		LogFormat:    "text",
		ConfigFile:   os.Getenv("FORGEWATCH_CONFIG_FILE"),
		Commands:     []string{},
	}
	if configFile != "" {
		cfg.ConfigFile = configFile
	}

	if v, ok := os.LookupEnv("FORGEWATCH_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FORGEWATCH_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("FORGEWATCH_POLL_INTERVAL must be positive, got %q", v)
		}
		cfg.PollInterval = parsed
	}

	if v, ok := os.LookupEnv("FORGEWATCH_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	if v, ok := os.LookupEnv("FORGEWATCH_DB_PATH"); ok {
		cfg.DBPath = v
	}

	if v, ok := os.LookupEnv("FORGEWATCH_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("FORGEWATCH_WORKERS must be a positive integer, got %q", v)
		}
		cfg.Workers = n
	}

	if v, ok := os.LookupEnv("FORGEWATCH_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("FORGEWATCH_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	if v, ok := os.LookupEnv("FORGEWATCH_LOG_FORMAT"); ok {
		if v != "text" && v != "json" {
			return nil, fmt.Errorf("FORGEWATCH_LOG_FORMAT must be text or json, got %q", v)
		}
		cfg.LogFormat = v
	}

	if cfg.ConfigFile != "" {
		fc, err := readFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Repositories = fc.Repositories
		if fc.Commands != nil {
			cfg.Commands = fc.Commands
		}
	}

	if v, ok := os.LookupEnv("FORGEWATCH_REPOS"); ok && v != "" {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name != "" && !cfg.hasRepository(name) {
				cfg.Repositories = append(cfg.Repositories, RepositoryConfig{Name: name})
			}
		}
	}

	seen := make(map[string]bool, len(cfg.Repositories))
	for i := range cfg.Repositories {
		if err := cfg.Repositories[i].compile(); err != nil {
			return nil, err
		}
		if seen[cfg.Repositories[i].Name] {
			return nil, fmt.Errorf("repository %s is configured twice", cfg.Repositories[i].Name)
		}
		seen[cfg.Repositories[i].Name] = true
	}

	return cfg, nil
}

func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

func (c *Config) hasRepository(name string) bool {
	for _, r := range c.Repositories {
		if r.Name == name {
			return true
		}
	}
	return false
}

// compile validates the repository entry and fills in the compiled patterns.
func (r *RepositoryConfig) compile() error {
	owner, repo, ok := strings.Cut(r.Name, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return fmt.Errorf("repository name %q: expected owner/repo", r.Name)
	}

	if r.Branches != "" {
		re, err := regexp.Compile(r.Branches)
		if err != nil {
			return fmt.Errorf("repository %s branches pattern: %w", r.Name, err)
		}
		r.BranchFilter = re
	}

	r.ReadyPatterns = make(map[string]*regexp.Regexp, len(r.ReadyComments))
	for author, pattern := range r.ReadyComments {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("repository %s ready comment pattern for %q: %w", r.Name, author, err)
		}
		r.ReadyPatterns[author] = re
	}
	return nil
}

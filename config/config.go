// Package config loads the YAML configuration shared by the nanoScript
// command-line tools.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"simonwaldherr.de/go/nanoscript/logger"
)

// FileName is looked up in the working directory when no path is given.
const FileName = ".nanoscript.yaml"

// Config is the validated configuration.
type Config struct {
	Path string
	Log  LogConfig
	Run  RunConfig
	REPL REPLConfig
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

type RunConfig struct {
	// Timeout bounds a script's wall-clock time; zero means no limit.
	Timeout     time.Duration
	PrintResult bool
}

type REPLConfig struct {
	History     bool
	HistoryFile string
}

// ValidationError aggregates configuration validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

type configFile struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
	Run struct {
		Timeout     string `yaml:"timeout"`
		PrintResult *bool  `yaml:"print_result"`
	} `yaml:"run"`
	REPL struct {
		History     *bool  `yaml:"history"`
		HistoryFile string `yaml:"history_file"`
	} `yaml:"repl"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: "warn", Format: "text"},
		Run:  RunConfig{PrintResult: true},
		REPL: REPLConfig{History: true, HistoryFile: "~/.nanoscript_history"},
	}
}

// Load parses and validates the YAML file at path. Unknown keys are errors.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", absPath, err)
	}
	cfg.Path = absPath
	return cfg, nil
}

// Decode reads one YAML document from r. An empty document yields the
// defaults.
func Decode(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw configFile
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return raw.toConfig()
}

// Resolve loads explicit if set, otherwise FileName in dir when it exists,
// otherwise returns Default.
func Resolve(explicit, dir string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err == nil {
		return Load(candidate)
	}
	return Default(), nil
}

func (raw *configFile) toConfig() (*Config, error) {
	cfg := Default()
	var errs ValidationError

	if raw.Log.Level != "" {
		cfg.Log.Level = raw.Log.Level
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		errs.Issues = append(errs.Issues, fmt.Sprintf("log.level: unknown level %q", raw.Log.Level))
	}
	if raw.Log.Format != "" {
		cfg.Log.Format = raw.Log.Format
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs.Issues = append(errs.Issues, fmt.Sprintf("log.format: must be text or json, got %q", cfg.Log.Format))
	}
	cfg.Log.File = raw.Log.File

	if raw.Run.Timeout != "" {
		d, err := time.ParseDuration(raw.Run.Timeout)
		switch {
		case err != nil:
			errs.Issues = append(errs.Issues, fmt.Sprintf("run.timeout: %v", err))
		case d < 0:
			errs.Issues = append(errs.Issues, "run.timeout: must not be negative")
		default:
			cfg.Run.Timeout = d
		}
	}
	if raw.Run.PrintResult != nil {
		cfg.Run.PrintResult = *raw.Run.PrintResult
	}
	if raw.REPL.History != nil {
		cfg.REPL.History = *raw.REPL.History
	}
	if raw.REPL.HistoryFile != "" {
		cfg.REPL.HistoryFile = raw.REPL.HistoryFile
	}

	if len(errs.Issues) > 0 {
		return nil, &errs
	}
	return cfg, nil
}

// LoggerConfig maps the log section onto logger.Config.
func (c *Config) LoggerConfig() logger.Config {
	lc := logger.DefaultConfig()
	if lvl, err := logger.ParseLevel(c.Log.Level); err == nil {
		lc.Level = lvl
	}
	lc.Format = c.Log.Format
	lc.LogFile = c.Log.File
	return lc
}

// HistoryPath expands a leading ~ in the REPL history file.
func (c *Config) HistoryPath() string {
	p := c.REPL.HistoryFile
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	return p
}

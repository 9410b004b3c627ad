// Package config holds the configuration structures for the memory bank MCP
// server.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/madeindigio/memory-bank-mcp/pkg/version"
)

// Config holds the configuration for the memory bank MCP server.
type Config struct {
	// Store is the root directory holding this project's documents and graph
	// sub-directory (spec.md §3, §4.1).
	Store string `mapstructure:"store"`

	// SSE enables MCP over Server-Sent Events transport. The default
	// transport is stdio.
	SSE     bool   `mapstructure:"sse"`
	SSEAddr string `mapstructure:"sse-addr"`

	LogFile string `mapstructure:"log"`
	// When true, disables all logging output to stdout/stderr. Logs will
	// only be written to the configured log file (if any).
	DisableOutputLog bool `mapstructure:"disable-output-log"`

	// CompactionOnStart runs a graph compaction pass immediately after the
	// store is opened, before serving any tool calls.
	CompactionOnStart bool `mapstructure:"compaction-on-start"`
}

// Load loads the configuration from CLI flags, environment variables, and
// an optional YAML file, in that precedence order (flags > env > file >
// defaults).
func Load() (*Config, error) {
	pflag.String("config", "", "Path to YAML configuration file")
	pflag.String("store", "", "Path to the memory bank store directory; can also be set via MEMBANK_STORE")

	pflag.Bool("sse", false, "Enable MCP SSE transport (default: stdio)")
	pflag.String("sse-addr", ":3000", "Address to bind the MCP SSE transport (e.g. :3000 or 127.0.0.1:3000)")

	pflag.String("log", "", "Path to the log file (logs will be written to both stdout/stderr and file)")
	pflag.Bool("disable-output-log", false, "Disable logging to stdout/stderr; only write to log file if configured")
	pflag.Bool("compaction-on-start", false, "Run a graph compaction pass immediately after opening the store")

	flag.Bool("version", false, "Print version and exit")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	if ver := pflag.Lookup("version"); ver != nil && ver.Value.String() == "true" {
		fmt.Println(version.Describe())
		os.Exit(0)
	}

	v := viper.New()

	configPath := pflag.Lookup("config").Value.String()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if standardPath, ok := standardConfigPath(); ok {
		v.SetConfigFile(standardPath)
		if err := v.ReadInConfig(); err == nil {
			slog.Info("using configuration file from standard location", "path", standardPath)
		}
	}

	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("failed to bind pflags: %w", err)
	}

	v.SetEnvPrefix("MEMBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// standardConfigPath returns the OS-specific default config file location,
// and whether it currently exists.
func standardConfigPath() (string, bool) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}

	var path string
	if runtime.GOOS == "darwin" {
		path = filepath.Join(homeDir, "Library", "Application Support", "memory-bank-mcp", "config.yaml")
	} else {
		path = filepath.Join(homeDir, ".config", "memory-bank-mcp", "config.yaml")
	}

	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Validate checks if the configuration is valid. Store is optional: a store
// can also be opened later via the initialize_memory_bank tool, so an empty
// value here just means the server starts with no active store.
func (c *Config) Validate() error {
	if c.SSE && c.SSEAddr == "" {
		return errors.New("--sse-addr must not be empty when --sse is set")
	}
	return nil
}

// Getenv reads an environment variable or returns a default value.
func Getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SetupLogging configures slog output.
//
// Important: when running MCP over stdio, stdout must be reserved for
// protocol messages. Console logs default to stderr in stdio mode.
func (c *Config) SetupLogging() error {
	var writers []io.Writer

	if !c.DisableOutputLog {
		stdioMode := !c.SSE
		if stdioMode {
			writers = append(writers, os.Stderr)
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	if c.LogFile != "" {
		logFile, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", c.LogFile, err)
		}
		writers = append(writers, logFile)
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	multiWriter := io.MultiWriter(writers...)
	handler := slog.NewTextHandler(multiWriter, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: false,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

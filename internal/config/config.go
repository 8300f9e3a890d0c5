// Package config loads runtime settings for the techstack tools.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete runtime configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Signatures SignaturesConfig `mapstructure:"signatures" yaml:"signatures"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler" yaml:"reconciler"`
	Reader     ReaderConfig     `mapstructure:"reader" yaml:"reader"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
}

// LogConfig controls logger level, format and destination
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`         // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`       // text, json
	Output     string `mapstructure:"output" yaml:"output"`       // stdout, stderr, file
	FilePath   string `mapstructure:"file_path" yaml:"file_path"` // used when output is file
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`   // MB
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
	Caller     bool   `mapstructure:"caller" yaml:"caller"`
}

// SignaturesConfig selects where the signature document comes from.
// Path wins over URL; with neither set the embedded document is used.
type SignaturesConfig struct {
	Path          string        `mapstructure:"path" yaml:"path"`
	URL           string        `mapstructure:"url" yaml:"url"`
	CacheDir      string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	ForceDownload bool          `mapstructure:"force_download" yaml:"force_download"`
}

// ReconcilerConfig tunes visit completion
type ReconcilerConfig struct {
	// CompleteAfter is the bounded wait before a record completes with one source
	CompleteAfter time.Duration `mapstructure:"complete_after" yaml:"complete_after"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// ReaderConfig tunes the reader fallback chain
type ReaderConfig struct {
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// StoreConfig selects visit record persistence
type StoreConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // memory, leveldb
	Path string `mapstructure:"path" yaml:"path"`
}

// BrowserConfig configures the headless browser host
type BrowserConfig struct {
	Bin               string        `mapstructure:"bin" yaml:"bin"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NoSandbox         bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
		},
		Signatures: SignaturesConfig{
			CacheTTL: 24 * time.Hour,
		},
		Reconciler: ReconcilerConfig{
			CompleteAfter: 3 * time.Second,
			SweepInterval: time.Second,
		},
		Reader: ReaderConfig{
			RetryDelay: time.Second,
		},
		Store: StoreConfig{
			Type: "memory",
		},
		Browser: BrowserConfig{
			Headless:          true,
			NoSandbox:         true,
			NavigationTimeout: 30 * time.Second,
		},
	}
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unsupported value %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Output) {
	case "stdout", "stderr":
	case "file":
		if c.Log.FilePath == "" {
			return fmt.Errorf("log.file_path is required when log.output is file")
		}
	default:
		return fmt.Errorf("log.output: unsupported value %q", c.Log.Output)
	}

	switch strings.ToLower(c.Store.Type) {
	case "memory":
	case "leveldb":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for leveldb")
		}
	default:
		return fmt.Errorf("store.type: unsupported value %q", c.Store.Type)
	}

	if c.Reconciler.CompleteAfter <= 0 {
		return fmt.Errorf("reconciler.complete_after must be positive")
	}
	if c.Reconciler.SweepInterval <= 0 {
		return fmt.Errorf("reconciler.sweep_interval must be positive")
	}
	if c.Reader.RetryDelay < 0 {
		return fmt.Errorf("reader.retry_delay must not be negative")
	}
	return nil
}

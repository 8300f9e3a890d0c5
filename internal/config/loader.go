package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TECHSTACK_LOG_LEVEL
const EnvPrefix = "TECHSTACK"

// Loader reads configuration from file, environment and defaults
type Loader struct {
	configPath string
	viper      *viper.Viper
}

// NewLoader creates a loader. An empty path searches ./techstack.yaml and
// ./configs/techstack.yaml and tolerates neither existing.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		viper:      viper.New(),
	}
}

// Viper exposes the underlying instance so command flags can be bound to keys
func (l *Loader) Viper() *viper.Viper {
	return l.viper
}

// ConfigFile returns the file that was read, empty when none was found
func (l *Loader) ConfigFile() string {
	return l.viper.ConfigFileUsed()
}

// Load reads and validates the configuration
func (l *Loader) Load() (*Config, error) {
	v := l.viper
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := l.readConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) readConfigFile() error {
	if l.configPath != "" {
		l.viper.SetConfigFile(l.configPath)
		return l.viper.ReadInConfig()
	}

	l.viper.SetConfigName("techstack")
	l.viper.AddConfigPath(".")
	l.viper.AddConfigPath("./configs")
	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("log.caller", d.Log.Caller)

	v.SetDefault("signatures.path", d.Signatures.Path)
	v.SetDefault("signatures.url", d.Signatures.URL)
	v.SetDefault("signatures.cache_dir", d.Signatures.CacheDir)
	v.SetDefault("signatures.cache_ttl", d.Signatures.CacheTTL)
	v.SetDefault("signatures.force_download", d.Signatures.ForceDownload)

	v.SetDefault("reconciler.complete_after", d.Reconciler.CompleteAfter)
	v.SetDefault("reconciler.sweep_interval", d.Reconciler.SweepInterval)

	v.SetDefault("reader.retry_delay", d.Reader.RetryDelay)

	v.SetDefault("store.type", d.Store.Type)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("browser.bin", d.Browser.Bin)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.no_sandbox", d.Browser.NoSandbox)
	v.SetDefault("browser.navigation_timeout", d.Browser.NavigationTimeout)
}

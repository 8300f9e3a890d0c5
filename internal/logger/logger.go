// Package logger configures the process-wide logrus instance.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mamamialezatoz/go-techstack/internal/config"
)

// TimestampFormat is used by both formatters
const TimestampFormat = "2006-01-02 15:04:05.000"

// Manager owns the configured logger and its current settings
type Manager struct {
	mu     sync.Mutex
	logger *logrus.Logger
	config config.LogConfig
}

var (
	instance   *Manager
	instanceMu sync.RWMutex
)

// InitLogger builds a logger from cfg and installs it as the global instance
func InitLogger(cfg *config.LogConfig) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("log config cannot be nil")
	}

	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		l.Warnf("Invalid log level '%s', using 'info' as default", cfg.Level)
	}
	l.SetLevel(level)

	if err := setFormatter(l, cfg); err != nil {
		return nil, fmt.Errorf("failed to set log formatter: %w", err)
	}
	if err := setOutput(l, cfg); err != nil {
		return nil, fmt.Errorf("failed to set log output: %w", err)
	}
	l.SetReportCaller(cfg.Caller)

	m := &Manager{logger: l, config: *cfg}

	instanceMu.Lock()
	instance = m
	instanceMu.Unlock()

	return m, nil
}

func setFormatter(l *logrus.Logger, cfg *config.LogConfig) error {
	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: TimestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: TimestampFormat,
			FullTimestamp:   true,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
	return nil
}

func setOutput(l *logrus.Logger, cfg *config.LogConfig) error {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		l.SetOutput(os.Stdout)
	case "stderr", "":
		l.SetOutput(os.Stderr)
	case "file":
		if cfg.FilePath == "" {
			return fmt.Errorf("file path is required when output is file")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if strings.EqualFold(cfg.Level, "debug") {
			l.SetOutput(io.MultiWriter(os.Stderr, rotating))
		} else {
			l.SetOutput(rotating)
		}
	default:
		return fmt.Errorf("unsupported log output: %s", cfg.Output)
	}
	return nil
}

// Logger returns the underlying logrus instance
func (m *Manager) Logger() *logrus.Logger {
	return m.logger
}

// UpdateConfig applies a changed configuration at runtime
func (m *Manager) UpdateConfig(cfg *config.LogConfig) error {
	if cfg == nil {
		return fmt.Errorf("new config cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg.Level != m.config.Level {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		m.logger.SetLevel(level)
		m.logger.Infof("Log level updated from %s to %s", m.config.Level, cfg.Level)
	}
	if cfg.Format != m.config.Format {
		if err := setFormatter(m.logger, cfg); err != nil {
			return fmt.Errorf("failed to update log formatter: %w", err)
		}
	}
	if cfg.Output != m.config.Output || cfg.FilePath != m.config.FilePath {
		if err := setOutput(m.logger, cfg); err != nil {
			return fmt.Errorf("failed to update log output: %w", err)
		}
	}
	m.logger.SetReportCaller(cfg.Caller)

	m.config = *cfg
	return nil
}

// L returns the global logger, or the logrus standard logger before InitLogger
func L() *logrus.Logger {
	instanceMu.RLock()
	defer instanceMu.RUnlock()
	if instance != nil {
		return instance.logger
	}
	return logrus.StandardLogger()
}

// Current returns the installed manager, nil before InitLogger
func Current() *Manager {
	instanceMu.RLock()
	defer instanceMu.RUnlock()
	return instance
}

func Debugf(format string, args ...interface{}) { L().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { L().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { L().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { L().Errorf(format, args...) }

// WithField starts an entry with a single field
func WithField(key string, value interface{}) *logrus.Entry {
	return L().WithField(key, value)
}

// WithFields starts an entry with several fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return L().WithFields(fields)
}

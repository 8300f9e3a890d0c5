package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-techstack/internal/config"
)

func TestParseHeaders(t *testing.T) {
	headers, err := parseHeaders([]string{"Server: nginx/1.18.0", "Set-Cookie: a=1", "Set-Cookie: b=2", "X-Empty:"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nginx/1.18.0"}, headers["Server"])
	assert.Equal(t, []string{"a=1", "b=2"}, headers["Set-Cookie"])
	assert.Equal(t, []string{""}, headers["X-Empty"])

	_, err = parseHeaders([]string{"no colon"})
	assert.Error(t, err)
	_, err = parseHeaders([]string{": value"})
	assert.Error(t, err)
}

func TestLoadSignatures(t *testing.T) {
	db, err := loadSignatures(context.Background(), config.SignaturesConfig{})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", db.Version)

	path := filepath.Join(t.TempDir(), "sigs.yaml")
	doc := "version: local\ncategories:\n  - key: x\n    technologies:\n      - name: X\n        patterns:\n          - type: global\n            name: X\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	db, err = loadSignatures(context.Background(), config.SignaturesConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "local", db.Version)
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	report := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(page, []byte(`<html><head><meta name="generator" content="WordPress 6.4"></head></html>`), 0644))

	rootCmd.SetArgs([]string{"analyze", "--file", page, "--header", "Server: nginx", "--domain", "example.com", "--output", report})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"domain": "example.com"`)
	assert.Contains(t, string(data), `"name": "WordPress"`)
	assert.Contains(t, string(data), `"name": "Nginx"`)
}

func TestRootCommand_LogLevelFlag(t *testing.T) {
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"signatures", "list", "--log-level", "debug"})
	require.NoError(t, rootCmd.Execute())

	require.NotNil(t, cfg)
	assert.Equal(t, "debug", cfg.Log.Level)
}

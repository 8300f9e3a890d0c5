package downloader

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mamamialezatoz/go-techstack/internal/logger"
	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

const (
	// DefaultCacheDir is the default directory where signatures are cached
	DefaultCacheDir = "go-techstack"

	// DefaultCacheExpiry is the default expiry time for cached signatures
	DefaultCacheExpiry = 24 * time.Hour

	maxDocumentSize = 32 << 20
)

// cacheNames are the file names a signature document is stored under,
// in lookup order
var cacheNames = []string{"signatures.json", "signatures.yaml", "signatures.yml"}

// Config contains configuration for the signatures downloader
type Config struct {
	// ReleaseURL is the URL to download the signature document from
	ReleaseURL string

	// CacheDir is the directory where the document is cached
	CacheDir string

	// CacheExpiry is how long to keep a cached document before re-downloading
	CacheExpiry time.Duration

	// ForceDownload forces a new download even if cache is valid
	ForceDownload bool

	// DisableCache disables caching altogether
	DisableCache bool

	// Client is the HTTP client to use for downloads
	Client *http.Client
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheDir:    filepath.Join(userCacheDir(), DefaultCacheDir),
		CacheExpiry: DefaultCacheExpiry,
		Client:      http.DefaultClient,
	}
}

// userCacheDir returns the user's cache directory
func userCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache")
	}
	return os.TempDir()
}

// Document is a raw signature document and where it came from
type Document struct {
	// Name is the file name the document is stored under; its extension
	// selects the decoder
	Name      string
	Data      []byte
	FromCache bool
}

// Compile parses the document into a database
func (d *Document) Compile() (*models.SignatureDatabase, error) {
	if isYAML(d.Name) {
		return parser.LoadYAML(d.Data)
	}
	return parser.Load(d.Data)
}

// GetSignatures returns the signature document, downloading it when the cache
// is missing, expired, disabled or bypassed
func GetSignatures(ctx context.Context, cfg *Config) (*Document, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if !cfg.DisableCache && !cfg.ForceDownload {
		if path, info, ok := cachedFile(cfg); ok && time.Since(info.ModTime()) < cfg.CacheExpiry {
			data, err := os.ReadFile(path)
			if err == nil {
				logger.Debugf("using cached signatures %s", path)
				return &Document{Name: filepath.Base(path), Data: data, FromCache: true}, nil
			}
			logger.Warnf("failed to read cached signatures %s: %v", path, err)
		}
	}

	if cfg.ReleaseURL == "" {
		return nil, fmt.Errorf("no signature release URL configured")
	}

	doc, err := download(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to download signatures: %w", err)
	}
	// Never cache a document that does not compile.
	if _, err := doc.Compile(); err != nil {
		return nil, err
	}

	if !cfg.DisableCache {
		if err := writeCache(cfg, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func download(ctx context.Context, cfg *Config) (*Document, error) {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.ReleaseURL, nil)
	if err != nil {
		return nil, err
	}
	logger.Infof("downloading signatures from %s", cfg.ReleaseURL)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return extract(data)
	}

	name := cacheNames[0]
	if isYAML(req.URL.Path) {
		name = "signatures.yaml"
	}
	return &Document{Name: name, Data: data}, nil
}

// extract pulls the signature document out of a release archive
func extract(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}

	for _, want := range cacheNames {
		for _, file := range zr.File {
			if filepath.Base(file.Name) != want {
				continue
			}
			rc, err := file.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open file %s in zip: %w", file.Name, err)
			}
			content, err := io.ReadAll(io.LimitReader(rc, maxDocumentSize))
			rc.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to extract file %s: %w", file.Name, err)
			}
			return &Document{Name: want, Data: content}, nil
		}
	}
	return nil, fmt.Errorf("archive contains no signature document")
}

func writeCache(cfg *Config, doc *Document) error {
	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := Clear(cfg); err != nil {
		return err
	}

	path := filepath.Join(cfg.CacheDir, doc.Name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, doc.Data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	logger.Debugf("cached signatures at %s", path)
	return nil
}

// Status describes the cached document
type Status struct {
	Path    string
	Cached  bool
	Size    int64
	ModTime time.Time
	Expired bool
}

// GetStatus reports the state of the cache
func GetStatus(cfg *Config) Status {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	path, info, ok := cachedFile(cfg)
	if !ok {
		return Status{Path: filepath.Join(cfg.CacheDir, cacheNames[0])}
	}
	return Status{
		Path:    path,
		Cached:  true,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Expired: time.Since(info.ModTime()) >= cfg.CacheExpiry,
	}
}

// Clear removes every cached document
func Clear(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	for _, name := range cacheNames {
		err := os.Remove(filepath.Join(cfg.CacheDir, name))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cached signatures: %w", err)
		}
	}
	return nil
}

func cachedFile(cfg *Config) (string, os.FileInfo, bool) {
	for _, name := range cacheNames {
		path := filepath.Join(cfg.CacheDir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, info, true
		}
	}
	return "", nil, false
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

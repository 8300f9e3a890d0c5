package techstack

import "github.com/mamamialezatoz/go-techstack/internal/models"

// Config contains configuration options for the techstack client
type Config struct {
	// Signatures contains a JSON signature document, if provided directly
	Signatures []byte
	// SignatureFile is a JSON or YAML signature document on disk
	SignatureFile string
	// Database is an already compiled signature database
	Database *Database
	// DisableHTMLDetection disables markup pattern detection
	DisableHTMLDetection bool
	// DisableScriptDetection disables script tag detection
	DisableScriptDetection bool
	// DisableLinkDetection disables link tag detection
	DisableLinkDetection bool
	// DisableMetaDetection disables meta tag detection
	DisableMetaDetection bool
	// DisableJSDetection disables global variable detection
	DisableJSDetection bool
	// DisableCookieDetection disables cookie detection
	DisableCookieDetection bool
	// DisableHeaderDetection disables header detection
	DisableHeaderDetection bool
	// MaxBodySize limits the maximum body size to scan
	MaxBodySize int
}

// Option is a function that configures the techstack client
type Option func(*Config)

// WithSignatures sets a JSON signature document
func WithSignatures(document []byte) Option {
	return func(c *Config) {
		c.Signatures = document
	}
}

// WithSignatureFile loads the signature document from path
func WithSignatureFile(path string) Option {
	return func(c *Config) {
		c.SignatureFile = path
	}
}

// WithDatabase uses a database compiled with LoadDatabase, LoadDatabaseFile
// or DefaultDatabase
func WithDatabase(db *Database) Option {
	return func(c *Config) {
		c.Database = db
	}
}

// WithMaxBodySize sets the maximum body size to scan
func WithMaxBodySize(size int) Option {
	return func(c *Config) {
		c.MaxBodySize = size
	}
}

// WithoutHTMLDetection disables markup pattern detection
func WithoutHTMLDetection() Option {
	return func(c *Config) {
		c.DisableHTMLDetection = true
	}
}

// WithoutScriptDetection disables script tag detection
func WithoutScriptDetection() Option {
	return func(c *Config) {
		c.DisableScriptDetection = true
	}
}

// WithoutLinkDetection disables link tag detection
func WithoutLinkDetection() Option {
	return func(c *Config) {
		c.DisableLinkDetection = true
	}
}

// WithoutMetaDetection disables meta tag detection
func WithoutMetaDetection() Option {
	return func(c *Config) {
		c.DisableMetaDetection = true
	}
}

// WithoutJSDetection disables global variable detection
func WithoutJSDetection() Option {
	return func(c *Config) {
		c.DisableJSDetection = true
	}
}

// WithoutCookieDetection disables cookie detection
func WithoutCookieDetection() Option {
	return func(c *Config) {
		c.DisableCookieDetection = true
	}
}

// WithoutHeaderDetection disables header detection
func WithoutHeaderDetection() Option {
	return func(c *Config) {
		c.DisableHeaderDetection = true
	}
}

// WithAllDetections enables all detection methods
func WithAllDetections() Option {
	return func(c *Config) {
		c.DisableHTMLDetection = false
		c.DisableScriptDetection = false
		c.DisableLinkDetection = false
		c.DisableMetaDetection = false
		c.DisableJSDetection = false
		c.DisableCookieDetection = false
		c.DisableHeaderDetection = false
	}
}

// domKinds returns the DOM evidence kinds left enabled
func (c *Config) domKinds() []models.PatternKind {
	disabled := map[models.PatternKind]bool{
		models.KindMarkup:         c.DisableHTMLDetection,
		models.KindScriptSource:   c.DisableScriptDetection,
		models.KindLinkHref:       c.DisableLinkDetection,
		models.KindMetaTag:        c.DisableMetaDetection,
		models.KindGlobalVariable: c.DisableJSDetection,
		models.KindCookieName:     c.DisableCookieDetection,
	}
	var kinds []models.PatternKind
	for _, k := range models.DOMKinds {
		if !disabled[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

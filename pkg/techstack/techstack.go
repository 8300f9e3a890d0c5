// Package techstack provides offline technology detection for a fetched page:
// markup, response headers and cookies in, scored detections out.
package techstack

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/mamamialezatoz/go-techstack/internal/detection"
	"github.com/mamamialezatoz/go-techstack/internal/extractor"
	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
	"github.com/mamamialezatoz/go-techstack/internal/signatures"
)

// Detection is a scored technology match
type Detection = models.Detection

// Database is a compiled, read-only signature database. One database can be
// shared by any number of clients.
type Database = models.SignatureDatabase

// LoadDatabase compiles a JSON or YAML signature document. A document whose
// first non-blank byte is '{' is read as JSON.
func LoadDatabase(document []byte) (*Database, error) {
	if trimmed := bytes.TrimSpace(document); len(trimmed) > 0 && trimmed[0] == '{' {
		return parser.Load(document)
	}
	return parser.LoadYAML(document)
}

// LoadDatabaseFile compiles the signature document at path
func LoadDatabaseFile(path string) (*Database, error) {
	return parser.LoadFile(path)
}

// DefaultDatabase returns the embedded signature database
func DefaultDatabase() (*Database, error) {
	return signatures.Default()
}

// Client is a client for working with technology detection
type Client struct {
	config  *Config
	db      *Database
	sandbox *extractor.PageSandbox
	headers *extractor.HeaderExtractor
	matcher *detection.Matcher
}

// Page is a fetched page
type Page struct {
	// URL or bare host name of the page
	URL     string
	Body    []byte
	Headers map[string][]string
	// Cookie is a document.cookie style string; when empty the cookies set by
	// the response are used
	Cookie string
}

// Result is the outcome of analyzing one page
type Result struct {
	Domain       string      `json:"domain"`
	Title        string      `json:"title,omitempty"`
	Technologies []Detection `json:"technologies"`
}

// New creates a new technology detection instance. Without a signature
// option the embedded default document is used.
func New(options ...Option) (*Client, error) {
	config := &Config{}
	for _, option := range options {
		option(config)
	}

	db, err := loadDatabase(config)
	if err != nil {
		return nil, err
	}

	matcher := detection.NewMatcher()
	return &Client{
		config:  config,
		db:      db,
		sandbox: extractor.NewPageSandbox(matcher),
		headers: extractor.NewHeaderExtractor(matcher),
		matcher: matcher,
	}, nil
}

func loadDatabase(config *Config) (*Database, error) {
	switch {
	case config.Database != nil:
		return config.Database, nil
	case len(config.Signatures) > 0:
		db, err := parser.Load(config.Signatures)
		if err != nil {
			return nil, fmt.Errorf("could not compile signatures: %w", err)
		}
		return db, nil
	case config.SignatureFile != "":
		db, err := parser.LoadFile(config.SignatureFile)
		if err != nil {
			return nil, fmt.Errorf("could not compile signatures from %s: %w", config.SignatureFile, err)
		}
		return db, nil
	default:
		return DefaultDatabase()
	}
}

// Database returns the compiled signature database
func (c *Client) Database() *Database {
	return c.db
}

// Analyze identifies the technologies of page. DOM and header evidence are
// scored separately and merged the same way a live browser visit is, so a
// technology seen by both keeps the higher confidence instead of the sum.
//
// Body should not be mutated while this function is being called.
func (c *Client) Analyze(page Page) *Result {
	body := page.Body
	if c.config.MaxBodySize > 0 && len(body) > c.config.MaxBodySize {
		body = body[:c.config.MaxBodySize]
	}

	cookie := page.Cookie
	if cookie == "" {
		cookie = detection.CookiesFromSetCookie(headerLookup(page.Headers, "Set-Cookie"))
	}
	doc := extractor.NewStaticDocument(page.URL, body, cookie)

	var domTechs, headerTechs []Detection
	if kinds := c.config.domKinds(); len(kinds) > 0 {
		ev := c.sandbox.Extract(doc, c.db)
		domTechs = c.matcher.Score(c.db, ev, kinds...)
	}
	if !c.config.DisableHeaderDetection && len(page.Headers) > 0 {
		headerTechs = c.headers.Detect(c.db, detection.NormalizeHeaders(page.Headers))
	}

	technologies := detection.Merge(domTechs, headerTechs)
	if technologies == nil {
		technologies = []Detection{}
	}
	return &Result{
		Domain:       doc.Hostname(),
		Title:        doc.Title(),
		Technologies: technologies,
	}
}

// Fingerprint identifies technologies on a target, based on the received
// response headers and body
func (c *Client) Fingerprint(headers map[string][]string, body []byte) []Detection {
	return c.Analyze(Page{Headers: headers, Body: body}).Technologies
}

// AnalyzeResponse reads resp and analyzes it. The body is consumed and
// closed.
func (c *Client) AnalyzeResponse(resp *http.Response) (*Result, error) {
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if c.config.MaxBodySize > 0 {
		reader = io.LimitReader(resp.Body, int64(c.config.MaxBodySize))
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	page := Page{Body: body, Headers: resp.Header}
	if resp.Request != nil && resp.Request.URL != nil {
		page.URL = resp.Request.URL.String()
	}
	return c.Analyze(page), nil
}

func headerLookup(headers map[string][]string, name string) []string {
	if v, ok := headers[name]; ok {
		return v
	}
	return http.Header(headers).Values(name)
}

package extractor

import (
	"net/url"
	"strings"

	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

// StaticDocument is a Document over a fetched HTML body. Globals are the
// names bound by top-level assignments in inline scripts.
type StaticDocument struct {
	host    string
	body    string
	markup  parser.Markup
	globals map[string]models.Global
	cookie  string
}

var _ Document = (*StaticDocument)(nil)

// NewStaticDocument parses body. location may be a URL or a bare hostname.
func NewStaticDocument(location string, body []byte, cookie string) *StaticDocument {
	markup := parser.ParseMarkup(body)
	return &StaticDocument{
		host:    HostFromURL(location),
		body:    string(body),
		markup:  markup,
		globals: parser.ExtractGlobals(markup.InlineScripts),
		cookie:  cookie,
	}
}

// HostFromURL returns the host name of a URL or bare host, empty when it
// cannot be parsed
func HostFromURL(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	if !strings.Contains(location, "://") {
		location = "http://" + location
	}
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Title returns the document title
func (d *StaticDocument) Title() string { return d.markup.Title }

func (d *StaticDocument) Hostname() string { return d.host }

func (d *StaticDocument) OuterHTML() (string, error) { return d.body, nil }

func (d *StaticDocument) ScriptSources() ([]string, error) { return d.markup.ScriptSources, nil }

func (d *StaticDocument) LinkHrefs() ([]string, error) { return d.markup.LinkHrefs, nil }

func (d *StaticDocument) MetaTags() ([]models.MetaTag, error) { return d.markup.MetaTags, nil }

func (d *StaticDocument) Globals(names []string) (map[string]models.Global, error) {
	out := make(map[string]models.Global)
	for _, name := range names {
		if g, ok := d.globals[name]; ok {
			out[name] = g
		}
	}
	return out, nil
}

func (d *StaticDocument) Cookie() (string, error) { return d.cookie, nil }

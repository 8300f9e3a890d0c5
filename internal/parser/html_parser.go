package parser

import (
	"bytes"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/net/html"

	"github.com/mamamialezatoz/go-techstack/internal/models"
)

var (
	// Top-level bindings in inline scripts: var/let/const X =, window.X =
	globalAssignRegex = regexp2.MustCompile(`(?:\b(?:var|let|const)\s+|\bwindow\.)([A-Za-z_$][\w$]*)\s*=`, regexp2.None)

	// Version assignments such as X.version = "1.2.3" or X.VERSION='4.0'
	globalVersionRegex = regexp2.MustCompile(`\b([A-Za-z_$][\w$]*)\.(?:version|VERSION)\s*=\s*["']([^"']+)["']`, regexp2.None)
)

// Markup holds the tag-level surface of an HTML document
type Markup struct {
	Title         string
	ScriptSources []string
	InlineScripts []string
	LinkHrefs     []string
	MetaTags      []models.MetaTag
}

// ParseMarkup tokenizes an HTML document and collects script sources, inline
// scripts, link hrefs and meta name/content pairs
func ParseMarkup(body []byte) Markup {
	var out Markup
	z := html.NewTokenizer(bytes.NewReader(body))

	var inScript, inTitle bool
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed trailing markup, keep what was collected
			return out

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "script":
				if src := attr(tok, "src"); src != "" {
					out.ScriptSources = append(out.ScriptSources, src)
				}
				inScript = tt == html.StartTagToken
			case "link":
				if href := attr(tok, "href"); href != "" {
					out.LinkHrefs = append(out.LinkHrefs, href)
				}
			case "meta":
				name := attr(tok, "name")
				if name == "" {
					name = attr(tok, "property")
				}
				if name != "" {
					out.MetaTags = append(out.MetaTags, models.MetaTag{Name: name, Content: attr(tok, "content")})
				}
			case "title":
				inTitle = tt == html.StartTagToken
			}

		case html.EndTagToken:
			tok := z.Token()
			switch tok.Data {
			case "script":
				inScript = false
			case "title":
				inTitle = false
			}

		case html.TextToken:
			if inScript {
				if text := strings.TrimSpace(string(z.Text())); text != "" {
					out.InlineScripts = append(out.InlineScripts, text)
				}
			} else if inTitle && out.Title == "" {
				out.Title = strings.TrimSpace(string(z.Text()))
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// ExtractGlobals finds globals declared by inline scripts. Version fields
// assigned as string literals are attached to their global.
func ExtractGlobals(scripts []string) map[string]models.Global {
	globals := make(map[string]models.Global)

	for _, script := range scripts {
		m, _ := globalAssignRegex.FindStringMatch(script)
		for m != nil {
			if name := m.GroupByNumber(1).String(); name != "" {
				if _, ok := globals[name]; !ok {
					globals[name] = models.Global{}
				}
			}
			m, _ = globalAssignRegex.FindNextMatch(m)
		}
	}

	for _, script := range scripts {
		m, _ := globalVersionRegex.FindStringMatch(script)
		for m != nil {
			name := m.GroupByNumber(1).String()
			if g, ok := globals[name]; ok && g.Version == "" {
				g.Version = m.GroupByNumber(2).String()
				globals[name] = g
			}
			m, _ = globalVersionRegex.FindNextMatch(m)
		}
	}

	return globals
}

// Package extractor gathers page evidence for the matcher.
package extractor

import "github.com/mamamialezatoz/go-techstack/internal/models"

// Document is the page surface visible from inside the page: markup, tag
// attributes, runtime globals and the cookie string. Each accessor may fail
// on its own without affecting the others.
type Document interface {
	Hostname() string
	OuterHTML() (string, error)
	ScriptSources() ([]string, error)
	LinkHrefs() ([]string, error)
	MetaTags() ([]models.MetaTag, error)
	// Globals reports which of names are defined, with their version field
	Globals(names []string) (map[string]models.Global, error)
	Cookie() (string, error)
}

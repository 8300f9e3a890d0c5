package extractor

import (
	"github.com/mamamialezatoz/go-techstack/internal/detection"
	"github.com/mamamialezatoz/go-techstack/internal/logger"
	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

// PageSandbox extracts DOM evidence from a Document and scores it
type PageSandbox struct {
	matcher *detection.Matcher
}

// NewPageSandbox creates a sandbox extractor; a nil matcher uses the default
func NewPageSandbox(m *detection.Matcher) *PageSandbox {
	if m == nil {
		m = detection.NewMatcher()
	}
	return &PageSandbox{matcher: m}
}

// Extract reads every surface of doc. A failing surface is logged and left
// empty; extraction always completes.
func (s *PageSandbox) Extract(doc Document, db *models.SignatureDatabase) models.Evidence {
	var ev models.Evidence
	host := doc.Hostname()

	var err error
	if ev.Markup, err = doc.OuterHTML(); err != nil {
		surfaceFailed(host, "markup", err)
	}
	if ev.ScriptSources, err = doc.ScriptSources(); err != nil {
		surfaceFailed(host, "scripts", err)
	}
	if ev.LinkHrefs, err = doc.LinkHrefs(); err != nil {
		surfaceFailed(host, "links", err)
	}
	if ev.MetaTags, err = doc.MetaTags(); err != nil {
		surfaceFailed(host, "meta", err)
	}
	if db != nil {
		if ev.Globals, err = doc.Globals(parser.GlobalNames(db)); err != nil {
			surfaceFailed(host, "globals", err)
		}
	}
	if ev.Cookie, err = doc.Cookie(); err != nil {
		surfaceFailed(host, "cookie", err)
	}
	return ev
}

// Detect extracts evidence and scores the DOM pattern kinds
func (s *PageSandbox) Detect(doc Document, db *models.SignatureDatabase) []models.Detection {
	ev := s.Extract(doc, db)
	return s.matcher.Score(db, ev, models.DOMKinds...)
}

func surfaceFailed(host, surface string, err error) {
	logger.WithField("host", host).WithField("surface", surface).
		Warnf("evidence surface unavailable: %v", err)
}

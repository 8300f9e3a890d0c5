package detection

import (
	"strings"

	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

// VisitMetaTag matches the content of meta tags whose name equals the
// pattern's name, ignoring case
func (e *evaluator) VisitMetaTag(p *models.MetaTagPattern) (models.Hit, error) {
	for _, meta := range e.ev.MetaTags {
		if !strings.EqualFold(meta.Name, p.Name) {
			continue
		}
		matched, err := parser.EvaluateExpr(p.Content, meta.Content)
		if err != nil {
			return models.Hit{}, err
		}
		if matched {
			return models.Hit{Matched: true, Version: parser.VersionFromText(meta.Content)}, nil
		}
	}
	return models.Hit{}, nil
}

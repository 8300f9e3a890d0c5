package detection

import (
	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

// VisitMarkup matches the serialized page markup
func (e *evaluator) VisitMarkup(p *models.MarkupPattern) (models.Hit, error) {
	if e.ev.Markup == "" {
		return models.Hit{}, nil
	}
	matched, err := parser.EvaluateExpr(p.Content, e.ev.Markup)
	if err != nil {
		return models.Hit{}, err
	}
	return models.Hit{Matched: matched}, nil
}

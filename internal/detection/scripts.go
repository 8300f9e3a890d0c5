package detection

import (
	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

// VisitScriptSource matches script src attributes. Several matching scripts
// still make a single hit; the version comes from the first matching URL
// that carries one.
func (e *evaluator) VisitScriptSource(p *models.ScriptSourcePattern) (models.Hit, error) {
	return matchURLs(p.Src, e.ev.ScriptSources)
}

// VisitLinkHref matches link href attributes
func (e *evaluator) VisitLinkHref(p *models.LinkHrefPattern) (models.Hit, error) {
	return matchURLs(p.Href, e.ev.LinkHrefs)
}

func matchURLs(expr models.Expr, urls []string) (models.Hit, error) {
	var hit models.Hit
	for _, u := range urls {
		if u == "" {
			continue
		}
		matched, err := parser.EvaluateExpr(expr, u)
		if err != nil {
			return models.Hit{}, err
		}
		if !matched {
			continue
		}
		hit.Matched = true
		if hit.Version = parser.VersionFromURL(u); hit.Version != "" {
			break
		}
	}
	return hit, nil
}

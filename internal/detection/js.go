package detection

import "github.com/mamamialezatoz/go-techstack/internal/models"

// VisitGlobalVariable checks whether a named global was found defined
func (e *evaluator) VisitGlobalVariable(p *models.GlobalVariablePattern) (models.Hit, error) {
	g, ok := e.ev.Globals[p.Name]
	if !ok {
		return models.Hit{}, nil
	}
	return models.Hit{Matched: true, Version: g.Version}, nil
}

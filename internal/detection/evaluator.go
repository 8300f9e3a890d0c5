package detection

import "github.com/mamamialezatoz/go-techstack/internal/models"

// evaluator applies single patterns to one evidence set. Each pattern kind is
// handled in the file named after the evidence it reads.
type evaluator struct {
	ev *models.Evidence

	// cookie names are parsed once per evidence set
	cookieNames []string
	cookiesRead bool
}

var _ models.PatternVisitor = (*evaluator)(nil)

func newEvaluator(ev *models.Evidence) *evaluator {
	return &evaluator{ev: ev}
}

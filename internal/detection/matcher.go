// Package detection scores signature patterns against page evidence.
package detection

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mamamialezatoz/go-techstack/internal/logger"
	"github.com/mamamialezatoz/go-techstack/internal/models"
)

// MaxConfidence caps the confidence of a single detection
const MaxConfidence = 100

// Matcher turns evidence into scored detections
type Matcher struct {
	// OnError is called for every pattern that could not be evaluated. The
	// default logs the failure at debug level.
	OnError func(err *models.PatternEvaluationError)
}

// NewMatcher creates a matcher that logs pattern failures
func NewMatcher() *Matcher {
	return &Matcher{OnError: logEvaluationError}
}

// Score evaluates every technology of db against ev. When kinds is non-empty
// only patterns of those kinds are evaluated. Technologies without a single
// matching pattern are omitted; technologies sharing a name across categories
// are merged.
func (m *Matcher) Score(db *models.SignatureDatabase, ev models.Evidence, kinds ...models.PatternKind) []models.Detection {
	if db == nil {
		return nil
	}

	filter := make(map[models.PatternKind]bool, len(kinds))
	for _, k := range kinds {
		filter[k] = true
	}

	e := newEvaluator(&ev)
	var detections []models.Detection
	db.Each(func(rule *models.TechnologyRule) {
		if d, ok := m.scoreRule(rule, e, filter); ok {
			detections = append(detections, d)
		}
	})

	return Merge(detections, nil)
}

func (m *Matcher) scoreRule(rule *models.TechnologyRule, e *evaluator, filter map[models.PatternKind]bool) (models.Detection, bool) {
	d := models.Detection{
		Name:     rule.Name,
		Category: rule.Category,
	}

	counted := make(map[string]struct{}, len(rule.Patterns))
	for _, p := range rule.Patterns {
		if len(filter) > 0 && !filter[p.Kind()] {
			continue
		}

		key := patternKey(p)
		if _, dup := counted[key]; dup {
			continue
		}

		hit, err := p.Accept(e)
		if err != nil {
			m.report(&models.PatternEvaluationError{Technology: rule.Name, Kind: p.Kind(), Err: err})
			continue
		}
		if !hit.Matched {
			continue
		}

		counted[key] = struct{}{}
		d.Confidence += p.Kind().Weight()
		d.EvidenceLabels = append(d.EvidenceLabels, p.Kind().Label())
		if d.Version == "" && hit.Version != "" {
			d.Version = hit.Version
		}
	}

	if len(d.EvidenceLabels) == 0 {
		return models.Detection{}, false
	}
	d.Confidence = clamp(d.Confidence)
	return d, true
}

func (m *Matcher) report(err *models.PatternEvaluationError) {
	if m.OnError != nil {
		m.OnError(err)
	}
}

func logEvaluationError(err *models.PatternEvaluationError) {
	logger.WithFields(logrus.Fields{
		"technology": err.Technology,
		"kind":       err.Kind.String(),
	}).Debugf("pattern treated as non-matching: %v", err.Err)
}

func clamp(confidence int) int {
	if confidence < 0 {
		return 0
	}
	if confidence > MaxConfidence {
		return MaxConfidence
	}
	return confidence
}

// patternKey identifies a pattern by kind and content, so a pattern listed
// twice for the same technology only counts once
func patternKey(p models.Pattern) string {
	switch v := p.(type) {
	case *models.MarkupPattern:
		return fmt.Sprintf("%s|%s", v.Kind(), v.Content.Source)
	case *models.ScriptSourcePattern:
		return fmt.Sprintf("%s|%s", v.Kind(), v.Src.Source)
	case *models.LinkHrefPattern:
		return fmt.Sprintf("%s|%s", v.Kind(), v.Href.Source)
	case *models.MetaTagPattern:
		return fmt.Sprintf("%s|%s|%s", v.Kind(), v.Name, v.Content.Source)
	case *models.GlobalVariablePattern:
		return fmt.Sprintf("%s|%s", v.Kind(), v.Name)
	case *models.CookieNamePattern:
		return fmt.Sprintf("%s|%s", v.Kind(), v.Name.Source)
	case *models.ResponseHeaderPattern:
		return fmt.Sprintf("%s|%s|%s", v.Kind(), v.Name, v.Value.Source)
	}
	return fmt.Sprintf("%p", p)
}

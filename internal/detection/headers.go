package detection

import (
	"sort"
	"strings"

	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

// VisitResponseHeader matches a response header value. Header names in the
// evidence are expected lowercase, see NormalizeHeaders.
func (e *evaluator) VisitResponseHeader(p *models.ResponseHeaderPattern) (models.Hit, error) {
	value, ok := e.ev.Headers[p.Name]
	if !ok {
		return models.Hit{}, nil
	}
	matched, err := parser.EvaluateExpr(p.Value, value)
	if err != nil {
		return models.Hit{}, err
	}
	if !matched {
		return models.Hit{}, nil
	}
	return models.Hit{Matched: true, Version: parser.VersionFromProductToken(value)}, nil
}

// NormalizeHeaders lowercases header names and joins repeated values with ", "
func NormalizeHeaders(headers map[string][]string) map[string]string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]string, len(headers))
	for _, name := range names {
		values := headers[name]
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		joined := strings.Join(values, ", ")
		if prev, ok := out[key]; ok && prev != "" {
			joined = prev + ", " + joined
		}
		out[key] = joined
	}
	return out
}

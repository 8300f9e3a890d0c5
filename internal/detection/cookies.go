package detection

import (
	"strings"

	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

// VisitCookieName matches cookie names from the document cookie string
func (e *evaluator) VisitCookieName(p *models.CookieNamePattern) (models.Hit, error) {
	if !e.cookiesRead {
		e.cookieNames = CookieNames(e.ev.Cookie)
		e.cookiesRead = true
	}

	for _, name := range e.cookieNames {
		matched, err := parser.EvaluateExpr(p.Name, name)
		if err != nil {
			return models.Hit{}, err
		}
		if matched {
			return models.Hit{Matched: true}, nil
		}
	}
	return models.Hit{}, nil
}

// CookieNames splits a "a=1; b=2" cookie string into its cookie names
func CookieNames(cookie string) []string {
	var names []string
	for _, pair := range strings.Split(cookie, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			name = strings.TrimSpace(pair[:i])
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// CookiesFromSetCookie builds a cookie string from Set-Cookie header values,
// keeping only the name=value pair of each
func CookiesFromSetCookie(values []string) string {
	pairs := make([]string, 0, len(values))
	for _, v := range values {
		pair := strings.TrimSpace(strings.SplitN(v, ";", 2)[0])
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	return strings.Join(pairs, "; ")
}

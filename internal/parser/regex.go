package parser

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// MatchTimeout bounds a single regex evaluation
const MatchTimeout = 250 * time.Millisecond

var (
	// Cache of compiled regular expressions
	regexCache   = make(map[string]*regexp2.Regexp)
	regexCacheMu sync.Mutex
)

// CompileRegex compiles a signature expression with JavaScript semantics.
// Expressions are case insensitive; compiled expressions are cached.
func CompileRegex(pattern string) (*regexp2.Regexp, error) {
	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()

	if compiled, ok := regexCache[pattern]; ok {
		return compiled, nil
	}

	expr, opts := normalizePattern(pattern)
	compiled, err := regexp2.Compile(expr, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to compile regex '%s': %w", pattern, err)
	}
	compiled.MatchTimeout = MatchTimeout

	regexCache[pattern] = compiled
	return compiled, nil
}

// normalizePattern strips JavaScript literal delimiters ("/expr/flags") and
// returns the options the expression must be compiled with
func normalizePattern(pattern string) (string, regexp2.RegexOptions) {
	opts := regexp2.RegexOptions(regexp2.ECMAScript | regexp2.IgnoreCase)

	if len(pattern) > 2 && pattern[0] == '/' {
		if end := strings.LastIndex(pattern, "/"); end > 0 {
			flags := pattern[end+1:]
			if strings.Trim(flags, "gimsuy") == "" {
				if strings.Contains(flags, "m") {
					opts |= regexp2.Multiline
				}
				pattern = pattern[1:end]
			}
		}
	}

	return pattern, opts
}

// FindString returns the leftmost match of re in s, or "" when there is none
func FindString(re *regexp2.Regexp, s string) (string, error) {
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil {
		return "", err
	}
	return m.String(), nil
}

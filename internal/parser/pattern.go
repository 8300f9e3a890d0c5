package parser

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/mamamialezatoz/go-techstack/internal/models"
)

var (
	// Version shapes recognised in URLs and free text
	urlVersionPattern  = regexp2.MustCompile(`\d+\.\d+\.\d+`, regexp2.None)
	textVersionPattern = regexp2.MustCompile(`\d+\.\d+(?:\.\d+)?`, regexp2.None)

	// product/version tokens as used by Server and X-Powered-By
	productVersionPattern = regexp2.MustCompile(`/(\d+\.\d+(?:\.\d+)?)`, regexp2.None)
)

// kindAliases maps every accepted raw type name to its kind
var kindAliases = map[string]models.PatternKind{
	"html":           models.KindMarkup,
	"markup":         models.KindMarkup,
	"script":         models.KindScriptSource,
	"scriptsource":   models.KindScriptSource,
	"link":           models.KindLinkHref,
	"linkhref":       models.KindLinkHref,
	"meta":           models.KindMetaTag,
	"metatag":        models.KindMetaTag,
	"global":         models.KindGlobalVariable,
	"globalvariable": models.KindGlobalVariable,
	"js":             models.KindGlobalVariable,
	"cookie":         models.KindCookieName,
	"cookiename":     models.KindCookieName,
	"header":         models.KindResponseHeader,
	"responseheader": models.KindResponseHeader,
}

// ParseKind resolves a raw pattern type name
func ParseKind(name string) (models.PatternKind, bool) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(name))]
	return kind, ok
}

// ParsePattern turns a raw pattern into its typed form. Missing required fields
// and unknown types are schema errors; a bad regex is not, it is kept on the
// expression and surfaces when the pattern is evaluated.
func ParsePattern(raw models.RawPattern, path string) (models.Pattern, error) {
	kind, ok := ParseKind(raw.Type)
	if !ok {
		return nil, &models.SchemaError{Path: path + ".type", Reason: fmt.Sprintf("unknown pattern type %q", raw.Type)}
	}

	switch kind {
	case models.KindMarkup:
		if raw.Content == "" {
			return nil, missing(path, "content")
		}
		return &models.MarkupPattern{Content: compileExpr(raw.Content)}, nil

	case models.KindScriptSource:
		if raw.Src == "" {
			return nil, missing(path, "src")
		}
		return &models.ScriptSourcePattern{Src: compileExpr(raw.Src)}, nil

	case models.KindLinkHref:
		if raw.Href == "" {
			return nil, missing(path, "href")
		}
		return &models.LinkHrefPattern{Href: compileExpr(raw.Href)}, nil

	case models.KindMetaTag:
		if raw.Name == "" {
			return nil, missing(path, "name")
		}
		if raw.Content == "" {
			return nil, missing(path, "content")
		}
		return &models.MetaTagPattern{Name: strings.ToLower(raw.Name), Content: compileExpr(raw.Content)}, nil

	case models.KindGlobalVariable:
		if raw.Name == "" {
			return nil, missing(path, "name")
		}
		return &models.GlobalVariablePattern{Name: raw.Name}, nil

	case models.KindCookieName:
		if raw.Name == "" {
			return nil, missing(path, "name")
		}
		return &models.CookieNamePattern{Name: compileExpr(raw.Name)}, nil

	case models.KindResponseHeader:
		if raw.Name == "" {
			return nil, missing(path, "name")
		}
		if raw.Value == "" {
			return nil, missing(path, "value")
		}
		return &models.ResponseHeaderPattern{Name: strings.ToLower(raw.Name), Value: compileExpr(raw.Value)}, nil
	}

	return nil, &models.SchemaError{Path: path + ".type", Reason: fmt.Sprintf("unhandled pattern kind %s", kind)}
}

func compileExpr(source string) models.Expr {
	re, err := CompileRegex(source)
	return models.Expr{Source: source, Re: re, Err: err}
}

func missing(path, field string) error {
	return &models.SchemaError{Path: path + "." + field, Reason: "required field is missing"}
}

// EvaluateExpr checks if target matches the expression
func EvaluateExpr(expr models.Expr, target string) (bool, error) {
	if expr.Err != nil {
		return false, expr.Err
	}
	if expr.Re == nil {
		return false, fmt.Errorf("expression %q is not compiled", expr.Source)
	}
	return expr.Re.MatchString(target)
}

// VersionFromURL extracts a three-part version (1.2.3) from a resource URL
func VersionFromURL(url string) string {
	v, _ := FindString(urlVersionPattern, url)
	return v
}

// VersionFromText extracts a two or three part version from free text such as
// a generator meta tag or a Server header
func VersionFromText(text string) string {
	v, _ := FindString(textVersionPattern, text)
	return v
}

// VersionFromProductToken extracts the version of a product token such as
// "nginx/1.18.0" or "PHP/8.2.1". Bare numbers are ignored so a Via header's
// protocol version is not mistaken for a product version.
func VersionFromProductToken(value string) string {
	m, err := productVersionPattern.FindStringMatch(value)
	if err != nil || m == nil {
		return ""
	}
	return m.GroupByNumber(1).String()
}

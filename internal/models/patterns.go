package models

import "github.com/dlclark/regexp2"

// PatternKind identifies which evidence surface a pattern is evaluated against
type PatternKind int

const (
	KindMarkup PatternKind = iota
	KindScriptSource
	KindLinkHref
	KindMetaTag
	KindGlobalVariable
	KindCookieName
	KindResponseHeader
)

// AllKinds lists every pattern kind in declaration order
var AllKinds = []PatternKind{
	KindMarkup,
	KindScriptSource,
	KindLinkHref,
	KindMetaTag,
	KindGlobalVariable,
	KindCookieName,
	KindResponseHeader,
}

// DOMKinds are the kinds observable from inside the page
var DOMKinds = []PatternKind{
	KindMarkup,
	KindScriptSource,
	KindLinkHref,
	KindMetaTag,
	KindGlobalVariable,
	KindCookieName,
}

var kindInfo = map[PatternKind]struct {
	name   string
	weight int
	label  string
}{
	KindMarkup:         {"markup", 20, "HTML content"},
	KindScriptSource:   {"scriptSource", 30, "Script tag"},
	KindLinkHref:       {"linkHref", 25, "Link tag"},
	KindMetaTag:        {"metaTag", 35, "Meta tag"},
	KindGlobalVariable: {"globalVariable", 40, "Global variable"},
	KindCookieName:     {"cookieName", 25, "Cookie"},
	KindResponseHeader: {"responseHeader", 80, "HTTP header"},
}

// String returns the canonical schema name of the kind
func (k PatternKind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return "unknown"
}

// Weight is the confidence a single matching pattern of this kind contributes
func (k PatternKind) Weight() int {
	return kindInfo[k].weight
}

// Label is the human-readable evidence label recorded when a pattern fires
func (k PatternKind) Label() string {
	return kindInfo[k].label
}

// Hit is the outcome of evaluating one pattern against evidence
type Hit struct {
	Matched bool
	// Version found alongside the match, empty when none
	Version string
}

// PatternVisitor evaluates each pattern kind. Every kind has its own method, so
// adding a kind breaks every visitor until it handles the new case.
type PatternVisitor interface {
	VisitMarkup(p *MarkupPattern) (Hit, error)
	VisitScriptSource(p *ScriptSourcePattern) (Hit, error)
	VisitLinkHref(p *LinkHrefPattern) (Hit, error)
	VisitMetaTag(p *MetaTagPattern) (Hit, error)
	VisitGlobalVariable(p *GlobalVariablePattern) (Hit, error)
	VisitCookieName(p *CookieNamePattern) (Hit, error)
	VisitResponseHeader(p *ResponseHeaderPattern) (Hit, error)
}

// Pattern is one typed rule of a technology
type Pattern interface {
	Kind() PatternKind
	Accept(v PatternVisitor) (Hit, error)
}

// Expr is a compiled signature expression. Err is set when the source failed
// to compile; such an expression never matches.
type Expr struct {
	Source string
	Re     *regexp2.Regexp
	Err    error
}

// MarkupPattern matches the serialized page markup
type MarkupPattern struct {
	Content Expr
}

// ScriptSourcePattern matches script element source URLs
type ScriptSourcePattern struct {
	Src Expr
}

// LinkHrefPattern matches link element href URLs
type LinkHrefPattern struct {
	Href Expr
}

// MetaTagPattern matches the content of meta elements with the given name
type MetaTagPattern struct {
	Name    string
	Content Expr
}

// GlobalVariablePattern tests for a named runtime global
type GlobalVariablePattern struct {
	Name string
}

// CookieNamePattern matches cookie names
type CookieNamePattern struct {
	Name Expr
}

// ResponseHeaderPattern matches the value of a response header
type ResponseHeaderPattern struct {
	// Name is stored lowercase
	Name  string
	Value Expr
}

func (p *MarkupPattern) Kind() PatternKind         { return KindMarkup }
func (p *ScriptSourcePattern) Kind() PatternKind   { return KindScriptSource }
func (p *LinkHrefPattern) Kind() PatternKind       { return KindLinkHref }
func (p *MetaTagPattern) Kind() PatternKind        { return KindMetaTag }
func (p *GlobalVariablePattern) Kind() PatternKind { return KindGlobalVariable }
func (p *CookieNamePattern) Kind() PatternKind     { return KindCookieName }
func (p *ResponseHeaderPattern) Kind() PatternKind { return KindResponseHeader }

func (p *MarkupPattern) Accept(v PatternVisitor) (Hit, error) { return v.VisitMarkup(p) }
func (p *ScriptSourcePattern) Accept(v PatternVisitor) (Hit, error) {
	return v.VisitScriptSource(p)
}
func (p *LinkHrefPattern) Accept(v PatternVisitor) (Hit, error) { return v.VisitLinkHref(p) }
func (p *MetaTagPattern) Accept(v PatternVisitor) (Hit, error)  { return v.VisitMetaTag(p) }
func (p *GlobalVariablePattern) Accept(v PatternVisitor) (Hit, error) {
	return v.VisitGlobalVariable(p)
}
func (p *CookieNamePattern) Accept(v PatternVisitor) (Hit, error) { return v.VisitCookieName(p) }
func (p *ResponseHeaderPattern) Accept(v PatternVisitor) (Hit, error) {
	return v.VisitResponseHeader(p)
}

// MetaTag represents a HTML meta tag with name and content
type MetaTag struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Global describes a runtime global that was found defined on the page
type Global struct {
	// Version holds the object's version or VERSION field when present
	Version string `json:"version,omitempty"`
}

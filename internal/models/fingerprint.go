package models

// RawCategory is a category entry of the signature document
type RawCategory struct {
	Key          string          `json:"key" yaml:"key"`
	Name         string          `json:"name" yaml:"name"`
	Technologies []RawTechnology `json:"technologies" yaml:"technologies"`
}

// RawTechnology is a technology entry of the signature document
type RawTechnology struct {
	Name     string       `json:"name" yaml:"name"`
	Patterns []RawPattern `json:"patterns" yaml:"patterns"`
}

// RawPattern is a single untyped pattern; Type selects which fields apply
type RawPattern struct {
	Type    string `json:"type" yaml:"type"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
	Src     string `json:"src,omitempty" yaml:"src,omitempty"`
	Href    string `json:"href,omitempty" yaml:"href,omitempty"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
}

// SignatureDatabase is the compiled, immutable signature registry
type SignatureDatabase struct {
	Version    string
	Categories []*Category
}

// Category groups technologies under a key
type Category struct {
	Key          string
	Name         string
	Technologies []*TechnologyRule

	byName map[string]*TechnologyRule
}

// TechnologyRule holds every pattern known for one technology
type TechnologyRule struct {
	Name     string
	Category string
	Patterns []Pattern
}

// NewCategory creates an empty category
func NewCategory(key, name string) *Category {
	return &Category{
		Key:    key,
		Name:   name,
		byName: make(map[string]*TechnologyRule),
	}
}

// Add appends a technology, keeping insertion order. A repeated name extends
// the existing rule's patterns.
func (c *Category) Add(rule *TechnologyRule) {
	if existing, ok := c.byName[rule.Name]; ok {
		existing.Patterns = append(existing.Patterns, rule.Patterns...)
		return
	}
	c.byName[rule.Name] = rule
	c.Technologies = append(c.Technologies, rule)
}

// Technology returns the rule registered under name
func (c *Category) Technology(name string) (*TechnologyRule, bool) {
	rule, ok := c.byName[name]
	return rule, ok
}

// Each calls fn for every technology in category order
func (db *SignatureDatabase) Each(fn func(rule *TechnologyRule)) {
	for _, cat := range db.Categories {
		for _, rule := range cat.Technologies {
			fn(rule)
		}
	}
}

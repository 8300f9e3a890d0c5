package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mamamialezatoz/go-techstack/internal/models"
)

// Load compiles a JSON signature document into an immutable database
func Load(raw []byte) (*models.SignatureDatabase, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &models.SchemaError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return compileDocument(doc)
}

// LoadYAML compiles a YAML signature document
func LoadYAML(raw []byte) (*models.SignatureDatabase, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &models.SchemaError{Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}
	return compileDocument(doc)
}

// LoadFile reads and compiles a signature document, choosing the decoder by
// file extension (.yaml/.yml, anything else is JSON)
func LoadFile(path string) (*models.SignatureDatabase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signatures: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(data)
	default:
		return Load(data)
	}
}

func compileDocument(doc map[string]interface{}) (*models.SignatureDatabase, error) {
	if doc == nil {
		return nil, &models.SchemaError{Reason: "document is empty"}
	}

	db := &models.SignatureDatabase{}
	if v, ok := doc["version"]; ok && v != nil {
		db.Version = fmt.Sprintf("%v", v)
	}

	rawCategories, err := normalizeCategories(doc["categories"])
	if err != nil {
		return nil, err
	}

	for i, rawCat := range rawCategories {
		path := fmt.Sprintf("categories[%d]", i)
		if rawCat.Key == "" {
			return nil, missing(path, "key")
		}
		if rawCat.Technologies == nil {
			return nil, missing(path, "technologies")
		}

		name := rawCat.Name
		if name == "" {
			name = rawCat.Key
		}
		category := models.NewCategory(rawCat.Key, name)

		for j, rawTech := range rawCat.Technologies {
			techPath := fmt.Sprintf("%s.technologies[%d]", path, j)
			if rawTech.Name == "" {
				return nil, missing(techPath, "name")
			}
			if rawTech.Patterns == nil {
				return nil, missing(techPath, "patterns")
			}

			rule := &models.TechnologyRule{
				Name:     rawTech.Name,
				Category: rawCat.Key,
				Patterns: make([]models.Pattern, 0, len(rawTech.Patterns)),
			}
			for k, rawPattern := range rawTech.Patterns {
				pattern, err := ParsePattern(rawPattern, fmt.Sprintf("%s.patterns[%d]", techPath, k))
				if err != nil {
					return nil, err
				}
				rule.Patterns = append(rule.Patterns, pattern)
			}
			category.Add(rule)
		}

		db.Categories = append(db.Categories, category)
	}

	return db, nil
}

// normalizeCategories accepts the canonical array form and the legacy object
// form ({"cms": {"technologies": {"WordPress": {"patterns": [...]}}}})
func normalizeCategories(data interface{}) ([]models.RawCategory, error) {
	switch v := data.(type) {
	case nil:
		return nil, missing("", "categories")
	case []interface{}:
		out := make([]models.RawCategory, 0, len(v))
		for i, item := range v {
			cat, err := toRawCategory(item, "", fmt.Sprintf("categories[%d]", i))
			if err != nil {
				return nil, err
			}
			out = append(out, cat)
		}
		return out, nil
	case map[string]interface{}:
		keys := sortedKeys(v)
		out := make([]models.RawCategory, 0, len(keys))
		for _, key := range keys {
			cat, err := toRawCategory(v[key], key, "categories."+key)
			if err != nil {
				return nil, err
			}
			out = append(out, cat)
		}
		return out, nil
	}
	return nil, &models.SchemaError{Path: "categories", Reason: "must be an array or an object"}
}

func toRawCategory(item interface{}, key, path string) (models.RawCategory, error) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return models.RawCategory{}, &models.SchemaError{Path: path, Reason: "must be an object"}
	}
	if key != "" {
		if _, ok := m["key"]; !ok {
			m["key"] = key
		}
	}

	// Legacy documents key technologies by name
	if techs, ok := m["technologies"].(map[string]interface{}); ok {
		list := make([]interface{}, 0, len(techs))
		for _, name := range sortedKeys(techs) {
			tech, ok := techs[name].(map[string]interface{})
			if !ok {
				return models.RawCategory{}, &models.SchemaError{Path: path + ".technologies." + name, Reason: "must be an object"}
			}
			if _, ok := tech["name"]; !ok {
				tech["name"] = name
			}
			list = append(list, tech)
		}
		m["technologies"] = list
	}

	b, err := json.Marshal(m)
	if err != nil {
		return models.RawCategory{}, &models.SchemaError{Path: path, Reason: err.Error()}
	}
	var cat models.RawCategory
	if err := json.Unmarshal(b, &cat); err != nil {
		return models.RawCategory{}, &models.SchemaError{Path: path, Reason: err.Error()}
	}
	return cat, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GlobalNames returns the sorted set of runtime globals referenced by the
// database, which is what the page sandbox has to look up
func GlobalNames(db *models.SignatureDatabase) []string {
	seen := make(map[string]struct{})
	db.Each(func(rule *models.TechnologyRule) {
		for _, p := range rule.Patterns {
			if g, ok := p.(*models.GlobalVariablePattern); ok {
				seen[g.Name] = struct{}{}
			}
		}
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats summarises a database
type Stats struct {
	Categories   int
	Technologies int
	Patterns     map[models.PatternKind]int
	// BrokenPatterns counts patterns whose expression failed to compile
	BrokenPatterns int
}

// Collect computes statistics for db
func Collect(db *models.SignatureDatabase) Stats {
	stats := Stats{
		Categories: len(db.Categories),
		Patterns:   make(map[models.PatternKind]int),
	}
	db.Each(func(rule *models.TechnologyRule) {
		stats.Technologies++
		for _, p := range rule.Patterns {
			stats.Patterns[p.Kind()]++
			if exprError(p) != nil {
				stats.BrokenPatterns++
			}
		}
	})
	return stats
}

func exprError(p models.Pattern) error {
	switch v := p.(type) {
	case *models.MarkupPattern:
		return v.Content.Err
	case *models.ScriptSourcePattern:
		return v.Src.Err
	case *models.LinkHrefPattern:
		return v.Href.Err
	case *models.MetaTagPattern:
		return v.Content.Err
	case *models.CookieNamePattern:
		return v.Name.Err
	case *models.ResponseHeaderPattern:
		return v.Value.Err
	}
	return nil
}

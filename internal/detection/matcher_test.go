package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

const testSignatures = `{
  "version": "test",
  "categories": [
    {
      "key": "cms",
      "name": "CMS",
      "technologies": [
        {"name": "WordPress", "patterns": [
          {"type": "meta", "name": "generator", "content": "/WordPress/i"},
          {"type": "script", "src": "/wp-content/i"}
        ]},
        {"name": "Shopify", "patterns": [
          {"type": "meta", "name": "generator", "content": "Shopify"}
        ]}
      ]
    },
    {
      "key": "frameworks",
      "name": "Frameworks",
      "technologies": [
        {"name": "React", "patterns": [
          {"type": "global", "name": "React"},
          {"type": "html", "content": "data-reactroot"},
          {"type": "script", "src": "react(?:-dom)?(?:\\.min)?\\.js"}
        ]},
        {"name": "Everything", "patterns": [
          {"type": "html", "content": "everything"},
          {"type": "script", "src": "everything"},
          {"type": "link", "href": "everything"},
          {"type": "meta", "name": "x", "content": "everything"},
          {"type": "global", "name": "Everything"},
          {"type": "cookie", "name": "everything"}
        ]}
      ]
    },
    {
      "key": "ecommerce",
      "name": "E-commerce",
      "technologies": [
        {"name": "Shopify", "patterns": [
          {"type": "script", "src": "cdn\\.shopify\\.com"}
        ]}
      ]
    },
    {
      "key": "servers",
      "name": "Web Servers",
      "technologies": [
        {"name": "Nginx", "patterns": [{"type": "header", "name": "Server", "value": "nginx"}]}
      ]
    },
    {
      "key": "languages",
      "name": "Languages",
      "technologies": [
        {"name": "PHP", "patterns": [
          {"type": "header", "name": "x-powered-by", "value": "php"},
          {"type": "cookie", "name": "phpsessid"}
        ]}
      ]
    }
  ]
}`

func loadTestDB(t *testing.T) *models.SignatureDatabase {
	t.Helper()
	db, err := parser.Load([]byte(testSignatures))
	require.NoError(t, err)
	return db
}

func find(detections []models.Detection, name string) (models.Detection, bool) {
	for _, d := range detections {
		if d.Name == name {
			return d, true
		}
	}
	return models.Detection{}, false
}

func TestMatcher_WordPressScenario(t *testing.T) {
	db := loadTestDB(t)
	ev := models.Evidence{
		MetaTags: []models.MetaTag{{Name: "generator", Content: "WordPress 6.4"}},
		ScriptSources: []string{
			"https://example.com/wp-content/themes/a/app.js",
			"https://example.com/wp-content/plugins/b/b.js",
		},
	}

	detections := NewMatcher().Score(db, ev)
	wp, ok := find(detections, "WordPress")
	require.True(t, ok)

	assert.Equal(t, 65, wp.Confidence)
	assert.Equal(t, []string{"Meta tag", "Script tag"}, wp.EvidenceLabels)
	assert.Equal(t, "6.4", wp.Version)
	assert.Equal(t, "cms", wp.Category)
}

func TestMatcher_OmitsUnmatched(t *testing.T) {
	db := loadTestDB(t)
	detections := NewMatcher().Score(db, models.Evidence{Markup: "<html></html>"})
	assert.Empty(t, detections)
}

func TestMatcher_CapsAtHundred(t *testing.T) {
	db := loadTestDB(t)
	ev := models.Evidence{
		Markup:        "<div>everything</div>",
		ScriptSources: []string{"/everything.js"},
		LinkHrefs:     []string{"/everything.css"},
		MetaTags:      []models.MetaTag{{Name: "X", Content: "everything"}},
		Globals:       map[string]models.Global{"Everything": {}},
		Cookie:        "everything=1",
	}

	d, ok := find(NewMatcher().Score(db, ev), "Everything")
	require.True(t, ok)
	assert.Equal(t, 100, d.Confidence)
	assert.Len(t, d.EvidenceLabels, 6)
}

func TestMatcher_Monotonic(t *testing.T) {
	db := loadTestDB(t)
	m := NewMatcher()

	ev := models.Evidence{}
	steps := []func(*models.Evidence){
		func(e *models.Evidence) { e.Markup = "everything" },
		func(e *models.Evidence) { e.ScriptSources = []string{"everything.js"} },
		func(e *models.Evidence) { e.LinkHrefs = []string{"everything.css"} },
		func(e *models.Evidence) { e.MetaTags = []models.MetaTag{{Name: "x", Content: "everything"}} },
		func(e *models.Evidence) { e.Globals = map[string]models.Global{"Everything": {}} },
		func(e *models.Evidence) { e.Cookie = "everything=yes" },
	}

	previous := 0
	for i, step := range steps {
		step(&ev)
		d, ok := find(m.Score(db, ev), "Everything")
		require.True(t, ok, "step %d", i)
		assert.GreaterOrEqual(t, d.Confidence, previous, "step %d", i)
		assert.LessOrEqual(t, d.Confidence, MaxConfidence)
		previous = d.Confidence
	}
}

func TestMatcher_KindsFilter(t *testing.T) {
	db := loadTestDB(t)
	ev := models.Evidence{
		Headers: map[string]string{"server": "nginx/1.18.0", "x-powered-by": "PHP/8.2.1"},
		Cookie:  "PHPSESSID=abc",
	}
	m := NewMatcher()

	headerOnly := m.Score(db, ev, models.KindResponseHeader)
	nginx, ok := find(headerOnly, "Nginx")
	require.True(t, ok)
	assert.Equal(t, 80, nginx.Confidence)
	assert.Equal(t, "1.18.0", nginx.Version)

	php, ok := find(headerOnly, "PHP")
	require.True(t, ok)
	assert.Equal(t, 80, php.Confidence)
	assert.Equal(t, "8.2.1", php.Version)

	domOnly := m.Score(db, ev, models.DOMKinds...)
	_, ok = find(domOnly, "Nginx")
	assert.False(t, ok)
	php, ok = find(domOnly, "PHP")
	require.True(t, ok)
	assert.Equal(t, 25, php.Confidence)
	assert.Equal(t, []string{"Cookie"}, php.EvidenceLabels)
}

func TestMatcher_SameNameAcrossCategories(t *testing.T) {
	db := loadTestDB(t)
	ev := models.Evidence{
		MetaTags:      []models.MetaTag{{Name: "generator", Content: "Shopify"}},
		ScriptSources: []string{"https://cdn.shopify.com/s/app.js"},
	}

	detections := NewMatcher().Score(db, ev)
	count := 0
	for _, d := range detections {
		if d.Name == "Shopify" {
			count++
			assert.Equal(t, 35, d.Confidence)
			assert.Equal(t, "cms", d.Category)
			assert.ElementsMatch(t, []string{"Meta tag", "Script tag"}, d.EvidenceLabels)
		}
	}
	assert.Equal(t, 1, count)
}

func TestMatcher_GlobalVersion(t *testing.T) {
	db := loadTestDB(t)
	ev := models.Evidence{Globals: map[string]models.Global{"React": {Version: "18.2.0"}}}

	react, ok := find(NewMatcher().Score(db, ev), "React")
	require.True(t, ok)
	assert.Equal(t, 40, react.Confidence)
	assert.Equal(t, "18.2.0", react.Version)
	assert.Equal(t, []string{"Global variable"}, react.EvidenceLabels)
}

func TestMatcher_InvalidRegexIsNonMatching(t *testing.T) {
	raw := `{"categories": [{"key": "x", "technologies": [
	  {"name": "Broken", "patterns": [
	    {"type": "html", "content": "(unclosed"},
	    {"type": "global", "name": "Broken"}
	  ]}
	]}]}`
	db, err := parser.Load([]byte(raw))
	require.NoError(t, err)

	var failures []*models.PatternEvaluationError
	m := &Matcher{OnError: func(err *models.PatternEvaluationError) {
		failures = append(failures, err)
	}}

	detections := m.Score(db, models.Evidence{
		Markup:  "(unclosed",
		Globals: map[string]models.Global{"Broken": {}},
	})

	d, ok := find(detections, "Broken")
	require.True(t, ok)
	assert.Equal(t, 40, d.Confidence)
	require.Len(t, failures, 1)
	assert.Equal(t, "Broken", failures[0].Technology)
	assert.Equal(t, models.KindMarkup, failures[0].Kind)
}

func TestCookieNames(t *testing.T) {
	assert.Equal(t, []string{"a", "PHPSESSID", "flag"}, CookieNames("a=1; PHPSESSID=abc ;flag; "))
	assert.Empty(t, CookieNames(""))
	assert.Equal(t, "a=1; b=2", CookiesFromSetCookie([]string{"a=1; Path=/", "b=2; HttpOnly"}))
}

func TestNormalizeHeaders(t *testing.T) {
	headers := NormalizeHeaders(map[string][]string{
		"Server":       {"nginx"},
		"X-Cache":      {"HIT", "MISS"},
		"Content-Type": {"text/html"},
	})
	assert.Equal(t, "nginx", headers["server"])
	assert.Equal(t, "HIT, MISS", headers["x-cache"])
	assert.Equal(t, "text/html", headers["content-type"])
}

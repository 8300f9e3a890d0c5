package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-techstack/internal/models"
)

func TestLoad_ArrayForm(t *testing.T) {
	raw := `{
	  "version": "2024.1",
	  "categories": [
	    {"key": "cms", "name": "CMS", "technologies": [
	      {"name": "WordPress", "patterns": [
	        {"type": "meta", "name": "Generator", "content": "/WordPress/i"},
	        {"type": "script", "src": "wp-(?:content|includes)"}
	      ]}
	    ]},
	    {"key": "servers", "technologies": [
	      {"name": "Nginx", "patterns": [{"type": "header", "name": "Server", "value": "nginx"}]}
	    ]}
	  ]
	}`

	db, err := Load([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "2024.1", db.Version)
	require.Len(t, db.Categories, 2)
	assert.Equal(t, "cms", db.Categories[0].Key)
	assert.Equal(t, "servers", db.Categories[1].Name, "name defaults to key")

	wp, ok := db.Categories[0].Technology("WordPress")
	require.True(t, ok)
	require.Len(t, wp.Patterns, 2)

	meta, ok := wp.Patterns[0].(*models.MetaTagPattern)
	require.True(t, ok)
	assert.Equal(t, "generator", meta.Name)
	assert.Equal(t, "/WordPress/i", meta.Content.Source)
	assert.NoError(t, meta.Content.Err)

	nginx, _ := db.Categories[1].Technology("Nginx")
	header := nginx.Patterns[0].(*models.ResponseHeaderPattern)
	assert.Equal(t, "server", header.Name)
}

func TestLoad_LegacyObjectForm(t *testing.T) {
	raw := `{"categories": {
	  "servers": {"name": "Web Servers", "technologies": {
	    "Nginx": {"patterns": [{"type": "header", "name": "server", "value": "nginx"}]},
	    "Apache": {"patterns": [{"type": "header", "name": "server", "value": "apache"}]}
	  }},
	  "cms": {"name": "CMS", "technologies": {
	    "Drupal": {"patterns": [{"type": "global", "name": "Drupal"}]}
	  }}
	}}`

	db, err := Load([]byte(raw))
	require.NoError(t, err)
	require.Len(t, db.Categories, 2)

	assert.Equal(t, "cms", db.Categories[0].Key)
	assert.Equal(t, "servers", db.Categories[1].Key)
	assert.Equal(t, "Apache", db.Categories[1].Technologies[0].Name)
	assert.Equal(t, "Nginx", db.Categories[1].Technologies[1].Name)
	assert.Equal(t, "servers", db.Categories[1].Technologies[1].Category)
}

func TestLoad_SchemaErrors(t *testing.T) {
	cases := map[string]struct {
		raw  string
		path string
	}{
		"category without key": {
			raw:  `{"categories": [{"technologies": []}]}`,
			path: "categories[0].key",
		},
		"category without technologies": {
			raw:  `{"categories": [{"key": "cms"}]}`,
			path: "categories[0].technologies",
		},
		"technology without name": {
			raw:  `{"categories": [{"key": "cms", "technologies": [{"patterns": []}]}]}`,
			path: "categories[0].technologies[0].name",
		},
		"technology without patterns": {
			raw:  `{"categories": [{"key": "cms", "technologies": [{"name": "X"}]}]}`,
			path: "categories[0].technologies[0].patterns",
		},
		"unknown pattern type": {
			raw:  `{"categories": [{"key": "cms", "technologies": [{"name": "X", "patterns": [{"type": "dns", "value": "x"}]}]}]}`,
			path: "categories[0].technologies[0].patterns[0].type",
		},
		"header without value": {
			raw:  `{"categories": [{"key": "cms", "technologies": [{"name": "X", "patterns": [{"type": "header", "name": "server"}]}]}]}`,
			path: "categories[0].technologies[0].patterns[0].value",
		},
		"meta without name": {
			raw:  `{"categories": [{"key": "cms", "technologies": [{"name": "X", "patterns": [{"type": "meta", "content": "x"}]}]}]}`,
			path: "categories[0].technologies[0].patterns[0].name",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(tc.raw))
			require.Error(t, err)

			var schemaErr *models.SchemaError
			require.True(t, errors.As(err, &schemaErr), "got %T", err)
			assert.Equal(t, tc.path, schemaErr.Path)
		})
	}

	_, err := Load([]byte(`not json`))
	var schemaErr *models.SchemaError
	assert.True(t, errors.As(err, &schemaErr))

	_, err = Load([]byte(`{"version": "1"}`))
	assert.True(t, errors.As(err, &schemaErr))
}

func TestLoad_InvalidRegexKept(t *testing.T) {
	raw := `{"categories": [{"key": "x", "technologies": [
	  {"name": "Broken", "patterns": [{"type": "html", "content": "[unterminated"}]}
	]}]}`

	db, err := Load([]byte(raw))
	require.NoError(t, err)

	p := db.Categories[0].Technologies[0].Patterns[0].(*models.MarkupPattern)
	assert.Error(t, p.Content.Err)

	matched, err := EvaluateExpr(p.Content, "[unterminated")
	assert.False(t, matched)
	assert.Error(t, err)

	assert.Equal(t, 1, Collect(db).BrokenPatterns)
}

func TestLoadFile_YAML(t *testing.T) {
	doc := `
version: "y1"
categories:
  - key: cdn
    name: CDN
    technologies:
      - name: Cloudflare
        patterns:
          - type: header
            name: cf-ray
            value: ".+"
          - type: header
            name: server
            value: cloudflare
`
	path := filepath.Join(t.TempDir(), "signatures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	db, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "y1", db.Version)

	stats := Collect(db)
	assert.Equal(t, 1, stats.Categories)
	assert.Equal(t, 1, stats.Technologies)
	assert.Equal(t, 2, stats.Patterns[models.KindResponseHeader])
}

func TestDuplicateTechnologyExtendsPatterns(t *testing.T) {
	raw := `{"categories": [{"key": "js", "technologies": [
	  {"name": "jQuery", "patterns": [{"type": "global", "name": "jQuery"}]},
	  {"name": "jQuery", "patterns": [{"type": "script", "src": "jquery"}]}
	]}]}`

	db, err := Load([]byte(raw))
	require.NoError(t, err)
	require.Len(t, db.Categories[0].Technologies, 1)
	assert.Len(t, db.Categories[0].Technologies[0].Patterns, 2)
}

func TestGlobalNames(t *testing.T) {
	raw := `{"categories": [
	  {"key": "a", "technologies": [{"name": "Vue.js", "patterns": [{"type": "global", "name": "Vue"}]}]},
	  {"key": "b", "technologies": [
	    {"name": "jQuery", "patterns": [{"type": "global", "name": "jQuery"}, {"type": "global", "name": "$"}]},
	    {"name": "Vue 2", "patterns": [{"type": "global", "name": "Vue"}]}
	  ]}
	]}`

	db, err := Load([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"$", "Vue", "jQuery"}, GlobalNames(db))
}

func TestCompileRegex(t *testing.T) {
	re, err := CompileRegex("/wordpress/i")
	require.NoError(t, err)
	ok, err := re.MatchString("Proudly powered by WordPress")
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := CompileRegex("/wordpress/i")
	require.NoError(t, err)
	assert.Same(t, re, again, "compiled expressions are cached")

	// a literal without flags is unwrapped as well
	re, err = CompileRegex("/wp-content/")
	require.NoError(t, err)
	ok, _ = re.MatchString("https://x.org/wp-content/a.js")
	assert.True(t, ok)

	_, err = CompileRegex("(")
	assert.Error(t, err)
}

func TestNormalizePattern(t *testing.T) {
	expr, opts := normalizePattern("/^generator$/m")
	assert.Equal(t, "^generator$", expr)
	assert.Equal(t, regexp2.RegexOptions(regexp2.ECMAScript|regexp2.IgnoreCase|regexp2.Multiline), opts)

	expr, opts = normalizePattern("wp-content")
	assert.Equal(t, "wp-content", expr)
	assert.Equal(t, regexp2.RegexOptions(regexp2.ECMAScript|regexp2.IgnoreCase), opts)

	// a trailing slash that is not a literal delimiter is kept
	expr, _ = normalizePattern("/wp-content/themes")
	assert.Equal(t, "/wp-content/themes", expr)

	re, err := CompileRegex("/^x-powered-by: php$/m")
	require.NoError(t, err)
	ok, err := re.MatchString("server: nginx\nX-Powered-By: PHP")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVersionExtraction(t *testing.T) {
	assert.Equal(t, "3.6.0", VersionFromURL("https://code.jquery.com/jquery-3.6.0.min.js"))
	assert.Equal(t, "", VersionFromURL("https://cdn.example.com/lib-2.1.js"))
	assert.Equal(t, "6.4", VersionFromText("WordPress 6.4"))
	assert.Equal(t, "6.4.2", VersionFromText("WordPress 6.4.2"))
	assert.Equal(t, "1.18.0", VersionFromProductToken("nginx/1.18.0 (Ubuntu)"))
	assert.Equal(t, "", VersionFromProductToken("1.1 abc.cloudfront.net (CloudFront)"))
}

func TestParseMarkup(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head>
<title> Example Shop </title>
<meta name="generator" content="WordPress 6.4">
<meta property="og:site_name" content="Example">
<link rel="stylesheet" href="/wp-content/themes/x/style.css">
<script src="https://code.jquery.com/jquery-3.6.0.min.js"></script>
<script>
  var dataLayer = [];
  window.Shopify = {};
  Shopify.version = "2.0.1";
  let notAGlobalUse = dataLayer.length;
</script>
</head><body><div id="app">hi</div></body></html>`

	m := ParseMarkup([]byte(page))
	assert.Equal(t, "Example Shop", m.Title)
	assert.Equal(t, []string{"https://code.jquery.com/jquery-3.6.0.min.js"}, m.ScriptSources)
	assert.Equal(t, []string{"/wp-content/themes/x/style.css"}, m.LinkHrefs)
	assert.Equal(t, []models.MetaTag{
		{Name: "generator", Content: "WordPress 6.4"},
		{Name: "og:site_name", Content: "Example"},
	}, m.MetaTags)
	require.Len(t, m.InlineScripts, 1)

	globals := ExtractGlobals(m.InlineScripts)
	assert.Contains(t, globals, "dataLayer")
	assert.Contains(t, globals, "notAGlobalUse")
	assert.Equal(t, "2.0.1", globals["Shopify"].Version)
}

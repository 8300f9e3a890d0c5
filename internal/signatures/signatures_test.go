package signatures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-techstack/internal/detection"
	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

func TestDefault_Compiles(t *testing.T) {
	db, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", db.Version)
	stats := parser.Collect(db)
	assert.Equal(t, 11, stats.Categories)
	assert.Equal(t, 0, stats.BrokenPatterns)

	keys := make([]string, 0, len(db.Categories))
	for _, c := range db.Categories {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{
		"cms", "frameworks", "analytics", "servers", "languages", "ecommerce",
		"cdn", "payment", "marketing", "css", "hosting",
	}, keys)
}

func TestDefault_DetectsCommonStacks(t *testing.T) {
	db, err := Default()
	require.NoError(t, err)

	ev := models.Evidence{
		MetaTags:      []models.MetaTag{{Name: "generator", Content: "WordPress 6.4.2"}},
		ScriptSources: []string{"https://example.com/wp-includes/js/jquery/jquery-3.7.1.min.js"},
		Globals:       map[string]models.Global{"jQuery": {}},
		Headers: map[string]string{
			"server": "cloudflare",
			"cf-ray": "8a1b2c3d4e5f-AMS",
		},
	}

	detections := detection.NewMatcher().Score(db, ev)
	byName := make(map[string]models.Detection)
	for _, d := range detections {
		byName[d.Name] = d
	}

	require.Contains(t, byName, "WordPress")
	assert.Equal(t, "6.4.2", byName["WordPress"].Version)
	require.Contains(t, byName, "jQuery")
	assert.Equal(t, "3.7.1", byName["jQuery"].Version)
	require.Contains(t, byName, "Cloudflare")
	assert.Equal(t, 100, byName["Cloudflare"].Confidence)
	assert.NotContains(t, byName, "Nginx")
}

func TestRaw_IsCopy(t *testing.T) {
	a := Raw()
	a[0] = 'x'
	assert.NotEqual(t, a[0], Raw()[0])
}

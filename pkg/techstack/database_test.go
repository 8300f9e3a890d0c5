package techstack_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-techstack/pkg/techstack"
)

const shopSignatures = `
version: shop-1
categories:
  - key: ecommerce
    name: E-commerce
    technologies:
      - name: Shopify
        patterns:
          - type: script
            src: cdn\.shopify\.com
          - type: header
            name: x-shopid
            value: ".+"
`

func TestWithDatabase_SharedAcrossClients(t *testing.T) {
	db, err := techstack.LoadDatabase([]byte(shopSignatures))
	require.NoError(t, err)
	assert.Equal(t, "shop-1", db.Version)

	page := techstack.Page{
		URL:     "https://shop.example.com/",
		Body:    []byte(`<html><script src="https://cdn.shopify.com/s/app.js"></script></html>`),
		Headers: map[string][]string{"X-ShopId": {"42"}},
	}

	full, err := techstack.New(techstack.WithDatabase(db))
	require.NoError(t, err)
	noHeaders, err := techstack.New(techstack.WithDatabase(db), techstack.WithoutHeaderDetection())
	require.NoError(t, err)
	assert.Same(t, full.Database(), noHeaders.Database())

	res := full.Analyze(page)
	require.Len(t, res.Technologies, 1)
	assert.Equal(t, 80, res.Technologies[0].Confidence)

	res = noHeaders.Analyze(page)
	require.Len(t, res.Technologies, 1)
	assert.Equal(t, 30, res.Technologies[0].Confidence)
}

func TestLoadDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shopSignatures), 0644))

	db, err := techstack.LoadDatabaseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "shop-1", db.Version)

	_, err = techstack.LoadDatabase([]byte(`{"categories": [{"key": "x"}]}`))
	assert.Error(t, err)

	def, err := techstack.DefaultDatabase()
	require.NoError(t, err)
	assert.NotEmpty(t, def.Categories)
}

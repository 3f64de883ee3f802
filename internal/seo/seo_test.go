package seo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/geostudio-web/internal/content"
	"finitefield.org/geostudio-web/internal/mapwidget"
)

func TestBuildEmitsOrganizationBusinessAndWebsite(t *testing.T) {
	t.Parallel()

	site, err := content.Default()
	require.NoError(t, err)

	m := Build(site, "https://geostudio.example/some/path?q=1", mapwidget.DefaultConfig().Center)
	require.Equal(t, "https://geostudio.example/", m.Canonical)
	require.Equal(t, m.Canonical, m.OG.URL)
	require.Len(t, m.JSONLD, 3)

	var biz map[string]any
	require.NoError(t, json.Unmarshal([]byte(m.JSONLD[1]), &biz))
	require.Equal(t, "LocalBusiness", biz["@type"])
	geo := biz["geo"].(map[string]any)
	require.InDelta(t, -0.397316, geo["latitude"].(float64), 1e-9)
	require.Equal(t, "+254 700 000 000", biz["telephone"])
}

func TestBuildWithoutBaseURL(t *testing.T) {
	t.Parallel()

	site, err := content.Default()
	require.NoError(t, err)

	m := Build(site, "not a url", mapwidget.LatLng{})
	require.Empty(t, m.Canonical)

	var org map[string]any
	require.NoError(t, json.Unmarshal([]byte(m.JSONLD[0]), &org))
	_, hasURL := org["url"]
	require.False(t, hasURL)
}

package seo

import (
	"html/template"
	"net/url"
	"strings"

	"finitefield.org/geostudio-web/internal/content"
	"finitefield.org/geostudio-web/internal/mapwidget"
)

type OpenGraph struct {
	Title       string
	Description string
	URL         string
	Type        string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	OG          OpenGraph
	JSONLD      []template.JS
}

// Build assembles document metadata for the site. baseURL may be empty, in
// which case canonical and url fields are omitted.
func Build(site *content.Site, baseURL string, office mapwidget.LatLng) Meta {
	canonical := canonicalURL(baseURL)
	m := Meta{
		Title:       site.SEO.Title,
		Description: site.SEO.Description,
		Canonical:   canonical,
		OG: OpenGraph{
			Title:       site.SEO.Title,
			Description: site.SEO.Description,
			URL:         canonical,
			Type:        "website",
		},
	}
	if m.Title == "" {
		m.Title = site.Brand.Name
	}
	if m.OG.Title == "" {
		m.OG.Title = m.Title
	}

	org := Organization(site.Brand.Name, canonical, site.Contact.Email)
	biz := LocalBusiness(site.Brand.Name, canonical, site.Contact.Phone, Place{
		Locality: site.SEO.Locality,
		Country:  site.SEO.Country,
		Lat:      office.Lat,
		Lng:      office.Lng,
	})
	web := WebSite(site.Brand.Name, canonical)
	for _, v := range []map[string]any{org, biz, web} {
		if s := JSON(v); s != "" {
			m.JSONLD = append(m.JSONLD, template.JS(s))
		}
	}
	return m
}

func canonicalURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	u.Path = "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

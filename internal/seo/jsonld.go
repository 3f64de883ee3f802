package seo

import (
	"encoding/json"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Organization returns a minimal Organization schema.
func Organization(name, url, email string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if email != "" {
		m["email"] = email
	}
	return m
}

// Place is a postal locality with coordinates.
type Place struct {
	Locality string
	Country  string
	Lat      float64
	Lng      float64
}

// LocalBusiness returns a schema for a business with a physical office.
func LocalBusiness(name, url, phone string, p Place) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "LocalBusiness",
		"name":     name,
		"geo": map[string]any{
			"@type":     "GeoCoordinates",
			"latitude":  p.Lat,
			"longitude": p.Lng,
		},
	}
	if p.Locality != "" || p.Country != "" {
		addr := map[string]any{"@type": "PostalAddress"}
		if p.Locality != "" {
			addr["addressLocality"] = p.Locality
		}
		if p.Country != "" {
			addr["addressCountry"] = p.Country
		}
		m["address"] = addr
	}
	if url != "" {
		m["url"] = url
	}
	if phone != "" {
		m["telephone"] = phone
	}
	return m
}

// WebSite returns a minimal WebSite schema.
func WebSite(name, url string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	return m
}

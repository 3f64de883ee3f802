package pages

import (
	"errors"
	"fmt"

	"github.com/a-h/templ"
)

// ID identifies one of the site's content blocks.
type ID string

const (
	Home        ID = "home"
	Services    ID = "services"
	CaseStudies ID = "case-studies"
	Stack       ID = "stack"
	Team        ID = "team"
	Contact     ID = "contact"
)

// Default is the page shown on first load and for unrecognised identifiers.
const Default = Home

var known = []ID{Home, Services, CaseStudies, Stack, Team, Contact}

// ErrIncomplete indicates a registry was built without a factory for every known page.
var ErrIncomplete = errors.New("pages: registry incomplete")

// All returns the closed set of page identifiers in declaration order.
func All() []ID {
	out := make([]ID, len(known))
	copy(out, known)
	return out
}

// Known reports whether id belongs to the closed identifier set.
func (id ID) Known() bool {
	for _, k := range known {
		if k == id {
			return true
		}
	}
	return false
}

func (id ID) String() string { return string(id) }

// Block is a renderable content block for a single page.
type Block interface {
	templ.Component
	Page() ID
}

// Factory constructs a fresh block instance.
type Factory func() Block

// Registry maps page identifiers to block factories. Lookups are total: anything
// outside the closed set resolves to the Default page.
type Registry struct {
	factories map[ID]Factory
}

// NewRegistry validates that every known page has a factory.
func NewRegistry(factories map[ID]Factory) (*Registry, error) {
	r := &Registry{factories: make(map[ID]Factory, len(known))}
	for _, id := range known {
		f, ok := factories[id]
		if !ok || f == nil {
			return nil, fmt.Errorf("%w: missing factory for %q", ErrIncomplete, id)
		}
		r.factories[id] = f
	}
	for id := range factories {
		if !id.Known() {
			return nil, fmt.Errorf("%w: unexpected page %q", ErrIncomplete, id)
		}
	}
	return r, nil
}

// Canonical returns the page that id resolves to.
func (r *Registry) Canonical(id string) ID {
	if candidate := ID(id); candidate.Known() {
		return candidate
	}
	return Default
}

// Resolve returns a new block for id, falling back to the Default page.
func (r *Registry) Resolve(id string) Block {
	return r.factories[r.Canonical(id)]()
}

package blocks

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/geostudio-web/internal/content"
	"finitefield.org/geostudio-web/internal/mapwidget"
	"finitefield.org/geostudio-web/internal/pages"
	"finitefield.org/geostudio-web/internal/views"
)

// Deps are the collaborators every block is built from.
type Deps struct {
	Views *views.Renderer
	Site  *content.Site
	Map   mapwidget.Config
	// WidgetOptions are passed to each contact block's map widget.
	WidgetOptions []mapwidget.Option
}

// ContactData is the view model of the contact block.
type ContactData struct {
	Contact content.Contact
	Anchor  string
}

// TemplateName returns the template that renders page id.
func TemplateName(id pages.ID) string { return "page:" + string(id) }

// Registry builds the page registry from d.
func Registry(d Deps) (*pages.Registry, error) {
	if d.Views == nil || d.Site == nil {
		return nil, errors.New("blocks: views and site are required")
	}
	if err := d.Map.Validate(); err != nil {
		return nil, err
	}
	for _, id := range pages.All() {
		if !d.Views.Has(TemplateName(id)) {
			return nil, fmt.Errorf("blocks: no template for page %q", id)
		}
	}

	static := func(id pages.ID, data any) pages.Factory {
		return func() pages.Block {
			return &block{id: id, view: d.Views.Component(TemplateName(id), data)}
		}
	}
	return pages.NewRegistry(map[pages.ID]pages.Factory{
		pages.Home:        static(pages.Home, d.Site.Home),
		pages.Services:    static(pages.Services, d.Site.Services),
		pages.CaseStudies: static(pages.CaseStudies, d.Site.CaseStudies),
		pages.Stack:       static(pages.Stack, d.Site.Stack),
		pages.Team:        static(pages.Team, d.Site.Team),
		pages.Contact: func() pages.Block {
			data := ContactData{Contact: d.Site.Contact, Anchor: d.Map.Anchor}
			return &ContactBlock{
				block:  block{id: pages.Contact, view: d.Views.Component(TemplateName(pages.Contact), data)},
				widget: mapwidget.New(d.Map, d.WidgetOptions...),
			}
		},
	})
}

type block struct {
	id   pages.ID
	view templ.Component
}

func (b *block) Page() pages.ID { return b.id }

func (b *block) Render(ctx context.Context, w io.Writer) error {
	return b.view.Render(ctx, w)
}

// ContactBlock renders the contact page and owns its map widget for as long
// as it stays mounted.
type ContactBlock struct {
	block
	widget *mapwidget.Widget
}

func (c *ContactBlock) Mount(doc mapwidget.Document) error {
	return c.widget.Mount(doc)
}

func (c *ContactBlock) Unmount(doc mapwidget.Document) error {
	return c.widget.Unmount(doc)
}

func (c *ContactBlock) ScriptLoaded(doc mapwidget.Document, h mapwidget.Handle) (bool, error) {
	return c.widget.ScriptLoaded(doc, h)
}

// Widget exposes the map widget state.
func (c *ContactBlock) Widget() mapwidget.Snapshot {
	return c.widget.Snapshot()
}

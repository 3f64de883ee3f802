package nav

import "finitefield.org/geostudio-web/internal/pages"

// Entry is a top-level navigation item. Order in Main is display order.
type Entry struct {
	Label  string
	Target pages.ID
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Label  string
	Target pages.ID
	Active bool
}

// Main is the primary navigation definition.
var Main = []Entry{
	{Label: "Home", Target: pages.Home},
	{Label: "Services", Target: pages.Services},
	{Label: "Case Studies", Target: pages.CaseStudies},
	{Label: "Stack", Target: pages.Stack},
	{Label: "Team", Target: pages.Team},
	{Label: "Contact", Target: pages.Contact},
}

// Build renders navigation items with active state given the current view-state.
// Only an exact match marks an entry active, so an unrecognised current page leaves
// every entry inactive even though the home block is displayed.
func Build(current string) []RenderedItem {
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Label:  it.Label,
			Target: it.Target,
			Active: string(it.Target) == current,
		})
	}
	return items
}

// Label returns the display label for a page, or "" when it has no entry.
func Label(id pages.ID) string {
	for _, it := range Main {
		if it.Target == id {
			return it.Label
		}
	}
	return ""
}

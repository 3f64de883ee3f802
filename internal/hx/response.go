package hx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"finitefield.org/geostudio-web/internal/mapwidget"
)

// Client events dispatched through HX-Trigger headers and handled by app.js.
const (
	EventScrollTop = "geostudio:scroll-top"
	EventMapCreate = "geostudio:map-create"
	EventMapRemove = "geostudio:map-remove"
)

// ScrollDetail is the payload of EventScrollTop.
type ScrollDetail struct {
	Top      int    `json:"top"`
	Behavior string `json:"behavior"`
}

// RemoveDetail is the payload of EventMapRemove.
type RemoveDetail struct {
	Anchor string `json:"anchor"`
}

// Response collects the effects of one request: out-of-band fragments and
// client events. It implements mapwidget.Document and shell.Effects.
type Response struct {
	oob         []templ.Component
	trigger     map[string]any
	afterSettle map[string]any
	reswap      string
	scrolls     int
}

// NewResponse returns an empty response.
func NewResponse() *Response {
	return &Response{
		trigger:     map[string]any{},
		afterSettle: map[string]any{},
	}
}

var _ mapwidget.Document = (*Response)(nil)

// ScrollToTop requests a smooth scroll to the top once the swap has settled.
func (r *Response) ScrollToTop() {
	r.scrolls++
	r.afterSettle[EventScrollTop] = ScrollDetail{Top: 0, Behavior: "smooth"}
}

// Scrolls reports how many scroll requests were recorded.
func (r *Response) Scrolls() int { return r.scrolls }

// AttachScript appends an external script to the document body.
func (r *Response) AttachScript(handle mapwidget.Handle, src string) error {
	if handle == "" || src == "" {
		return errors.New("hx: attach script: empty handle or src")
	}
	r.addNode(h.Div(
		g.Attr("hx-swap-oob", "beforeend:body"),
		h.Script(h.ID(string(handle)), h.Src(src), g.Attr("data-map-resource", "script")),
	))
	return nil
}

// AttachStylesheet appends a stylesheet link to the document head.
func (r *Response) AttachStylesheet(handle mapwidget.Handle, href string) error {
	if handle == "" || href == "" {
		return errors.New("hx: attach stylesheet: empty handle or href")
	}
	r.addNode(h.Div(
		g.Attr("hx-swap-oob", "beforeend:head"),
		h.Link(h.ID(string(handle)), h.Rel("stylesheet"), h.Href(href), g.Attr("data-map-resource", "stylesheet")),
	))
	return nil
}

// Detach removes the element carrying handle.
func (r *Response) Detach(handle mapwidget.Handle) error {
	if handle == "" {
		return errors.New("hx: detach: empty handle")
	}
	r.addNode(h.Div(h.ID(string(handle)), g.Attr("hx-swap-oob", "delete")))
	return nil
}

// CreateMap asks the client to build the map as soon as the response arrives.
func (r *Response) CreateMap(spec mapwidget.MapSpec) error {
	r.trigger[EventMapCreate] = spec
	return nil
}

// RemoveMap asks the client to destroy the map before the swap replaces its anchor.
func (r *Response) RemoveMap(anchor string) error {
	r.trigger[EventMapRemove] = RemoveDetail{Anchor: anchor}
	return nil
}

// AddOOB appends an out-of-band component rendered after the main fragment.
func (r *Response) AddOOB(c templ.Component) {
	if c != nil {
		r.oob = append(r.oob, c)
	}
}

func (r *Response) addNode(n g.Node) {
	r.oob = append(r.oob, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return n.Render(w)
	}))
}

// ReswapNone tells htmx to skip the primary swap. Out-of-band fragments still apply.
func (r *Response) ReswapNone() { r.reswap = "none" }

// Triggers returns the events fired when the response is received.
func (r *Response) Triggers() map[string]any { return r.trigger }

// AfterSettle returns the events fired after the swap settled.
func (r *Response) AfterSettle() map[string]any { return r.afterSettle }

// Empty reports whether the response carries no effects at all.
func (r *Response) Empty() bool {
	return len(r.oob) == 0 && len(r.trigger) == 0 && len(r.afterSettle) == 0 && r.reswap == ""
}

// WriteHeaders sets the htmx response headers. It must run before WriteHeader.
func (r *Response) WriteHeaders(w http.ResponseWriter) error {
	if err := setJSONHeader(w, "HX-Trigger", r.trigger); err != nil {
		return err
	}
	if err := setJSONHeader(w, "HX-Trigger-After-Settle", r.afterSettle); err != nil {
		return err
	}
	if r.reswap != "" {
		w.Header().Set("HX-Reswap", r.reswap)
	}
	return nil
}

func setJSONHeader(w http.ResponseWriter, name string, events map[string]any) error {
	if len(events) == 0 {
		return nil
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("hx: encode %s: %w", name, err)
	}
	w.Header().Set(name, string(raw))
	return nil
}

// OOB renders every out-of-band fragment in insertion order.
func (r *Response) OOB() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, c := range r.oob {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

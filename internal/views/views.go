package views

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"

	"finitefield.org/geostudio-web/internal/content"
	"finitefield.org/geostudio-web/internal/nav"
	"finitefield.org/geostudio-web/internal/seo"
)

//go:embed templates/*.tmpl
var embedded embed.FS

// Options configures a Renderer.
type Options struct {
	// Dev reparses templates from Dir on every render.
	Dev bool
	// Dir is the on-disk templates directory used in dev mode.
	Dir string
}

// Renderer executes the site's html/template definitions as templ components.
type Renderer struct {
	dev   bool
	dir   string
	mu    sync.RWMutex
	cache *template.Template
}

// New parses the templates once. In dev mode the parse also validates Dir.
func New(opts Options) (*Renderer, error) {
	r := &Renderer{dev: opts.Dev, dir: strings.TrimSpace(opts.Dir)}
	t, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.cache = t
	return r, nil
}

func (r *Renderer) source() (fs.FS, error) {
	if r.dev && r.dir != "" {
		return os.DirFS(r.dir), nil
	}
	return fs.Sub(embedded, "templates")
}

func (r *Renderer) parse() (*template.Template, error) {
	fsys, err := r.source()
	if err != nil {
		return nil, fmt.Errorf("views: templates source: %w", err)
	}
	t, err := template.New("_root").Funcs(funcMap()).ParseFS(fsys, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("views: parse templates: %w", err)
	}
	return t, nil
}

func (r *Renderer) templates() (*template.Template, error) {
	if r.dev {
		t, err := r.parse()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache = t
		r.mu.Unlock()
		return t, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache, nil
}

// Component returns the named template bound to data.
func (r *Renderer) Component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := r.templates()
		if err != nil {
			return err
		}
		tmpl := t.Lookup(name)
		if tmpl == nil {
			return fmt.Errorf("views: template %q not found", name)
		}
		return templ.FromGoHTML(tmpl, data).Render(ctx, w)
	})
}

// Has reports whether a template with name is defined.
func (r *Renderer) Has(name string) bool {
	t, err := r.templates()
	return err == nil && t.Lookup(name) != nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"now":      time.Now,
		"activate": Activate,
	}
}

// Activate returns the htmx attributes that request navigation to page.
func Activate(page any) template.HTMLAttr {
	vals, _ := json.Marshal(map[string]string{"page": fmt.Sprint(page)})
	return template.HTMLAttr(fmt.Sprintf(
		`hx-post="/navigate" hx-vals="%s" hx-target="#main" hx-swap="innerHTML"`,
		html.EscapeString(string(vals)),
	))
}

// DocumentData is the view model of the full page.
type DocumentData struct {
	Meta        seo.Meta
	Brand       content.Brand
	Nav         NavData
	Main        template.HTML
	Year        int
	CSRFHeaders string
	Resources   template.HTML
}

// NavData is the view model of the navigation bar.
type NavData struct {
	Items []nav.RenderedItem
	// OOB marks the bar for an out-of-band swap.
	OOB bool
}

// CSRFHeaders encodes the hx-headers value carrying the CSRF token.
func CSRFHeaders(header, token string) string {
	b, _ := json.Marshal(map[string]string{header: token})
	return string(b)
}

// Document renders the full page.
func (r *Renderer) Document(data DocumentData) templ.Component {
	return r.Component("document", data)
}

// Nav renders the navigation bar for current. oob marks it for an out-of-band swap.
func (r *Renderer) Nav(current string, oob bool) templ.Component {
	return r.Component("nav", NavData{Items: nav.Build(current), OOB: oob})
}

// Embed renders c into trusted HTML for inclusion in a parent template.
func Embed(ctx context.Context, c templ.Component) (template.HTML, error) {
	return templ.ToGoHTML(ctx, c)
}

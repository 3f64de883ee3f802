package mapwidget

import (
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// Handle identifies one resource attached to the document. It doubles as the
// element id of the attached node, so it must be a valid HTML id.
type Handle string

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat" koanf:"lat"`
	Lng float64 `json:"lng" yaml:"lng" koanf:"lng"`
}

// TileLayer describes the raster tile source drawn beneath the marker.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// Marker is a single pin with an optional popup.
type Marker struct {
	Position  LatLng `json:"position"`
	Popup     string `json:"popup,omitempty"`
	OpenPopup bool   `json:"openPopup"`
}

// MapSpec is everything the client needs to construct the map instance.
type MapSpec struct {
	Anchor string    `json:"anchor"`
	Center LatLng    `json:"center"`
	Zoom   int       `json:"zoom"`
	Tiles  TileLayer `json:"tiles"`
	Marker Marker    `json:"marker"`
}

// Config holds the widget's external resources and initial view.
type Config struct {
	ScriptURL     string `koanf:"script_url"`
	StylesheetURL string `koanf:"stylesheet_url"`
	Anchor        string `koanf:"anchor"`
	Center        LatLng `koanf:"center"`
	Zoom          int    `koanf:"zoom"`
	TileURL       string `koanf:"tile_url"`
	Attribution   string `koanf:"attribution"`
	Popup         string `koanf:"popup"`
}

// DefaultConfig returns the studio location on OpenStreetMap tiles.
func DefaultConfig() Config {
	return Config{
		ScriptURL:     "https://unpkg.com/leaflet@1.7.1/dist/leaflet.js",
		StylesheetURL: "https://unpkg.com/leaflet@1.7.1/dist/leaflet.css",
		Anchor:        "map-container",
		Center:        LatLng{Lat: -0.397316, Lng: 36.960876},
		Zoom:          14,
		TileURL:       "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution:   `&copy; <a href="http://osm.org/copyright">OpenStreetMap</a> contributors`,
		Popup:         "Dedan Kimathi University of Technology<br />Nyeri, Kenya",
	}
}

// ErrInvalidConfig is returned when a widget config is unusable.
var ErrInvalidConfig = errors.New("mapwidget: invalid config")

// Validate checks the fields the widget cannot run without.
func (c Config) Validate() error {
	switch {
	case c.ScriptURL == "":
		return fmt.Errorf("%w: script url is required", ErrInvalidConfig)
	case c.StylesheetURL == "":
		return fmt.Errorf("%w: stylesheet url is required", ErrInvalidConfig)
	case c.Anchor == "":
		return fmt.Errorf("%w: anchor is required", ErrInvalidConfig)
	case c.TileURL == "":
		return fmt.Errorf("%w: tile url is required", ErrInvalidConfig)
	case c.Zoom < 0 || c.Zoom > 22:
		return fmt.Errorf("%w: zoom %d out of range", ErrInvalidConfig, c.Zoom)
	case c.Center.Lat < -90 || c.Center.Lat > 90 || c.Center.Lng < -180 || c.Center.Lng > 180:
		return fmt.Errorf("%w: center %v out of range", ErrInvalidConfig, c.Center)
	}
	return nil
}

// Spec builds the map description sent to the client.
func (c Config) Spec() MapSpec {
	return MapSpec{
		Anchor: c.Anchor,
		Center: c.Center,
		Zoom:   c.Zoom,
		Tiles:  TileLayer{URL: c.TileURL, Attribution: c.Attribution},
		Marker: Marker{Position: c.Center, Popup: c.Popup, OpenPopup: c.Popup != ""},
	}
}

// Document is the host document the widget attaches resources to.
type Document interface {
	AttachScript(h Handle, src string) error
	AttachStylesheet(h Handle, href string) error
	Detach(h Handle) error
	CreateMap(spec MapSpec) error
	RemoveMap(anchor string) error
}

// Discard is a Document that accepts every operation and does nothing. It is
// used when the client document has already been thrown away, e.g. on reload.
var Discard Document = discard{}

type discard struct{}

func (discard) AttachScript(Handle, string) error     { return nil }
func (discard) AttachStylesheet(Handle, string) error { return nil }
func (discard) Detach(Handle) error                   { return nil }
func (discard) CreateMap(MapSpec) error               { return nil }
func (discard) RemoveMap(string) error                { return nil }

// Option configures a Widget.
type Option func(*Widget)

// WithHandles overrides handle generation, mainly for tests.
func WithHandles(next func(kind string) Handle) Option {
	return func(w *Widget) {
		if next != nil {
			w.newHandle = next
		}
	}
}

func ulidHandle(kind string) Handle {
	return Handle("map-" + kind + "-" + ulid.Make().String())
}

// Widget owns one map embed: the script and stylesheet it attached and the map
// instance created once the script loaded. It is not safe for concurrent use;
// the owning shell serialises calls.
type Widget struct {
	cfg       Config
	newHandle func(kind string) Handle

	mounted    bool
	script     Handle
	stylesheet Handle
	created    bool
}

// New returns an unmounted widget.
func New(cfg Config, opts ...Option) *Widget {
	w := &Widget{cfg: cfg, newHandle: ulidHandle}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Snapshot is a read-only view of the widget state.
type Snapshot struct {
	Mounted    bool
	Script     Handle
	Stylesheet Handle
	Created    bool
}

// Snapshot reports the current state.
func (w *Widget) Snapshot() Snapshot {
	return Snapshot{Mounted: w.mounted, Script: w.script, Stylesheet: w.stylesheet, Created: w.created}
}

// Mounted reports whether the widget is currently displayed.
func (w *Widget) Mounted() bool { return w.mounted }

// Mount attaches the script and stylesheet. Calling it on a mounted widget is a
// no-op. Only resources whose attach succeeded are recorded for release.
func (w *Widget) Mount(doc Document) error {
	if w.mounted {
		return nil
	}
	w.mounted = true

	var errs []error
	h := w.newHandle("script")
	if err := doc.AttachScript(h, w.cfg.ScriptURL); err != nil {
		errs = append(errs, fmt.Errorf("attach script: %w", err))
	} else {
		w.script = h
	}
	h = w.newHandle("style")
	if err := doc.AttachStylesheet(h, w.cfg.StylesheetURL); err != nil {
		errs = append(errs, fmt.Errorf("attach stylesheet: %w", err))
	} else {
		w.stylesheet = h
	}
	return errors.Join(errs...)
}

// ScriptLoaded handles the load notification for script handle h. The map is
// created only if the widget is still mounted, h is the script it attached and
// no map exists yet. It reports whether a map was created.
func (w *Widget) ScriptLoaded(doc Document, h Handle) (bool, error) {
	if !w.mounted || w.created || w.script == "" || h != w.script {
		return false, nil
	}
	if err := doc.CreateMap(w.cfg.Spec()); err != nil {
		return false, fmt.Errorf("create map: %w", err)
	}
	w.created = true
	return true, nil
}

// Unmount removes the map if one was created and detaches exactly the
// resources Mount attached. A second call does nothing. Handles are forgotten
// even when a release fails so nothing is released twice.
func (w *Widget) Unmount(doc Document) error {
	if !w.mounted && !w.created && w.script == "" && w.stylesheet == "" {
		return nil
	}
	w.mounted = false

	var errs []error
	if w.created {
		w.created = false
		if err := doc.RemoveMap(w.cfg.Anchor); err != nil {
			errs = append(errs, fmt.Errorf("remove map: %w", err))
		}
	}
	if h := w.stylesheet; h != "" {
		w.stylesheet = ""
		if err := doc.Detach(h); err != nil {
			errs = append(errs, fmt.Errorf("detach stylesheet: %w", err))
		}
	}
	if h := w.script; h != "" {
		w.script = ""
		if err := doc.Detach(h); err != nil {
			errs = append(errs, fmt.Errorf("detach script: %w", err))
		}
	}
	return errors.Join(errs...)
}

package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"finitefield.org/geostudio-web/internal/blocks"
	"finitefield.org/geostudio-web/internal/content"
	"finitefield.org/geostudio-web/internal/httpserver"
	"finitefield.org/geostudio-web/internal/mapwidget"
	"finitefield.org/geostudio-web/internal/seo"
	"finitefield.org/geostudio-web/internal/session"
	"finitefield.org/geostudio-web/internal/shell"
	"finitefield.org/geostudio-web/internal/views"
)

// Stack is a running test server together with the collaborators it was built from.
type Stack struct {
	*httptest.Server
	Config httpserver.Config
	Shells *shell.Store
	Map    mapwidget.Config
}

type options struct {
	logger  *zap.Logger
	mapCfg  mapwidget.Config
	widget  []mapwidget.Option
	now     func() time.Time
	mutates []func(*httpserver.Config)
}

// ServerOption customises the test server.
type ServerOption func(*options)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(o *options) { o.logger = logger }
}

// WithMapConfig overrides the map widget configuration.
func WithMapConfig(cfg mapwidget.Config) ServerOption {
	return func(o *options) { o.mapCfg = cfg }
}

// WithWidgetOptions passes options to every contact block's widget.
func WithWidgetOptions(opts ...mapwidget.Option) ServerOption {
	return func(o *options) { o.widget = append(o.widget, opts...) }
}

// WithClock fixes the server clock.
func WithClock(now func() time.Time) ServerOption {
	return func(o *options) { o.now = now }
}

// WithServerConfig edits the server configuration before the server is built.
func WithServerConfig(fn func(*httpserver.Config)) ServerOption {
	return func(o *options) { o.mutates = append(o.mutates, fn) }
}

// NewServer constructs an httptest server running the full site stack with
// the embedded content and templates.
func NewServer(t testing.TB, opts ...ServerOption) *Stack {
	t.Helper()

	o := options{logger: zap.NewNop(), mapCfg: mapwidget.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	site, err := content.Default()
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	renderer, err := views.New(views.Options{})
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	registry, err := blocks.Registry(blocks.Deps{
		Views:         renderer,
		Site:          site,
		Map:           o.mapCfg,
		WidgetOptions: o.widget,
	})
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	sessions, err := session.NewManager(session.Config{
		HashKey: []byte("geostudio-test-hash-key-0123456789"),
	})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	shells := shell.NewStore(registry, time.Hour)

	cfg := httpserver.Config{
		Address:  ":0",
		Logger:   o.logger,
		Views:    renderer,
		Site:     site,
		Meta:     seo.Build(site, "https://geostudio.test", o.mapCfg.Center),
		Shells:   shells,
		Sessions: sessions,
		Now:      o.now,
	}
	for _, fn := range o.mutates {
		fn(&cfg)
	}

	srv, err := httpserver.New(cfg)
	if err != nil {
		t.Fatalf("httpserver: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return &Stack{Server: ts, Config: cfg, Shells: shells, Map: o.mapCfg}
}

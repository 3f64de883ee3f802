package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/geostudio-web/internal/content"
	custommw "finitefield.org/geostudio-web/internal/httpserver/middleware"
	"finitefield.org/geostudio-web/internal/observability"
	"finitefield.org/geostudio-web/internal/seo"
	"finitefield.org/geostudio-web/internal/session"
	"finitefield.org/geostudio-web/internal/shell"
	"finitefield.org/geostudio-web/internal/views"
	"finitefield.org/geostudio-web/public"
)

// Config holds runtime options and collaborators for the site server.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	Logger   *zap.Logger
	Views    *views.Renderer
	Site     *content.Site
	Meta     seo.Meta
	Shells   *shell.Store
	Sessions session.Store
	// SecureCookies marks the CSRF cookie Secure.
	SecureCookies bool
	// Now is the clock used for the footer year.
	Now func() time.Time
}

// New constructs the HTTP server with its middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Views == nil || cfg.Site == nil || cfg.Shells == nil || cfg.Sessions == nil {
		return nil, errors.New("httpserver: views, site, shells and sessions are required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(observability.InjectLogger(cfg.Logger))
	router.Use(observability.Trace())
	router.Use(observability.Recoverer)

	router.Get("/healthz", healthz)
	router.Handle("/assets/*", http.StripPrefix("/assets/", custommw.AssetsWithCache(staticContent)))

	h := &handlers{
		views:  cfg.Views,
		site:   cfg.Site,
		meta:   cfg.Meta,
		shells: cfg.Shells,
		now:    cfg.Now,
	}
	router.Group(func(r chi.Router) {
		r.Use(session.Middleware(cfg.Sessions))
		r.Use(observability.RequestLogger())
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore)
		r.Use(custommw.CSRF(cfg.SecureCookies))

		r.Get("/", h.document)
		r.With(custommw.RequireHTMX()).Post("/navigate", h.navigate)
		r.With(custommw.RequireHTMX()).Post("/contact/map/loaded", h.mapLoaded)
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  orDefault(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: orDefault(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(cfg.IdleTimeout, 60*time.Second),
	}, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte("ok"))
}

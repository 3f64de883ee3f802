package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"finitefield.org/geostudio-web/internal/blocks"
	"finitefield.org/geostudio-web/internal/config"
	"finitefield.org/geostudio-web/internal/content"
	"finitefield.org/geostudio-web/internal/httpserver"
	"finitefield.org/geostudio-web/internal/pages"
	"finitefield.org/geostudio-web/internal/seo"
	"finitefield.org/geostudio-web/internal/session"
	"finitefield.org/geostudio-web/internal/shell"
	"finitefield.org/geostudio-web/internal/views"
)

// app is the assembled site.
type app struct {
	cfg    *config.Config
	shells *shell.Store
	server *http.Server
}

func loadSite(cfg *config.Config) (*content.Site, error) {
	if path := strings.TrimSpace(cfg.Site.ContentFile); path != "" {
		return content.LoadFile(path)
	}
	return content.Default()
}

func buildRegistry(cfg *config.Config) (*content.Site, *views.Renderer, *pages.Registry, error) {
	site, err := loadSite(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load content: %w", err)
	}
	renderer, err := views.New(views.Options{Dev: cfg.Site.Dev, Dir: cfg.Site.TemplatesDir})
	if err != nil {
		return nil, nil, nil, err
	}
	registry, err := blocks.Registry(blocks.Deps{Views: renderer, Site: site, Map: cfg.Map})
	if err != nil {
		return nil, nil, nil, err
	}
	return site, renderer, registry, nil
}

func sessionKeys(cfg config.SessionConfig, logger *zap.Logger) ([]byte, []byte, error) {
	hash := []byte(cfg.HashKey)
	if len(hash) == 0 {
		hash = securecookie.GenerateRandomKey(32)
		if hash == nil {
			return nil, nil, errors.New("generate session hash key")
		}
		logger.Warn("session.hash_key not configured: using an ephemeral key, sessions will not survive restarts")
	}
	var block []byte
	if cfg.BlockKey != "" {
		block = []byte(cfg.BlockKey)
	}
	return hash, block, nil
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	site, renderer, registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	hashKey, blockKey, err := sessionKeys(cfg.Session, logger)
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewManager(session.Config{
		HashKey:      hashKey,
		BlockKey:     blockKey,
		CookieSecure: cfg.Session.Secure,
		Lifetime:     cfg.Session.Lifetime,
	})
	if err != nil {
		return nil, err
	}

	shells := shell.NewStore(registry, cfg.Shell.IdleTTL)
	srv, err := httpserver.New(httpserver.Config{
		Address:       cfg.Server.Addr,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		Logger:        logger,
		Views:         renderer,
		Site:          site,
		Meta:          seo.Build(site, cfg.Site.BaseURL, cfg.Map.Center),
		Shells:        shells,
		Sessions:      sessions,
		SecureCookies: cfg.Session.Secure,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, shells: shells, server: srv}, nil
}

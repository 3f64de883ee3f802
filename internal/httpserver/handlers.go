package httpserver

import (
	"bytes"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"finitefield.org/geostudio-web/internal/content"
	custommw "finitefield.org/geostudio-web/internal/httpserver/middleware"
	"finitefield.org/geostudio-web/internal/hx"
	"finitefield.org/geostudio-web/internal/mapwidget"
	"finitefield.org/geostudio-web/internal/nav"
	"finitefield.org/geostudio-web/internal/observability"
	"finitefield.org/geostudio-web/internal/seo"
	"finitefield.org/geostudio-web/internal/session"
	"finitefield.org/geostudio-web/internal/shell"
	"finitefield.org/geostudio-web/internal/views"
)

type handlers struct {
	views  *views.Renderer
	site   *content.Site
	meta   seo.Meta
	shells *shell.Store
	now    func() time.Time
}

func (h *handlers) shellFor(r *http.Request) (*shell.Shell, *session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return nil, nil, false
	}
	return h.shells.Get(sess.ID()), sess, true
}

// document serves a full page load. A new document starts at the default
// page, so the session's shell is reset.
func (h *handlers) document(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)
	sh, sess, ok := h.shellFor(r)
	if !ok {
		custommw.WriteError(w, r, http.StatusInternalServerError, "missing session")
		return
	}

	resp := hx.NewResponse()
	frame, err := sh.Reset(resp)
	if err != nil {
		logger.Warn("block lifecycle failed", zap.String("page", string(frame.Page)), zap.Error(err))
	}

	main, err := views.Embed(ctx, frame.Block)
	if err != nil {
		h.renderFailed(w, r, err)
		return
	}
	resources, err := views.Embed(ctx, resp.OOB())
	if err != nil {
		h.renderFailed(w, r, err)
		return
	}
	data := views.DocumentData{
		Meta:        h.meta,
		Brand:       h.site.Brand,
		Nav:         views.NavData{Items: nav.Build(frame.Current)},
		Main:        main,
		Year:        h.now().Year(),
		CSRFHeaders: views.CSRFHeaders(custommw.CSRFHeader, sess.CSRFToken()),
		Resources:   resources,
	}
	h.write(w, r, http.StatusOK, h.views.Document(data))
}

// navigate activates the posted page for the session and answers the swap
// for #main, the navigation bar out of band and the client effects.
func (h *handlers) navigate(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		custommw.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	sh, _, ok := h.shellFor(r)
	if !ok {
		custommw.WriteError(w, r, http.StatusInternalServerError, "missing session")
		return
	}

	target := r.PostForm.Get("page")
	resp := hx.NewResponse()
	frame, err := sh.Navigate(target, resp, resp)
	if err != nil {
		logger.Warn("block lifecycle failed", zap.String("page", string(frame.Page)), zap.Error(err))
	}
	observability.SpanEvent(r, "navigate",
		attribute.String("target", target),
		attribute.String("page", string(frame.Page)),
		attribute.Bool("changed", frame.Changed),
	)
	logger.Debug("navigated",
		zap.String("target", target),
		zap.String("page", string(frame.Page)),
		zap.Bool("changed", frame.Changed),
	)

	resp.AddOOB(h.views.Nav(frame.Current, true))
	parts := []templ.Component{}
	if frame.Changed {
		parts = append(parts, frame.Block)
	} else {
		resp.ReswapNone()
	}
	parts = append(parts, resp.OOB())

	if err := resp.WriteHeaders(w); err != nil {
		h.renderFailed(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, parts...)
}

// mapLoaded receives the load notification of an attached map script.
func (h *handlers) mapLoaded(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		custommw.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	handle := mapwidget.Handle(r.PostForm.Get("handle"))
	if handle == "" {
		custommw.WriteError(w, r, http.StatusBadRequest, "handle is required")
		return
	}
	sh, _, ok := h.shellFor(r)
	if !ok {
		custommw.WriteError(w, r, http.StatusInternalServerError, "missing session")
		return
	}

	resp := hx.NewResponse()
	created, err := sh.ScriptLoaded(resp, handle)
	if err != nil {
		logger.Warn("map creation failed", zap.String("handle", string(handle)), zap.Error(err))
	}
	observability.SpanEvent(r, "script loaded", attribute.Bool("map_created", created))
	if !created || resp.Empty() {
		logger.Debug("script load ignored", zap.String("handle", string(handle)))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := resp.WriteHeaders(w); err != nil {
		h.renderFailed(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, resp.OOB())
}

// write renders parts into a buffer first so a failing template still
// produces a clean 500.
func (h *handlers) write(w http.ResponseWriter, r *http.Request, status int, parts ...templ.Component) {
	var buf bytes.Buffer
	for _, c := range parts {
		if err := c.Render(r.Context(), &buf); err != nil {
			h.renderFailed(w, r, err)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *handlers) renderFailed(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).Error("render failed", zap.Error(err))
	for _, name := range []string{"HX-Trigger", "HX-Trigger-After-Settle", "HX-Reswap"} {
		w.Header().Del(name)
	}
	custommw.WriteError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

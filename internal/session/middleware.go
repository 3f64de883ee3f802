package session

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/geostudio-web/internal/observability"
)

type contextKey string

const requestSessionKey contextKey = "geostudio.session"

// Store abstracts the session manager for middleware integration.
type Store interface {
	Load(*http.Request) (*Session, error)
	New() *Session
	Save(http.ResponseWriter, *Session) error
	Destroy(http.ResponseWriter)
}

// Middleware attaches the session to the request context. The CSRF token is
// ensured and the cookie written before the handler runs.
func Middleware(store Store) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())
			sess, err := store.Load(r)
			if errors.Is(err, ErrExpired) {
				logger.Debug("session expired: resetting")
				store.Destroy(w)
				sess = store.New()
			} else if err != nil || sess == nil {
				if err != nil {
					logger.Warn("session load failed", zap.Error(err))
				}
				sess = store.New()
			}
			if _, err := sess.EnsureCSRFToken(); err != nil {
				logger.Error("csrf token generation failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if err := store.Save(w, sess); err != nil {
				logger.Error("session save failed", zap.Error(err))
			}

			ctx := WithSession(r.Context(), sess)
			ctx = observability.WithLogger(ctx, logger.With(zap.String("session_id", shortID(sess.ID()))))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSession stores sess on ctx.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, requestSessionKey, sess)
}

// FromContext retrieves the session attached to this request.
func FromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(requestSessionKey).(*Session)
	return sess, ok && sess != nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

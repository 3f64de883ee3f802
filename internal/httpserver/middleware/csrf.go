package middleware

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/geostudio-web/internal/observability"
	"finitefield.org/geostudio-web/internal/session"
)

const (
	// CSRFHeader carries the token on unsafe requests.
	CSRFHeader     = "X-CSRF-Token"
	csrfCookieName = "geostudio_csrf"
)

// CSRF mirrors the session token into a readable cookie and rejects unsafe
// requests unless both the header and the cookie match it.
func CSRF(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok || sess.CSRFToken() == "" {
				WriteError(w, r, http.StatusForbidden, "missing session")
				return
			}
			token := sess.CSRFToken()

			if c, err := r.Cookie(csrfCookieName); err != nil || c.Value != token {
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if !isSafeMethod(r.Method) {
				if !tokensMatch(r.Header.Get(CSRFHeader), token) {
					observability.FromContext(r.Context()).Warn("csrf header mismatch", zap.String("path", r.URL.Path))
					WriteError(w, r, http.StatusForbidden, "invalid CSRF token")
					return
				}
				if c, err := r.Cookie(csrfCookieName); err != nil || !tokensMatch(c.Value, token) {
					observability.FromContext(r.Context()).Warn("csrf cookie mismatch", zap.String("path", r.URL.Path))
					WriteError(w, r, http.StatusForbidden, "invalid CSRF token")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFCookieName exposes the cookie name for tests and clients.
func CSRFCookieName() string { return csrfCookieName }

func tokensMatch(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

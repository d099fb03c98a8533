package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// CSRF applies double-submit protection to requests that ride on the
// storefront's own cookies. Bearer requests and cookie-less requests pass.
type CSRF struct {
	Header  string
	Cookies []string
}

func (c CSRF) headerName() string {
	if name := strings.TrimSpace(c.Header); name != "" {
		return name
	}
	return "X-CSRF-Token"
}

// Middleware enforces that unsafe cookie-bearing requests echo the CSRF
// cookie in a header.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	headerName := c.headerName()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") || !c.usesCookies(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		cookie, err := r.Cookie(headerName)
		if token == "" || err != nil || strings.TrimSpace(cookie.Value) == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF_REQUIRED", "missing csrf token", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			common.JSONError(w, http.StatusForbidden, "CSRF_INVALID", "invalid csrf token", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Issue sets a fresh CSRF cookie readable by the storefront's scripts and
// returns its value.
func (c CSRF) Issue(w http.ResponseWriter, domain string, secure bool) string {
	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     c.headerName(),
		Value:    token,
		Path:     "/",
		Domain:   domain,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

func (c CSRF) usesCookies(r *http.Request) bool {
	for _, name := range c.Cookies {
		if ck, err := r.Cookie(name); err == nil && ck.Value != "" {
			return true
		}
	}
	return false
}

// TokenHandler hands the storefront a fresh CSRF token.
func (c CSRF) TokenHandler(domain string, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		common.Data(w, http.StatusOK, map[string]string{"token": c.Issue(w, domain, secure)})
	}
}

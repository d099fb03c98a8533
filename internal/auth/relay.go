package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// Relay forwards the caller's access token to upstream calls. The token is
// never verified here; upstream owns that. Expired JWTs are dropped so the
// request proceeds as a guest instead of failing upstream.
type Relay struct {
	AccessCookie string
	ClockSkew    time.Duration
	Now          func() time.Time
}

// Middleware attaches the relayed token to the request context.
func (rl Relay) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := rl.extractToken(r)
		if token == "" || rl.expired(r, token) {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithAccessToken(r.Context(), token)))
	})
}

// RequireToken rejects requests that carry no relayable token.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.AccessToken(r.Context()); !ok {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// expired reports whether token is a JWT whose time claims no longer hold.
// Opaque tokens are relayed untouched.
func (rl Relay) expired(r *http.Request, token string) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	now := time.Now
	if rl.Now != nil {
		now = rl.Now
	}
	_, err := jwt.ParseString(token,
		jwt.WithVerify(false),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(now)),
		jwt.WithAcceptableSkew(rl.ClockSkew),
	)
	if err == nil || !jwt.IsValidationError(err) {
		return false
	}
	zerolog.Ctx(r.Context()).Debug().Err(err).Msg("access_token_dropped")
	return true
}

func (rl Relay) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if rl.AccessCookie != "" {
		if cookie, err := r.Cookie(rl.AccessCookie); err == nil {
			if value := strings.TrimSpace(cookie.Value); value != "" {
				return value
			}
		}
	}
	return ""
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/common"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().Subject("user-1").IssuedAt(exp.Add(-time.Hour)).Expiration(exp).Build()
	require.NoError(t, err)
	raw, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("upstream-secret")))
	require.NoError(t, err)
	return string(raw)
}

func relayed(t *testing.T, rl Relay, req *http.Request) (string, bool) {
	t.Helper()
	var (
		got string
		ok  bool
	)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = common.AccessToken(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got, ok
}

func TestRelayForwardsBearerToken(t *testing.T) {
	now := time.Now()
	token := signedToken(t, now.Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	got, ok := relayed(t, Relay{Now: func() time.Time { return now }}, req)
	require.True(t, ok)
	require.Equal(t, token, got)
}

func TestRelayReadsCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "opaque-token"})

	got, ok := relayed(t, Relay{AccessCookie: "access_token"}, req)
	require.True(t, ok)
	require.Equal(t, "opaque-token", got)
}

func TestRelayDropsExpiredJWT(t *testing.T) {
	now := time.Now()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, now.Add(-time.Minute)))

	_, ok := relayed(t, Relay{Now: func() time.Time { return now }}, req)
	require.False(t, ok)

	_, ok = relayed(t, Relay{Now: func() time.Time { return now }, ClockSkew: 2 * time.Minute}, req)
	require.True(t, ok)
}

func TestRequireToken(t *testing.T) {
	h := RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req.WithContext(common.WithAccessToken(req.Context(), "tok")))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

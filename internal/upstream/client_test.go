package upstream_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/upstream"
)

func newClient(t *testing.T, handler http.HandlerFunc) *upstream.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := upstream.New(srv.URL+"/api", resilience.HTTPClient{Client: srv.Client(), Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestGetCartNormalisesLooseItems(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/cart", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":"cart-9","items":[
			{"id":"l1","product":"p1","variation_id":"v1","quantity":"2.7","price":"10.00","stock":5},
			{"id":"l2","product":{"id":"p2","title":"Lamp"},"quantity":3,"price":1.833,"stock":null},
			{"id":"l3","product":"p3","quantity":"lots","price":"-4"},
			{"id":4,"product":"p4","quantity":9,"stock":"2"}
		]}`)
	})
	ctx := common.WithAccessToken(context.Background(), "tok-1")

	cart, err := client.GetCart(ctx)
	require.NoError(t, err)
	require.Equal(t, "cart-9", cart.ID)
	require.Len(t, cart.Lines, 4)

	first := cart.Lines[0]
	require.Equal(t, "p1", first.ProductRef)
	require.Equal(t, "v1", first.VariationRef)
	require.Equal(t, 2, first.Quantity)
	require.Equal(t, 5, first.StockLimit)
	require.Equal(t, "20.00", pricing.Format(pricing.PriceLine(first)))

	second := cart.Lines[1]
	require.Equal(t, "p2", second.ProductRef)
	require.Equal(t, "Lamp", second.Title)
	require.Zero(t, second.StockLimit)
	require.Equal(t, "1.83", pricing.Format(second.UnitPrice.Decimal))

	third := cart.Lines[2]
	require.Zero(t, third.Quantity)
	require.True(t, third.UnitPrice.Decimal.IsNegative())
	require.True(t, pricing.PriceLine(third).IsZero())

	fourth := cart.Lines[3]
	require.Equal(t, "4", fourth.LineID)
	require.False(t, fourth.UnitPrice.Valid)
	require.Equal(t, 2, fourth.StockLimit)

	reasons := map[string][]string{}
	for _, w := range pricing.Audit(cart.Lines) {
		reasons[w.LineID] = append(reasons[w.LineID], w.Reason)
	}
	require.Empty(t, reasons["l1"])
	require.ElementsMatch(t, []string{"negative unit price", "quantity below one"}, reasons["l3"])
	require.ElementsMatch(t, []string{"missing unit price", "quantity exceeds stock"}, reasons["4"])
}

func TestClientWithoutTokenSendsNoAuthorization(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":"c","items":[]}`)
	})
	cart, err := client.GetCart(context.Background())
	require.NoError(t, err)
	require.Empty(t, cart.Lines)
}

func TestClientMapsUpstreamErrors(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/cart/items/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":"LINE_NOT_FOUND","message":"no such line"}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	err := client.RemoveItem(context.Background(), "missing")
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	require.Equal(t, "LINE_NOT_FOUND", appErr.Code)
	require.Equal(t, "no such line", appErr.Message)

	err = client.UpdateItem(context.Background(), "l1", 2)
	appErr, ok = common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
}

func TestCreateOrderAcceptsBothIDFields(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/orders":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "35.49", body["total"])
			_, _ = io.WriteString(w, `{"order_id":77}`)
		case "/api/payments/session":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "77", body["order_id"])
			_, _ = io.WriteString(w, `{"url":"https://pay.example/s/77"}`)
		}
	})

	id, err := client.CreateOrder(context.Background(), map[string]string{"total": "35.49"})
	require.NoError(t, err)
	require.Equal(t, "77", id)

	url, err := client.CreatePaymentSession(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/s/77", url)
}

func TestCreateOrderWithoutIDFails(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	_, err := client.CreateOrder(context.Background(), map[string]string{})
	require.ErrorIs(t, err, upstream.ErrMissingOrderID)
}

func TestWishlistRoundTrip(t *testing.T) {
	var pushed []string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"items":[{"product":"p1"},{"product":{"id":"p2"}}]}`)
		case http.MethodPost:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			pushed = append(pushed, body["product"])
			w.WriteHeader(http.StatusCreated)
		}
	})
	refs, err := client.GetWishlist(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, refs)
	require.NoError(t, client.AddWishlistItem(context.Background(), "p9"))
	require.Equal(t, []string{"p9"}, pushed)
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	_, err := upstream.New("/api", resilience.HTTPClient{Client: http.DefaultClient}, zerolog.Nop())
	require.Error(t, err)
}

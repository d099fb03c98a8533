package shipping_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/shipping"
)

func TestInflightCancelsPreviousLookup(t *testing.T) {
	var f shipping.Inflight

	first, doneFirst := f.Begin(context.Background(), "sid-1", 1)
	second, doneSecond := f.Begin(context.Background(), "sid-1", 2)
	other, doneOther := f.Begin(context.Background(), "sid-2", 1)

	require.ErrorIs(t, first.Err(), context.Canceled)
	require.NoError(t, second.Err())
	require.NoError(t, other.Err())

	// a superseded lookup finishing late must not evict the newer one
	doneFirst()
	require.Equal(t, 2, f.Len())

	doneSecond()
	doneOther()
	require.Zero(t, f.Len())
	require.ErrorIs(t, second.Err(), context.Canceled)
}

func TestInflightOlderGenerationArrivingLateIsCancelled(t *testing.T) {
	var f shipping.Inflight

	newer, doneNewer := f.Begin(context.Background(), "sid-1", 2)
	older, doneOlder := f.Begin(context.Background(), "sid-1", 1)

	require.ErrorIs(t, older.Err(), context.Canceled)
	require.NoError(t, newer.Err())
	require.Equal(t, 1, f.Len())

	doneOlder()
	require.Equal(t, 1, f.Len())
	require.NoError(t, newer.Err())

	doneNewer()
	require.Zero(t, f.Len())
}

func TestParsePostalCode(t *testing.T) {
	code, err := shipping.ParsePostalCode("  ec1a\t1bb ")
	require.NoError(t, err)
	require.Equal(t, "EC1A 1BB", code.Display)
	require.Equal(t, "EC1A1BB", code.Compact)

	code, err = shipping.ParsePostalCode("abc")
	require.NoError(t, err)
	require.Equal(t, "ABC", code.Compact)

	code, err = shipping.ParsePostalCode(" a   b ")
	require.NoError(t, err)
	require.Equal(t, "A B", code.Display)
	require.Equal(t, "AB", code.Compact)

	_, err = shipping.ParsePostalCode("ab")
	require.ErrorIs(t, err, shipping.ErrInvalidPostalCode)
}

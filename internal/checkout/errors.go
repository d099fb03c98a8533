package checkout

import "errors"

var (
	// ErrEmptyCart blocks submission of a cart without lines.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrIncompleteSelection blocks submission without a priced delivery method.
	ErrIncompleteSelection = errors.New("checkout: delivery method not selected")
	// ErrAlreadySubmitted rejects any change to a submitted session or cart.
	ErrAlreadySubmitted = errors.New("checkout: already submitted")
	// ErrMethodUnavailable is returned when selecting a method the quote does not price.
	ErrMethodUnavailable = errors.New("checkout: delivery method unavailable")
	// ErrNoQuote is returned when selecting a method before a quote exists.
	ErrNoQuote = errors.New("checkout: no delivery quote")
	// ErrNoAddress is returned when requesting a quote before an address exists.
	ErrNoAddress = errors.New("checkout: shipping address required")
	// ErrStaleQuote marks a lookup result superseded by a newer lookup.
	ErrStaleQuote = errors.New("checkout: stale quote discarded")
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("checkout: session not found")
)

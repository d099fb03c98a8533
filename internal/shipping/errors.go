package shipping

import "errors"

var (
	// ErrInvalidPostalCode is returned for postal codes shorter than three
	// characters. No cache or network access happens in that case.
	ErrInvalidPostalCode = errors.New("shipping: invalid postal code")
	// ErrDeliveryUnavailable covers every failed or unusable rate lookup.
	// The caller may retry explicitly; the resolver never does.
	ErrDeliveryUnavailable = errors.New("shipping: delivery rates unavailable")
)

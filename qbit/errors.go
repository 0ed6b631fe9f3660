package qbit

import "errors"

// Common errors returned by the resilient client.
var (
	// ErrNoPrimary is returned when a client is constructed without a primary endpoint.
	ErrNoPrimary = errors.New("primary endpoint is required")

	// ErrNoStore is returned when a client is constructed without a queue store.
	ErrNoStore = errors.New("queue store is required")

	// ErrDeliveryFailed is returned when a batch add call is rejected by an endpoint.
	ErrDeliveryFailed = errors.New("batch delivery failed")
)

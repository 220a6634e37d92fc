// Package state persists the device's registration flags.
//
// The store is a durable string-keyed map with per-key atomicity and no
// cross-key transactions; the orchestrator is responsible for ordering writes
// so that a partial failure leaves recoverable state.
package state

import "context"

// Keys used by the subscription lifecycle.
const (
	KeyManualUnsubscribe = "manualUnsubscribe"
	KeyDeviceDataRemoved = "deviceDataRemoved"
	KeySenderID          = "senderId"
	KeyVAPIDKey          = "vapidKey"
	KeyFCMSubscription   = "fcmSubscription"
	KeyAPIParams         = "apiParams"
	KeyHWID              = "hwid"
)

type Store interface {
	// Get returns the value for key. The second return is false when the key
	// has never been set.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// GetAll returns every stored key/value pair.
	GetAll(ctx context.Context) (map[string]string, error)
}

// FCMSubscription is the relay-issued credential pair. Fields are persisted
// as empty strings, never absent, when the relay response omits them.
type FCMSubscription struct {
	Token   string `json:"token"`
	PushSet string `json:"pushSet"`
}

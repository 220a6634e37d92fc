// Package platform abstracts the browser push primitives (worker
// registration, permission API, push subscription object) behind a uniform
// async interface. A target runtime substitutes its own native or test-double
// implementation.
package platform

import (
	"context"

	"github.com/pkg/errors"
)

// PermissionState is the platform's notification permission. The platform is
// the source of truth; it is read on demand and never stored durably.
type PermissionState string

const (
	// PermissionPrompt means the user has not decided yet (the platform also
	// reports this as "default").
	PermissionPrompt  PermissionState = "prompt"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// KeyName identifies a key material slot on a subscription.
type KeyName string

const (
	KeyP256DH KeyName = "p256dh"
	KeyAuth   KeyName = "auth"
)

// ErrRegistrationRejected is returned by RegisterWorker when the platform
// rejects the worker script or scope.
var ErrRegistrationRejected = errors.New("platform rejected worker registration")

// Subscription is the opaque platform credential identifying where push
// messages for this browser instance should be delivered.
//
// The platform owns the subscription's lifetime. Callers hold only a
// transient reference per operation and must re-fetch rather than assume a
// subscription obtained in one call remains valid in a later call.
type Subscription interface {
	// Endpoint returns the push delivery URL.
	Endpoint() string

	// Key returns the raw bytes for the named key slot, or nil if absent.
	Key(name KeyName) []byte

	// EncodedKey returns the platform's encoded form of the named key slot
	// (unpadded base64url), or "" if absent.
	EncodedKey(name KeyName) string
}

// SubscribeOptions configure a subscription request.
type SubscribeOptions struct {
	UserVisibleOnly bool

	// ApplicationServerKey is the raw (decoded) VAPID public key, or nil when
	// the platform does not require one.
	ApplicationServerKey []byte
}

// Registration is a handle on an installed worker.
type Registration interface {
	// Update forces a registration refresh against the platform.
	Update(ctx context.Context) error

	// Subscription returns the active subscription, or nil when none exists.
	Subscription(ctx context.Context) (Subscription, error)

	// Subscribe creates a new subscription under this registration.
	Subscribe(ctx context.Context, opts SubscribeOptions) (Subscription, error)
}

// Adapter wraps the platform push primitives.
type Adapter interface {
	// RegisterWorker registers the background worker script. Registration is
	// idempotent; ErrRegistrationRejected is returned when the platform
	// rejects the script or scope.
	RegisterWorker(ctx context.Context, scriptURL, scope string) error

	// Registration returns the current worker registration, or nil when no
	// worker has been registered.
	Registration(ctx context.Context) (Registration, error)

	// Ready suspends until the registered worker is active.
	Ready(ctx context.Context) (Registration, error)

	// Permission reads the current permission state without prompting.
	Permission(ctx context.Context) (PermissionState, error)

	// RequestPermission triggers the platform's user-facing prompt and
	// suspends until the user responds. When the platform silently refuses to
	// show the prompt (e.g. the call was not user-initiated), it resolves to
	// PermissionPrompt rather than an error.
	RequestPermission(ctx context.Context) (PermissionState, error)

	// IsSubscribed reports whether an active subscription exists. It returns
	// false when no worker registration exists, and otherwise forces a
	// registration refresh first so an external revoke is not reported as a
	// stale positive.
	IsSubscribed(ctx context.Context) (bool, error)

	// Subscribe creates a new subscription under reg.
	Subscribe(ctx context.Context, reg Registration, opts SubscribeOptions) (Subscription, error)

	// Unsubscribe removes the active subscription. It returns false, not an
	// error, when there is no registration or no active subscription.
	Unsubscribe(ctx context.Context) (bool, error)

	// RequiresApplicationServerKey reports whether this platform class needs
	// a VAPID application server key on subscribe.
	RequiresApplicationServerKey() bool
}

// Package device holds the derived device identity shared between the
// lifecycle manager and the persisted state.
package device

import (
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// Params is a non-authoritative snapshot of the device's registration data,
// built fresh from the live subscription when available and cached in the
// persisted store as a fallback for when the worker registration is absent.
type Params struct {
	PushToken  string `json:"pushToken"`
	HWID       string `json:"hwid"`
	PublicKey  string `json:"publicKey"`
	AuthToken  string `json:"authToken"`
	FCMPushSet string `json:"fcmPushSet"`
	FCMToken   string `json:"fcmToken"`
}

// GenerateHWID returns a new random hardware id, base58-encoded for compact
// storage and URL safety.
func GenerateHWID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}

package subscription

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"

	"github.com/pushkit/webpush-client/platform"
	"github.com/pushkit/webpush-client/relay"
)

// KeyMode records how a subscription was keyed. It is selected once at
// subscribe time and threaded through to the relay registrar, because
// VAPID-keyed subscriptions expose their key material differently than
// legacy ones.
type KeyMode int

const (
	KeyedLegacy KeyMode = iota
	KeyedVapid
)

// relayKeys derives the key material the relay expects from a subscription.
// Legacy subscriptions hand over the platform's encoded fields as-is; VAPID
// subscriptions re-derive standard base64 from the raw key bytes.
func relayKeys(sub platform.Subscription, mode KeyMode, vapidKey string) relay.Keys {
	keys := relay.Keys{
		Endpoint: sub.Endpoint(),
	}

	switch mode {
	case KeyedVapid:
		keys.Key = base64.StdEncoding.EncodeToString(sub.Key(platform.KeyP256DH))
		keys.Auth = base64.StdEncoding.EncodeToString(sub.Key(platform.KeyAuth))
		keys.ApplicationPubKey = vapidKey
	default:
		keys.Key = sub.EncodedKey(platform.KeyP256DH)
		keys.Auth = sub.EncodedKey(platform.KeyAuth)
	}

	return keys
}

// decodeVAPIDKey converts a base64url application server key into the raw
// bytes the platform's subscribe call takes. Both padded and unpadded input
// are accepted.
func decodeVAPIDKey(key string) ([]byte, error) {
	normalized := strings.ReplaceAll(key, "-", "+")
	normalized = strings.ReplaceAll(normalized, "_", "/")
	if pad := len(normalized) % 4; pad != 0 {
		normalized += strings.Repeat("=", 4-pad)
	}

	raw, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, errors.Wrap(err, "invalid application server key")
	}
	return raw, nil
}

// Package relay bridges a native push subscription through the FCM relay for
// browsers that cannot deliver raw push payloads without it.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pushkit/webpush-client/state"
)

// The relay rejects a regular JSON content type.
const contentType = "text/plain;charset=UTF-8"

// Keys is the subscription key material in the encoding the relay expects.
// How it is derived depends on whether the subscription is VAPID-keyed; the
// caller selects that once at subscribe time.
type Keys struct {
	Endpoint          string
	Key               string
	Auth              string
	ApplicationPubKey string
}

type registerRequest struct {
	Endpoint          string `json:"endpoint"`
	EncryptionKey     string `json:"encryption_key"`
	EncryptionAuth    string `json:"encryption_auth"`
	AuthorizedEntity  string `json:"authorized_entity"`
	ApplicationPubKey string `json:"application_pub_key,omitempty"`
}

type registerResponse struct {
	Token   string `json:"token"`
	PushSet string `json:"pushSet"`
}

// Registrar exchanges a subscription's keys for a relay-issued token/pushSet
// pair and persists the result.
type Registrar struct {
	log        *zap.Logger
	endpoint   string
	flags      *state.Flags
	httpClient *http.Client
}

func NewRegistrar(log *zap.Logger, endpoint string, flags *state.Flags) *Registrar {
	return &Registrar{
		log:        log,
		endpoint:   endpoint,
		flags:      flags,
		httpClient: http.DefaultClient,
	}
}

// Register posts the subscription keys to the relay and persists the issued
// credential pair. A missing token or pushSet in the response is persisted as
// an empty string, never left absent.
//
// Failures are reported to the caller, which is expected to treat them as
// soft: the native subscription stays valid without relay credentials.
func (r *Registrar) Register(ctx context.Context, keys Keys, senderID string) error {
	body, err := json.Marshal(&registerRequest{
		Endpoint:          keys.Endpoint,
		EncryptionKey:     keys.Key,
		EncryptionAuth:    keys.Auth,
		AuthorizedEntity:  senderID,
		ApplicationPubKey: keys.ApplicationPubKey,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal relay request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create relay request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.Warn("Relay registration request failed", zap.Error(err))
		return errors.Wrap(err, "relay request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.Warn("Relay rejected registration", zap.Int("status", resp.StatusCode))
		return errors.Errorf("unexpected relay status code: %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read relay response")
	}

	var parsed registerResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		r.log.Warn("Failed to parse relay response", zap.Error(err))
		return errors.Wrap(err, "failed to parse relay response")
	}

	if err := r.flags.SetFCMSubscription(ctx, state.FCMSubscription{
		Token:   parsed.Token,
		PushSet: parsed.PushSet,
	}); err != nil {
		return errors.Wrap(err, "failed to persist relay credentials")
	}

	r.log.Debug("Registered subscription with relay",
		zap.String("sender_id", senderID),
		zap.Bool("has_token", parsed.Token != ""),
	)

	return nil
}

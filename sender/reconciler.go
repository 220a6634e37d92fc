// Package sender reconciles the vendor-assigned sender identity declared in
// the host page's manifest against the last-known persisted value.
package sender

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/ReneKroon/ttlcache"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pushkit/webpush-client/state"
)

// Manifests are scanned as raw text rather than strictly parsed, so a
// malformed manifest with a valid-looking field still resolves.
var senderIDPattern = regexp.MustCompile(`"?gcm_sender_id"?\s*:\s*"(\d+)"`)

const defaultCacheTTL = time.Minute

// Reconciler decides whether the device must be re-subscribed because the
// backend routing identity changed or the relay bridge is unconfigured.
type Reconciler struct {
	log         *zap.Logger
	flags       *state.Flags
	manifestURL string
	httpClient  *http.Client
	cache       *ttlcache.Cache
}

func NewReconciler(log *zap.Logger, manifestURL string, flags *state.Flags) *Reconciler {
	cache := ttlcache.NewCache()
	cache.SetTTL(defaultCacheTTL)

	return &Reconciler{
		log:         log,
		flags:       flags,
		manifestURL: manifestURL,
		httpClient:  http.DefaultClient,
		cache:       cache,
	}
}

// CheckFCMKeys reports whether a persisted relay token and pushSet are both
// present.
func (r *Reconciler) CheckFCMKeys(ctx context.Context) (bool, error) {
	fcm, err := r.flags.FCMSubscription(ctx)
	if err != nil {
		return false, err
	}
	return fcm.Token != "" && fcm.PushSet != "", nil
}

// CheckSenderID compares the manifest-declared sender id against the
// persisted value. A mismatch updates the persisted value and reports
// invalid. A missing or unfetchable manifest is fatal to the check, since
// identity cannot be established without it.
func (r *Reconciler) CheckSenderID(ctx context.Context) (bool, error) {
	declared, err := r.manifestSenderID(ctx)
	if err != nil {
		return false, err
	}

	stored, err := r.flags.SenderID(ctx)
	if err != nil {
		return false, err
	}

	if stored == declared {
		return true, nil
	}

	r.log.Info("Sender id changed",
		zap.String("stored", stored),
		zap.String("declared", declared),
	)
	if err := r.flags.SetSenderID(ctx, declared); err != nil {
		return false, err
	}

	return false, nil
}

// NeedsUnsubscribe is true when the sender identity is invalid or the relay
// credential pair is missing.
func (r *Reconciler) NeedsUnsubscribe(ctx context.Context) (bool, error) {
	keysPresent, err := r.CheckFCMKeys(ctx)
	if err != nil {
		return false, err
	}

	senderValid, err := r.CheckSenderID(ctx)
	if err != nil {
		return false, err
	}

	return !senderValid || !keysPresent, nil
}

func (r *Reconciler) manifestSenderID(ctx context.Context) (string, error) {
	if cached, ok := r.cache.Get(r.manifestURL); ok {
		return cached.(string), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.manifestURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create manifest request")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch manifest")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected manifest status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read manifest")
	}

	match := senderIDPattern.FindSubmatch(body)
	if match == nil {
		return "", errors.New("manifest does not declare gcm_sender_id")
	}

	declared := string(match[1])
	r.cache.Set(r.manifestURL, declared)

	return declared, nil
}

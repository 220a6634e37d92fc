package state

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/pushkit/webpush-client/device"
)

// Flags is a typed view over a Store for the keys this client owns. Absent
// keys read as zero values.
type Flags struct {
	store Store
}

func NewFlags(store Store) *Flags {
	return &Flags{store: store}
}

// Store exposes the underlying raw store.
func (f *Flags) Store() Store {
	return f.store
}

func (f *Flags) ManualUnsubscribe(ctx context.Context) (bool, error) {
	return f.getBool(ctx, KeyManualUnsubscribe)
}

func (f *Flags) SetManualUnsubscribe(ctx context.Context, v bool) error {
	return f.store.Set(ctx, KeyManualUnsubscribe, strconv.FormatBool(v))
}

func (f *Flags) DeviceDataRemoved(ctx context.Context) (bool, error) {
	return f.getBool(ctx, KeyDeviceDataRemoved)
}

func (f *Flags) SetDeviceDataRemoved(ctx context.Context, v bool) error {
	return f.store.Set(ctx, KeyDeviceDataRemoved, strconv.FormatBool(v))
}

func (f *Flags) SenderID(ctx context.Context) (string, error) {
	v, _, err := f.store.Get(ctx, KeySenderID)
	return v, err
}

func (f *Flags) SetSenderID(ctx context.Context, v string) error {
	return f.store.Set(ctx, KeySenderID, v)
}

func (f *Flags) VAPIDKey(ctx context.Context) (string, error) {
	v, _, err := f.store.Get(ctx, KeyVAPIDKey)
	return v, err
}

func (f *Flags) SetVAPIDKey(ctx context.Context, v string) error {
	return f.store.Set(ctx, KeyVAPIDKey, v)
}

func (f *Flags) HWID(ctx context.Context) (string, error) {
	v, _, err := f.store.Get(ctx, KeyHWID)
	return v, err
}

func (f *Flags) SetHWID(ctx context.Context, v string) error {
	return f.store.Set(ctx, KeyHWID, v)
}

func (f *Flags) FCMSubscription(ctx context.Context) (FCMSubscription, error) {
	var sub FCMSubscription

	raw, ok, err := f.store.Get(ctx, KeyFCMSubscription)
	if err != nil || !ok {
		return sub, err
	}

	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return FCMSubscription{}, errors.Wrap(err, "failed to decode fcm subscription")
	}
	return sub, nil
}

func (f *Flags) SetFCMSubscription(ctx context.Context, sub FCMSubscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return errors.Wrap(err, "failed to encode fcm subscription")
	}
	return f.store.Set(ctx, KeyFCMSubscription, string(raw))
}

// Params returns the cached device params snapshot, if one was persisted.
func (f *Flags) Params(ctx context.Context) (*device.Params, bool, error) {
	raw, ok, err := f.store.Get(ctx, KeyAPIParams)
	if err != nil || !ok {
		return nil, false, err
	}

	var params device.Params
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, false, errors.Wrap(err, "failed to decode cached params")
	}
	return &params, true, nil
}

func (f *Flags) SetParams(ctx context.Context, params *device.Params) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "failed to encode params")
	}
	return f.store.Set(ctx, KeyAPIParams, string(raw))
}

func (f *Flags) getBool(ctx context.Context, key string) (bool, error) {
	raw, ok, err := f.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Wrapf(err, "invalid boolean flag %q", key)
	}
	return v, nil
}

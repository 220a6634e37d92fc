// Package subscription orchestrates the client-side push subscription
// lifecycle: permission negotiation, worker registration, subscribe and
// unsubscribe, relay bridging, and the needs-re-subscribe decision.
package subscription

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pushkit/webpush-client/device"
	"github.com/pushkit/webpush-client/event"
	"github.com/pushkit/webpush-client/platform"
	"github.com/pushkit/webpush-client/relay"
	"github.com/pushkit/webpush-client/sender"
	"github.com/pushkit/webpush-client/state"
)

// ErrNoRegistration is returned by APIParams when no worker registration
// exists and no cached snapshot was ever persisted.
var ErrNoRegistration = errors.New("no worker registration and no cached params")

// Config carries the static wiring for a Manager.
type Config struct {
	WorkerURL   string
	WorkerScope string

	// HWID identifies this device. Generated when empty.
	HWID string
}

// Manager drives the subscription state machine. Callers are expected to
// serialize permission/subscribe/unsubscribe requests per device; there is no
// internal lock, correctness relies on idempotent reads and write ordering.
type Manager struct {
	log        *zap.Logger
	platform   platform.Adapter
	flags      *state.Flags
	relay      *relay.Registrar
	reconciler *sender.Reconciler
	bus        *event.Bus[string, event.Event]

	hwid        string
	workerURL   string
	workerScope string
}

// NewManager wires a lifecycle manager. registrar and reconciler may be nil
// for platforms that deliver raw payloads natively. When no bus is injected,
// events go to the process-wide default.
func NewManager(
	log *zap.Logger,
	adapter platform.Adapter,
	flags *state.Flags,
	registrar *relay.Registrar,
	reconciler *sender.Reconciler,
	cfg Config,
	bus ...*event.Bus[string, event.Event],
) *Manager {
	eventBus := event.Default()
	if len(bus) > 0 {
		eventBus = bus[0]
	}

	hwid := cfg.HWID
	if hwid == "" {
		hwid = device.GenerateHWID()
	}

	return &Manager{
		log:         log,
		platform:    adapter,
		flags:       flags,
		relay:       registrar,
		reconciler:  reconciler,
		bus:         eventBus,
		hwid:        hwid,
		workerURL:   cfg.WorkerURL,
		workerScope: cfg.WorkerScope,
	}
}

// HWID returns the device identifier this manager registers under.
func (m *Manager) HWID() string {
	return m.hwid
}

// InitWorker registers the background worker. On platform rejection the
// failure is emitted as a worker-init-error event and returned; callers fall
// back to the cached params snapshot rather than failing outright.
func (m *Manager) InitWorker(ctx context.Context) error {
	if err := m.platform.RegisterWorker(ctx, m.workerURL, m.workerScope); err != nil {
		m.emit(event.TypeWorkerInitError, "", err)
		return errors.Wrap(err, "failed to register worker")
	}
	return nil
}

// AskSubscribe runs the permission prompt and, on grant, the subscribe path.
//
// isDeviceRegistered tells the manager whether the backend already knows this
// device; when it does and a subscription is still active, the stale
// subscription is revoked before a new one is created, never double-
// subscribed.
//
// Returns the resulting subscription: nil when permission was denied, when
// the device was disavowed by the server, or when the user dismissed the
// prompt without ever having subscribed.
func (m *Manager) AskSubscribe(ctx context.Context, isDeviceRegistered bool) (platform.Subscription, error) {
	removed, err := m.flags.DeviceDataRemoved(ctx)
	if err != nil {
		return nil, err
	}
	if removed {
		// The server has disavowed this device; re-subscribing would create
		// an orphaned registration.
		m.log.Error("Device data was removed, ignoring subscribe request")
		return nil, nil
	}

	subscribed, err := m.platform.IsSubscribed(ctx)
	if err != nil {
		return nil, err
	}
	if subscribed && isDeviceRegistered {
		if _, err := m.platform.Unsubscribe(ctx); err != nil {
			return nil, errors.Wrap(err, "failed to revoke stale subscription")
		}
	}

	m.emit(event.TypePermissionDialogShown, "", nil)
	perm, err := m.platform.RequestPermission(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "permission request failed")
	}
	m.emit(event.TypePermissionDialogHidden, perm, nil)

	switch perm {
	case platform.PermissionGranted:
		return m.subscribe(ctx)
	case platform.PermissionDenied:
		m.log.Info("Notification permission denied")
		m.emit(event.TypePermissionDenied, perm, nil)
		return nil, nil
	default:
		// Dismissed without a decision: hand back whatever already exists.
		reg, err := m.platform.Registration(ctx)
		if err != nil || reg == nil {
			return nil, err
		}
		return reg.Subscription(ctx)
	}
}

func (m *Manager) subscribe(ctx context.Context) (platform.Subscription, error) {
	// Re-check the disavowed flag; it may have been set while the prompt was
	// open.
	removed, err := m.flags.DeviceDataRemoved(ctx)
	if err != nil {
		return nil, err
	}
	if removed {
		m.log.Error("Device data was removed, aborting subscribe")
		return nil, nil
	}

	vapidKey, err := m.flags.VAPIDKey(ctx)
	if err != nil {
		return nil, err
	}

	mode := KeyedLegacy
	opts := platform.SubscribeOptions{UserVisibleOnly: true}
	if m.platform.RequiresApplicationServerKey() && vapidKey != "" {
		raw, err := decodeVAPIDKey(vapidKey)
		if err != nil {
			return nil, err
		}
		opts.ApplicationServerKey = raw
		mode = KeyedVapid
	}

	reg, err := m.platform.Ready(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "worker registration not ready")
	}

	sub, err := m.platform.Subscribe(ctx, reg, opts)
	if err != nil {
		return nil, errors.Wrap(err, "platform subscribe failed")
	}

	if err := m.flags.SetManualUnsubscribe(ctx, false); err != nil {
		return sub, err
	}

	m.emit(event.TypePermissionGranted, platform.PermissionGranted, nil)

	if m.relay != nil {
		senderID, err := m.flags.SenderID(ctx)
		if err != nil {
			return sub, err
		}

		// Relay failure degrades to native-only delivery; it never unwinds
		// the subscription itself.
		if err := m.relay.Register(ctx, relayKeys(sub, mode, vapidKey), senderID); err != nil {
			m.log.Warn("Relay registration failed, continuing without relay credentials", zap.Error(err))
		}
	}

	return sub, nil
}

// Unsubscribe removes the active subscription. Returns false, not an error,
// when there is nothing to remove. The manual-unsubscribe flag is set before
// the platform call completes so a crash in between cannot leave a
// subscribed-looking device that silently resurrects itself.
func (m *Manager) Unsubscribe(ctx context.Context) (bool, error) {
	reg, err := m.platform.Registration(ctx)
	if err != nil {
		return false, err
	}
	if reg == nil {
		return false, nil
	}

	sub, err := reg.Subscription(ctx)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}

	if err := m.flags.SetManualUnsubscribe(ctx, true); err != nil {
		return false, err
	}

	return m.platform.Unsubscribe(ctx)
}

// APIParams derives a fresh params snapshot from the live subscription. When
// no worker registration exists it falls back to the last persisted snapshot,
// or fails with ErrNoRegistration if none was ever cached.
func (m *Manager) APIParams(ctx context.Context) (*device.Params, error) {
	reg, err := m.platform.Registration(ctx)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		cached, ok, err := m.flags.Params(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoRegistration
		}
		return cached, nil
	}

	if _, err := m.platform.Ready(ctx); err != nil {
		return nil, errors.Wrap(err, "worker registration not ready")
	}

	sub, err := reg.Subscription(ctx)
	if err != nil {
		return nil, err
	}

	fcm, err := m.flags.FCMSubscription(ctx)
	if err != nil {
		return nil, err
	}

	params := &device.Params{
		HWID:       m.hwid,
		FCMToken:   fcm.Token,
		FCMPushSet: fcm.PushSet,
	}
	if sub != nil {
		params.PushToken = sub.Endpoint()
		params.PublicKey = sub.EncodedKey(platform.KeyP256DH)
		params.AuthToken = sub.EncodedKey(platform.KeyAuth)
	}

	if err := m.flags.SetHWID(ctx, m.hwid); err != nil {
		return nil, err
	}
	if err := m.flags.SetParams(ctx, params); err != nil {
		return nil, err
	}

	return params, nil
}

// NeedsResubscribe reports whether the backend routing identity changed or
// the relay bridge is unconfigured, meaning the current subscription must be
// torn down and re-created.
func (m *Manager) NeedsResubscribe(ctx context.Context) (bool, error) {
	if m.reconciler == nil {
		return false, nil
	}
	return m.reconciler.NeedsUnsubscribe(ctx)
}

func (m *Manager) emit(t event.Type, perm platform.PermissionState, err error) {
	_ = m.bus.OnEvent(m.hwid, event.Event{
		Type:       t,
		HWID:       m.hwid,
		Timestamp:  time.Now(),
		Permission: perm,
		Err:        err,
	})
}

package event

import (
	"sync"
	"time"

	"github.com/pushkit/webpush-client/platform"
)

// Type identifies a subscription lifecycle transition.
type Type string

const (
	TypePermissionDialogShown  Type = "permission_dialog_shown"
	TypePermissionDialogHidden Type = "permission_dialog_hidden"
	TypePermissionGranted      Type = "permission_granted"
	TypePermissionDenied       Type = "permission_denied"
	TypeWorkerInitError        Type = "worker_init_error"
)

// Event is a fire-and-forget lifecycle notification, keyed by the device HWID.
type Event struct {
	Type      Type
	HWID      string
	Timestamp time.Time

	// Permission carries the resulting state for dialog-hidden events.
	Permission platform.PermissionState

	// Err carries the failure for worker-init-error events.
	Err error
}

type Handler[Key, E any] interface {
	OnEvent(key Key, e E)
}

// HandlerFunc is an adapter to allow the use of ordinary
// functions as Handlers.
type HandlerFunc[Key, E any] func(Key, E)

// OnEvent calls f(key, e).
func (f HandlerFunc[Key, E]) OnEvent(key Key, e E) {
	f(key, e)
}

type Bus[Key, E any] struct {
	handlersMu sync.RWMutex
	handlers   []Handler[Key, E]
}

func NewBus[Key, E any]() *Bus[Key, E] {
	return &Bus[Key, E]{}
}

func (b *Bus[Key, E]) AddHandler(h Handler[Key, E]) {
	b.handlersMu.Lock()
	b.handlers = append(b.handlers, h)
	b.handlersMu.Unlock()
}

func (b *Bus[Key, E]) OnEvent(key Key, e E) error {
	b.handlersMu.RLock()
	// Copy handlers to prevent race conditions
	handlers := make([]Handler[Key, E], len(b.handlers))
	copy(handlers, b.handlers)
	b.handlersMu.RUnlock()

	// Execute handlers outside the lock
	for _, h := range handlers {
		go h.OnEvent(key, e)
	}

	return nil
}

var defaultBus = NewBus[string, Event]()

// Default returns the process-wide lifecycle bus, for callers that do not
// inject their own.
func Default() *Bus[string, Event] {
	return defaultBus
}

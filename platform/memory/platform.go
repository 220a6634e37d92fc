// Package memory provides an in-memory simulation of the browser push
// primitives, used by tests and by hosts embedding the client without a real
// platform.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/pushkit/webpush-client/platform"
)

const (
	p256dhLen = 65
	authLen   = 16
)

// Config controls how the simulated platform behaves.
type Config struct {
	// PromptOutcome is the state the user settles on when the permission
	// prompt is shown. PermissionPrompt simulates dismissing the dialog
	// without a decision.
	PromptOutcome platform.PermissionState

	// RequiresVAPID makes Subscribe demand an application server key, like
	// browsers that only accept VAPID-keyed subscriptions.
	RequiresVAPID bool

	// EndpointBase prefixes generated subscription endpoints.
	EndpointBase string
}

type subscription struct {
	endpoint string
	p256dh   []byte
	auth     []byte
}

func (s *subscription) Endpoint() string { return s.endpoint }

func (s *subscription) Key(name platform.KeyName) []byte {
	switch name {
	case platform.KeyP256DH:
		return s.p256dh
	case platform.KeyAuth:
		return s.auth
	}
	return nil
}

func (s *subscription) EncodedKey(name platform.KeyName) string {
	raw := s.Key(name)
	if raw == nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

type registration struct {
	p *Platform
}

func (r *registration) Update(_ context.Context) error {
	return nil
}

func (r *registration) Subscription(_ context.Context) (platform.Subscription, error) {
	r.p.RLock()
	defer r.p.RUnlock()

	if r.p.sub == nil {
		return nil, nil
	}
	return r.p.sub, nil
}

func (r *registration) Subscribe(ctx context.Context, opts platform.SubscribeOptions) (platform.Subscription, error) {
	return r.p.subscribe(ctx, opts)
}

// Platform simulates the browser push primitives.
type Platform struct {
	sync.RWMutex

	cfg        Config
	permission platform.PermissionState

	workerURL   string
	workerScope string

	sub *subscription

	rejectWorker bool

	promptCount    int
	subscribeCount int
	nextEndpoint   int
}

func NewPlatform(cfg Config) *Platform {
	if cfg.PromptOutcome == "" {
		cfg.PromptOutcome = platform.PermissionGranted
	}
	if cfg.EndpointBase == "" {
		cfg.EndpointBase = "https://push.example.com/send/"
	}
	return &Platform{
		cfg:        cfg,
		permission: platform.PermissionPrompt,
	}
}

func (p *Platform) RegisterWorker(_ context.Context, scriptURL, scope string) error {
	p.Lock()
	defer p.Unlock()

	if p.rejectWorker {
		return errors.Wrapf(platform.ErrRegistrationRejected, "script %q", scriptURL)
	}

	p.workerURL = scriptURL
	p.workerScope = scope
	return nil
}

func (p *Platform) Registration(_ context.Context) (platform.Registration, error) {
	p.RLock()
	defer p.RUnlock()

	if p.workerURL == "" {
		return nil, nil
	}
	return &registration{p: p}, nil
}

func (p *Platform) Ready(ctx context.Context) (platform.Registration, error) {
	reg, err := p.Registration(ctx)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, errors.New("no worker registered")
	}
	return reg, nil
}

func (p *Platform) Permission(_ context.Context) (platform.PermissionState, error) {
	p.RLock()
	defer p.RUnlock()

	return p.permission, nil
}

func (p *Platform) RequestPermission(_ context.Context) (platform.PermissionState, error) {
	p.Lock()
	defer p.Unlock()

	// Granted and denied are terminal, no dialog is shown.
	if p.permission != platform.PermissionPrompt {
		return p.permission, nil
	}

	p.promptCount++
	p.permission = p.cfg.PromptOutcome
	return p.permission, nil
}

func (p *Platform) IsSubscribed(ctx context.Context) (bool, error) {
	reg, err := p.Registration(ctx)
	if err != nil {
		return false, err
	}
	if reg == nil {
		return false, nil
	}

	if err := reg.Update(ctx); err != nil {
		return false, err
	}

	sub, err := reg.Subscription(ctx)
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

func (p *Platform) Subscribe(ctx context.Context, reg platform.Registration, opts platform.SubscribeOptions) (platform.Subscription, error) {
	if reg == nil {
		return nil, errors.New("no worker registered")
	}
	return reg.Subscribe(ctx, opts)
}

func (p *Platform) subscribe(_ context.Context, opts platform.SubscribeOptions) (platform.Subscription, error) {
	p.Lock()
	defer p.Unlock()

	if p.permission != platform.PermissionGranted {
		return nil, errors.New("permission not granted")
	}
	if p.cfg.RequiresVAPID && len(opts.ApplicationServerKey) == 0 {
		return nil, errors.New("applicationServerKey is required")
	}

	p.subscribeCount++
	p.nextEndpoint++
	p.sub = &subscription{
		endpoint: fmt.Sprintf("%s%d", p.cfg.EndpointBase, p.nextEndpoint),
		p256dh:   randomBytes(p256dhLen),
		auth:     randomBytes(authLen),
	}

	return p.sub, nil
}

func (p *Platform) Unsubscribe(_ context.Context) (bool, error) {
	p.Lock()
	defer p.Unlock()

	if p.workerURL == "" || p.sub == nil {
		return false, nil
	}

	p.sub = nil
	return true, nil
}

func (p *Platform) RequiresApplicationServerKey() bool {
	return p.cfg.RequiresVAPID
}

// SetPermission overrides the current permission state, simulating the user
// changing it from browser settings.
func (p *Platform) SetPermission(state platform.PermissionState) {
	p.Lock()
	defer p.Unlock()

	p.permission = state
}

// RevokeExternally drops the active subscription without going through
// Unsubscribe, simulating an external revoke.
func (p *Platform) RevokeExternally() {
	p.Lock()
	defer p.Unlock()

	p.sub = nil
}

// RejectWorker makes subsequent RegisterWorker calls fail.
func (p *Platform) RejectWorker(reject bool) {
	p.Lock()
	defer p.Unlock()

	p.rejectWorker = reject
}

// PromptCount reports how many times the permission dialog was shown.
func (p *Platform) PromptCount() int {
	p.RLock()
	defer p.RUnlock()

	return p.promptCount
}

// SubscribeCount reports how many subscriptions were created.
func (p *Platform) SubscribeCount() int {
	p.RLock()
	defer p.RUnlock()

	return p.subscribeCount
}

func randomBytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return buf
}

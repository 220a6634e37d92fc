package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkit/webpush-client/platform"
)

func TestPlatform_PermissionFlow(t *testing.T) {
	ctx := context.Background()
	p := NewPlatform(Config{PromptOutcome: platform.PermissionGranted})

	perm, err := p.Permission(ctx)
	require.NoError(t, err)
	assert.Equal(t, platform.PermissionPrompt, perm)

	perm, err = p.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, platform.PermissionGranted, perm)
	assert.Equal(t, 1, p.PromptCount())

	// Granted is terminal, no second dialog.
	perm, err = p.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, platform.PermissionGranted, perm)
	assert.Equal(t, 1, p.PromptCount())
}

func TestPlatform_SubscribeLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewPlatform(Config{})

	// No worker yet.
	subscribed, err := p.IsSubscribed(ctx)
	require.NoError(t, err)
	assert.False(t, subscribed)

	require.NoError(t, p.RegisterWorker(ctx, "/worker.js", "/"))
	_, err = p.RequestPermission(ctx)
	require.NoError(t, err)

	reg, err := p.Ready(ctx)
	require.NoError(t, err)

	sub, err := p.Subscribe(ctx, reg, platform.SubscribeOptions{UserVisibleOnly: true})
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.NotEmpty(t, sub.Endpoint())
	assert.Len(t, sub.Key(platform.KeyP256DH), 65)
	assert.Len(t, sub.Key(platform.KeyAuth), 16)
	assert.NotEmpty(t, sub.EncodedKey(platform.KeyP256DH))

	subscribed, err = p.IsSubscribed(ctx)
	require.NoError(t, err)
	assert.True(t, subscribed)

	ok, err := p.Unsubscribe(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Nothing left to remove.
	ok, err = p.Unsubscribe(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlatform_ExternalRevoke(t *testing.T) {
	ctx := context.Background()
	p := NewPlatform(Config{})

	require.NoError(t, p.RegisterWorker(ctx, "/worker.js", "/"))
	_, err := p.RequestPermission(ctx)
	require.NoError(t, err)

	reg, err := p.Ready(ctx)
	require.NoError(t, err)
	_, err = p.Subscribe(ctx, reg, platform.SubscribeOptions{})
	require.NoError(t, err)

	p.RevokeExternally()

	subscribed, err := p.IsSubscribed(ctx)
	require.NoError(t, err)
	assert.False(t, subscribed)
}

func TestPlatform_VAPIDRequired(t *testing.T) {
	ctx := context.Background()
	p := NewPlatform(Config{RequiresVAPID: true})

	require.NoError(t, p.RegisterWorker(ctx, "/worker.js", "/"))
	_, err := p.RequestPermission(ctx)
	require.NoError(t, err)

	reg, err := p.Ready(ctx)
	require.NoError(t, err)

	_, err = p.Subscribe(ctx, reg, platform.SubscribeOptions{})
	require.Error(t, err)

	sub, err := p.Subscribe(ctx, reg, platform.SubscribeOptions{
		ApplicationServerKey: []byte{0x04, 0x01, 0x02},
	})
	require.NoError(t, err)
	assert.NotNil(t, sub)
}

func TestPlatform_RejectedWorker(t *testing.T) {
	ctx := context.Background()
	p := NewPlatform(Config{})
	p.RejectWorker(true)

	err := p.RegisterWorker(ctx, "/worker.js", "/")
	require.ErrorIs(t, err, platform.ErrRegistrationRejected)
}

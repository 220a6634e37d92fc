package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkit/webpush-client/device"
	"github.com/pushkit/webpush-client/state"
	"github.com/pushkit/webpush-client/state/memory"
)

func TestFlags_Defaults(t *testing.T) {
	ctx := context.Background()
	flags := state.NewFlags(memory.NewInMemory())

	manual, err := flags.ManualUnsubscribe(ctx)
	require.NoError(t, err)
	assert.False(t, manual)

	removed, err := flags.DeviceDataRemoved(ctx)
	require.NoError(t, err)
	assert.False(t, removed)

	senderID, err := flags.SenderID(ctx)
	require.NoError(t, err)
	assert.Empty(t, senderID)

	fcm, err := flags.FCMSubscription(ctx)
	require.NoError(t, err)
	assert.Empty(t, fcm.Token)
	assert.Empty(t, fcm.PushSet)

	_, ok, err := flags.Params(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFlags_BooleanRoundTrip(t *testing.T) {
	ctx := context.Background()
	flags := state.NewFlags(memory.NewInMemory())

	require.NoError(t, flags.SetManualUnsubscribe(ctx, true))
	manual, err := flags.ManualUnsubscribe(ctx)
	require.NoError(t, err)
	assert.True(t, manual)

	require.NoError(t, flags.SetManualUnsubscribe(ctx, false))
	manual, err = flags.ManualUnsubscribe(ctx)
	require.NoError(t, err)
	assert.False(t, manual)
}

func TestFlags_FCMSubscription(t *testing.T) {
	ctx := context.Background()
	flags := state.NewFlags(memory.NewInMemory())

	require.NoError(t, flags.SetFCMSubscription(ctx, state.FCMSubscription{
		Token:   "T1",
		PushSet: "P1",
	}))

	fcm, err := flags.FCMSubscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T1", fcm.Token)
	assert.Equal(t, "P1", fcm.PushSet)

	// Empty fields persist as empty strings, not absent values.
	require.NoError(t, flags.SetFCMSubscription(ctx, state.FCMSubscription{}))

	raw, ok, err := flags.Store().Get(ctx, state.KeyFCMSubscription)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"token":"","pushSet":""}`, raw)
}

func TestFlags_ParamsSnapshot(t *testing.T) {
	ctx := context.Background()
	flags := state.NewFlags(memory.NewInMemory())

	params := &device.Params{
		PushToken: "https://push.example.com/send/1",
		HWID:      "device-1",
		PublicKey: "pubkey",
		AuthToken: "auth",
		FCMToken:  "T1",
	}
	require.NoError(t, flags.SetParams(ctx, params))

	cached, ok, err := flags.Params(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, params, cached)
}

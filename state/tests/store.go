package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkit/webpush-client/state"
)

func RunStoreTests(t *testing.T, s state.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s state.Store){
		testSetAndGet,
		testOverwrite,
		testMissingKey,
		testGetAll,
	} {
		tf(t, s)
		teardown()
	}
}

func testSetAndGet(t *testing.T, s state.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, state.KeySenderID, "1234567890"))

	value, ok, err := s.Get(ctx, state.KeySenderID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1234567890", value)
}

func testOverwrite(t *testing.T, s state.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, state.KeyManualUnsubscribe, "false"))
	require.NoError(t, s.Set(ctx, state.KeyManualUnsubscribe, "true"))

	value, ok, err := s.Get(ctx, state.KeyManualUnsubscribe)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", value)
}

func testMissingKey(t *testing.T, s state.Store) {
	ctx := context.Background()

	value, ok, err := s.Get(ctx, "never-written")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func testGetAll(t *testing.T, s state.Store) {
	ctx := context.Background()

	// An empty string value is still a present key.
	require.NoError(t, s.Set(ctx, state.KeyVAPIDKey, ""))
	require.NoError(t, s.Set(ctx, state.KeySenderID, "42"))
	require.NoError(t, s.Set(ctx, state.KeyHWID, "device-1"))

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		state.KeyVAPIDKey: "",
		state.KeySenderID: "42",
		state.KeyHWID:     "device-1",
	}, all)
}

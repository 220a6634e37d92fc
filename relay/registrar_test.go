package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pushkit/webpush-client/state"
	"github.com/pushkit/webpush-client/state/memory"
)

func TestRegistrar_Register(t *testing.T) {
	ctx := context.Background()
	flags := state.NewFlags(memory.NewInMemory())

	var gotBody map[string]string
	var gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		_, _ = w.Write([]byte(`{"token": "T1", "pushSet": "P1"}`))
	}))
	defer server.Close()

	registrar := NewRegistrar(zap.NewNop(), server.URL, flags)
	err := registrar.Register(ctx, Keys{
		Endpoint:          "https://push.example.com/send/1",
		Key:               "cHVibGlja2V5",
		Auth:              "YXV0aA==",
		ApplicationPubKey: "appkey",
	}, "1234567890")
	require.NoError(t, err)

	assert.Equal(t, "text/plain;charset=UTF-8", gotContentType)
	assert.Equal(t, map[string]string{
		"endpoint":            "https://push.example.com/send/1",
		"encryption_key":      "cHVibGlja2V5",
		"encryption_auth":     "YXV0aA==",
		"authorized_entity":   "1234567890",
		"application_pub_key": "appkey",
	}, gotBody)

	fcm, err := flags.FCMSubscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T1", fcm.Token)
	assert.Equal(t, "P1", fcm.PushSet)
}

func TestRegistrar_OmitsEmptyAppKey(t *testing.T) {
	ctx := context.Background()
	flags := state.NewFlags(memory.NewInMemory())

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	registrar := NewRegistrar(zap.NewNop(), server.URL, flags)
	require.NoError(t, registrar.Register(ctx, Keys{Endpoint: "e", Key: "k", Auth: "a"}, "1"))

	assert.NotContains(t, gotBody, "application_pub_key")
}

func TestRegistrar_MissingResponseFields(t *testing.T) {
	ctx := context.Background()
	flags := state.NewFlags(memory.NewInMemory())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token": "T1"}`))
	}))
	defer server.Close()

	registrar := NewRegistrar(zap.NewNop(), server.URL, flags)
	require.NoError(t, registrar.Register(ctx, Keys{}, "1"))

	// pushSet comes back as an empty string, not an absent field.
	raw, ok, err := flags.Store().Get(ctx, state.KeyFCMSubscription)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"token":"T1","pushSet":""}`, raw)
}

func TestRegistrar_ServerError(t *testing.T) {
	ctx := context.Background()
	flags := state.NewFlags(memory.NewInMemory())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registrar := NewRegistrar(zap.NewNop(), server.URL, flags)
	err := registrar.Register(ctx, Keys{}, "1")
	require.Error(t, err)

	// Nothing was persisted.
	_, ok, err := flags.Store().Get(ctx, state.KeyFCMSubscription)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistrar_MalformedResponse(t *testing.T) {
	ctx := context.Background()
	flags := state.NewFlags(memory.NewInMemory())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	registrar := NewRegistrar(zap.NewNop(), server.URL, flags)
	require.Error(t, registrar.Register(ctx, Keys{}, "1"))

	_, ok, err := flags.Store().Get(ctx, state.KeyFCMSubscription)
	require.NoError(t, err)
	assert.False(t, ok)
}

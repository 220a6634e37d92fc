package memory

import (
	"testing"

	"github.com/pushkit/webpush-client/state/tests"
)

func TestState_MemoryStore(t *testing.T) {
	testStore := NewInMemory()
	teardown := func() {
		testStore.(*memory).reset()
	}
	tests.RunStoreTests(t, testStore, teardown)
}

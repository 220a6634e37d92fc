package memory

import (
	"context"
	"sync"

	"github.com/pushkit/webpush-client/state"
)

type memory struct {
	sync.RWMutex

	values map[string]string
}

func NewInMemory() state.Store {
	return &memory{
		values: make(map[string]string),
	}
}

func (m *memory) reset() {
	m.Lock()
	defer m.Unlock()

	m.values = make(map[string]string)
}

func (m *memory) Get(_ context.Context, key string) (string, bool, error) {
	m.RLock()
	defer m.RUnlock()

	value, ok := m.values[key]
	return value, ok, nil
}

func (m *memory) Set(_ context.Context, key, value string) error {
	m.Lock()
	defer m.Unlock()

	m.values[key] = value
	return nil
}

func (m *memory) GetAll(_ context.Context) (map[string]string, error) {
	m.RLock()
	defer m.RUnlock()

	all := make(map[string]string, len(m.values))
	for key, value := range m.values {
		all[key] = value
	}

	return all, nil
}

package event

import (
	"errors"
	"sync"
	"time"
)

// Stream is a buffered consumer of bus events, intended for UI widgets that
// render lifecycle state without blocking the emitter.
type Stream[E any] interface {
	ID() string
	Notify(event E, timeout time.Duration) error
	Close()
}

type SelectedEventStream[E, T any] struct {
	sync.Mutex

	id string

	closed   bool
	ch       chan T
	selector func(E) (T, bool)
}

// NewSelectedEventStream returns a stream that forwards the projection of
// each event the selector accepts.
func NewSelectedEventStream[E, T any](
	id string,
	bufferSize int,
	selector func(event E) (T, bool),
) *SelectedEventStream[E, T] {
	return &SelectedEventStream[E, T]{
		id:       id,
		ch:       make(chan T, bufferSize),
		selector: selector,
	}
}

func (s *SelectedEventStream[E, T]) ID() string {
	return s.id
}

func (s *SelectedEventStream[E, T]) Notify(event E, timeout time.Duration) error {
	msg, ok := s.selector(event)
	if !ok {
		return nil
	}

	s.Lock()
	if s.closed {
		s.Unlock()
		return errors.New("cannot notify closed stream")
	}

	select {
	case s.ch <- msg:
	case <-time.After(timeout):
		s.Unlock()
		s.Close()
		return errors.New("timed out sending message to stream")
	}

	s.Unlock()
	return nil
}

func (s *SelectedEventStream[E, T]) Close() {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.ch)
}

// Channel returns the receive side of the stream. It is closed when the
// stream closes.
func (s *SelectedEventStream[E, T]) Channel() <-chan T {
	return s.ch
}

package client

import (
	"sync"

	"go.uber.org/zap"
)

// StateSync bridges the local canvas and the network snapshot handshake.
// SaveState serializes the canvas, remembers it as the current known state,
// notifies observers and pushes the snapshot to the server; Apply replaces
// the canvas with a server-delivered snapshot.
type StateSync struct {
	mu        sync.Mutex
	codec     CanvasCodec
	current   string
	observers []func(snapshot string)
	push      func(snapshot string)
	logger    *zap.Logger
}

func NewStateSync(codec CanvasCodec, logger *zap.Logger) *StateSync {
	return &StateSync{
		codec:  codec,
		logger: logger,
	}
}

// Subscribe registers an observer for state changes. Observers run
// synchronously, in subscription order, every time SaveState succeeds.
func (s *StateSync) Subscribe(fn func(snapshot string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// setPusher wires the network push invoked after each successful save.
func (s *StateSync) setPusher(push func(snapshot string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.push = push
}

// SaveState captures the canvas. A serialization failure is logged and
// nothing is pushed; drawing continues unaffected.
func (s *StateSync) SaveState() {
	snapshot, err := s.codec.Serialize()
	if err != nil {
		s.logger.Warn("canvas serialization failed, skipping push", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.current = snapshot
	observers := make([]func(string), len(s.observers))
	copy(observers, s.observers)
	push := s.push
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
	if push != nil {
		push(snapshot)
	}
}

// Apply destructively replaces the local canvas with a received snapshot.
// Any unsaved local drawing is lost.
func (s *StateSync) Apply(snapshot string) error {
	if err := s.codec.Restore(snapshot); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = snapshot
	s.mu.Unlock()
	return nil
}

// Current returns the last known full-canvas state.
func (s *StateSync) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

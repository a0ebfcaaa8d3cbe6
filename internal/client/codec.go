package client

import "sync"

// CanvasCodec bridges the sync adapter to whatever renders the canvas.
// Serialize produces an opaque base64 raster of the full canvas; Restore
// destructively replaces the canvas with a previously serialized snapshot.
// Restoring the empty string clears the canvas.
type CanvasCodec interface {
	Serialize() (string, error)
	Restore(snapshot string) error
}

// MemoryCanvas is a trivial codec holding the snapshot string itself. It
// backs the dev client and tests, where no real rendering surface exists.
type MemoryCanvas struct {
	mu   sync.Mutex
	data string
}

func NewMemoryCanvas() *MemoryCanvas {
	return &MemoryCanvas{}
}

func (m *MemoryCanvas) Serialize() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *MemoryCanvas) Restore(snapshot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = snapshot
	return nil
}

// Put replaces the canvas content locally, as drawing would.
func (m *MemoryCanvas) Put(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

package room

import (
	"go.uber.org/zap"
)

// SnapshotCache holds the one canonical canvas snapshot per room: an opaque
// base64 raster pushed by a member, overwritten last-write-wins. Like the
// Registry it is confined to the relay goroutine and needs no locking.
type SnapshotCache struct {
	items  map[string]string
	logger *zap.Logger
}

func NewSnapshotCache(logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{
		items:  make(map[string]string),
		logger: logger,
	}
}

func (c *SnapshotCache) Set(key string, snapshot string) {
	c.items[key] = snapshot
	c.logger.Debug("snapshot stored", zap.String("key", key), zap.Int("bytes", len(snapshot)))
}

// Get returns the cached snapshot, or empty when none was ever pushed.
func (c *SnapshotCache) Get(key string) string {
	return c.items[key]
}

func (c *SnapshotCache) Delete(key string) {
	delete(c.items, key)
	c.logger.Debug("snapshot dropped", zap.String("key", key))
}

// Package cache holds the user id to vendor id lookup used on every seller
// request. Only approved vendors are cached.
package cache

import (
	"context"
	"strconv"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

type VendorCache interface {
	Get(ctx context.Context, userID int64) (int64, bool)
	Set(ctx context.Context, userID, vendorID int64)
	Delete(ctx context.Context, userID int64)
}

type memoryEntry struct {
	vendorID  int64
	expiresAt time.Time
}

// Memory is an in-process VendorCache sharded over a concurrent map.
type Memory struct {
	entries cmap.ConcurrentMap[string, memoryEntry]
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: cmap.New[memoryEntry](),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, userID int64) (int64, bool) {
	key := strconv.FormatInt(userID, 10)
	entry, ok := m.entries.Get(key)
	if !ok {
		return 0, false
	}
	if m.ttl > 0 && m.now().After(entry.expiresAt) {
		m.entries.Remove(key)
		return 0, false
	}
	return entry.vendorID, true
}

func (m *Memory) Set(_ context.Context, userID, vendorID int64) {
	m.entries.Set(strconv.FormatInt(userID, 10), memoryEntry{
		vendorID:  vendorID,
		expiresAt: m.now().Add(m.ttl),
	})
}

func (m *Memory) Delete(_ context.Context, userID int64) {
	m.entries.Remove(strconv.FormatInt(userID, 10))
}

func (m *Memory) Len() int {
	return m.entries.Count()
}

package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryBackend is an in-process [Backend]. Values are lost on restart.
type MemoryBackend struct {
	mu       sync.Mutex
	sessions map[string]map[string]memoryEntry
	now      func() time.Time
}

// NewMemoryBackend creates an empty [MemoryBackend].
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		sessions: make(map[string]map[string]memoryEntry),
		now:      time.Now,
	}
}

// lookup returns a live entry, evicting it if it has expired. Callers hold mu.
func (b *MemoryBackend) lookup(sid, key string) (memoryEntry, bool) {
	values, ok := b.sessions[sid]
	if !ok {
		return memoryEntry{}, false
	}
	entry, ok := values[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expires.IsZero() && !b.now().Before(entry.expires) {
		b.remove(sid, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (b *MemoryBackend) remove(sid, key string) {
	values, ok := b.sessions[sid]
	if !ok {
		return
	}
	delete(values, key)
	if len(values) == 0 {
		delete(b.sessions, sid)
	}
}

func (b *MemoryBackend) Get(_ context.Context, sid, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.lookup(sid, key)
	return entry.value, ok, nil
}

func (b *MemoryBackend) Set(_ context.Context, sid, key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expires = b.now().Add(ttl)
	}

	values, ok := b.sessions[sid]
	if !ok {
		values = make(map[string]memoryEntry)
		b.sessions[sid] = values
	}
	values[key] = entry
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, sid, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.remove(sid, key)
	return nil
}

func (b *MemoryBackend) Take(_ context.Context, sid, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.lookup(sid, key)
	if ok {
		b.remove(sid, key)
	}
	return entry.value, ok, nil
}

// PurgeExpired drops every expired value and reports how many were removed.
func (b *MemoryBackend) PurgeExpired(_ context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var removed int64
	for sid, values := range b.sessions {
		for key, entry := range values {
			if !entry.expires.IsZero() && !now.Before(entry.expires) {
				delete(values, key)
				removed++
			}
		}
		if len(values) == 0 {
			delete(b.sessions, sid)
		}
	}
	return removed, nil
}

// Len reports the number of sessions holding at least one value.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

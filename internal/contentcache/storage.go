package contentcache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Bucket is one named set of cached responses.
type Bucket interface {
	Match(ctx context.Context, key string) (*Entry, bool, error)
	Put(ctx context.Context, key string, entry *Entry) error
	Keys(ctx context.Context) ([]string, error)
}

// Storage holds every bucket of an origin. It is shared by all clients;
// concurrent writers to the same key resolve last-writer-wins.
type Storage interface {
	// Open returns the bucket called name, creating it if needed.
	Open(ctx context.Context, name string) (Bucket, error)
	// Has reports whether a bucket called name exists.
	Has(ctx context.Context, name string) (bool, error)
	// Names lists the existing buckets in lexical order.
	Names(ctx context.Context) ([]string, error)
	// Delete removes a bucket and reports whether it existed. Handles to
	// a deleted bucket stop being visible through Open.
	Delete(ctx context.Context, name string) (bool, error)
}

// MemoryStorage keeps buckets in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	buckets map[string]*memoryBucket
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{buckets: make(map[string]*memoryBucket)}
}

func (s *MemoryStorage) Open(_ context.Context, name string) (Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[name]
	if !ok {
		b = &memoryBucket{entries: make(map[string]*Entry)}
		s.buckets[name] = b
	}
	return b, nil
}

func (s *MemoryStorage) Has(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buckets[name]
	return ok, nil
}

func (s *MemoryStorage) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.buckets[name]
	delete(s.buckets, name)
	return ok, nil
}

type memoryBucket struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func (b *memoryBucket) Match(_ context.Context, key string) (*Entry, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[key]
	return e, ok, nil
}

func (b *memoryBucket) Put(_ context.Context, key string, entry *Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = entry
	return nil
}

func (b *memoryBucket) Keys(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Newest returns the bucket holding the most recently stored entry. Version
// tags need not sort in install order. It reports false when storage is
// empty.
func Newest(ctx context.Context, s Storage) (string, bool, error) {
	names, err := s.Names(ctx)
	if err != nil || len(names) == 0 {
		return "", false, err
	}

	var (
		newest string
		latest time.Time
	)
	for _, name := range names {
		stored, err := lastStored(ctx, s, name)
		if err != nil {
			return "", false, err
		}
		if newest == "" || stored.After(latest) {
			newest, latest = name, stored
		}
	}
	return newest, true, nil
}

func lastStored(ctx context.Context, s Storage, name string) (time.Time, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return time.Time{}, err
	}
	keys, err := b.Keys(ctx)
	if err != nil {
		return time.Time{}, err
	}
	var last time.Time
	for _, key := range keys {
		e, ok, err := b.Match(ctx, key)
		if err != nil {
			return time.Time{}, err
		}
		if ok && e.StoredAt.After(last) {
			last = e.StoredAt
		}
	}
	return last, nil
}

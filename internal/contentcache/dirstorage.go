package contentcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirStorage keeps one directory per bucket under root and one JSON file
// per entry, so the cache outlives the process.
type DirStorage struct {
	root string
}

func NewDirStorage(root string) *DirStorage {
	return &DirStorage{root: root}
}

type storedEntry struct {
	Key   string `json:"key"`
	Entry *Entry `json:"entry"`
}

func (s *DirStorage) bucketDir(name string) string {
	return filepath.Join(s.root, url.PathEscape(name))
}

func (s *DirStorage) Open(_ context.Context, name string) (Bucket, error) {
	dir := s.bucketDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("opening bucket %q: %w", name, err)
	}
	return &dirBucket{dir: dir}, nil
}

func (s *DirStorage) Has(_ context.Context, name string) (bool, error) {
	info, err := os.Stat(s.bucketDir(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (s *DirStorage) Names(_ context.Context) ([]string, error) {
	dirents, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing buckets: %w", err)
	}

	var names []string
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		name, err := url.PathUnescape(d.Name())
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *DirStorage) Delete(ctx context.Context, name string) (bool, error) {
	ok, err := s.Has(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	if err := os.RemoveAll(s.bucketDir(name)); err != nil {
		return false, fmt.Errorf("deleting bucket %q: %w", name, err)
	}
	return true, nil
}

type dirBucket struct {
	dir string
}

func (b *dirBucket) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(b.dir, hex.EncodeToString(sum[:])+".json")
}

func (b *dirBucket) Match(_ context.Context, key string) (*Entry, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stored storedEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	if stored.Key != key || stored.Entry == nil {
		return nil, false, nil
	}
	return stored.Entry, true, nil
}

func (b *dirBucket) Put(_ context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(storedEntry{Key: key, Entry: entry})
	if err != nil {
		return err
	}

	// A bucket deleted by another worker is not resurrected.
	if _, err := os.Stat(b.dir); err != nil {
		return fmt.Errorf("bucket unavailable: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), b.path(key))
}

func (b *dirBucket) Keys(_ context.Context) ([]string, error) {
	dirents, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.dir, d.Name()))
		if err != nil {
			continue
		}
		var stored storedEntry
		if json.Unmarshal(data, &stored) == nil && stored.Key != "" {
			keys = append(keys, stored.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

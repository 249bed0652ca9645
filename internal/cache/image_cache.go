package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/0xa1bed0/conda2docker/internal/logs"
	"github.com/0xa1bed0/conda2docker/internal/state"
)

const (
	keyPrefix       = "image:"
	lockWaitTimeout = 2 * time.Minute
)

// Entry is one remembered build.
type Entry struct {
	Key       CacheKey  `json:"-"`
	ImageID   ImageID   `json:"image_id"`
	Reference string    `json:"reference"`
	Project   string    `json:"project"`
	CreatedAt time.Time `json:"-"`
	LastUsed  time.Time `json:"-"`
}

// ImageCache maps build cache keys to image IDs on the state KV store.
type ImageCache struct {
	kv       *state.KVStore
	locksDir string
}

func NewImageCache(kv *state.KVStore, locksDir string) (*ImageCache, error) {
	if kv == nil {
		return nil, errors.New("image cache: kv store is required")
	}
	if locksDir == "" {
		return nil, errors.New("image cache: locks dir is required")
	}
	return &ImageCache{kv: kv, locksDir: locksDir}, nil
}

func storeKey(key CacheKey) state.KVStoreKey {
	return state.KVStoreKey(keyPrefix + string(key))
}

// Lookup returns the entry recorded for key.
func (c *ImageCache) Lookup(ctx context.Context, key CacheKey) (Entry, bool, error) {
	raw, found, err := c.kv.Get(ctx, storeKey(key))
	if err != nil || !found {
		return Entry{}, false, err
	}
	e, err := decodeEntry(raw)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Record remembers the image built for key.
func (c *ImageCache) Record(ctx context.Context, key CacheKey, e Entry) error {
	if e.ImageID == "" {
		return errors.New("image cache: empty image id")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.kv.Upsert(ctx, storeKey(key), string(data))
}

func (c *ImageCache) Forget(ctx context.Context, key CacheKey) error {
	return c.kv.Delete(ctx, storeKey(key))
}

// Entries lists every remembered build ordered by key.
func (c *ImageCache) Entries(ctx context.Context) ([]Entry, error) {
	raw, err := c.kv.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		e, err := decodeEntry(r)
		if err != nil {
			logs.Warnf("skipping unreadable image cache entry %s: %v", r.Key, err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Prune forgets entries unused since cutoff and returns them.
func (c *ImageCache) Prune(ctx context.Context, cutoff time.Time) ([]Entry, error) {
	before, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[CacheKey]Entry, len(before))
	for _, e := range before {
		byKey[e.Key] = e
	}

	deleted, err := c.kv.DeleteUnusedBefore(ctx, keyPrefix, cutoff)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(deleted))
	for _, k := range deleted {
		key := CacheKey(strings.TrimPrefix(string(k), keyPrefix))
		e, ok := byKey[key]
		if !ok {
			e = Entry{Key: key}
		}
		out = append(out, e)
	}
	return out, nil
}

// ResolveImage returns the cached image for key when imageExists confirms
// it is still present, otherwise runs build and records its result. Builds
// of the same key are serialized across processes. Cache failures only log
// a warning: the image is still built.
func (c *ImageCache) ResolveImage(
	ctx context.Context,
	key CacheKey,
	imageExists func(context.Context, ImageID) bool,
	build func(context.Context) (Entry, error),
) (Entry, bool, error) {
	if imageExists == nil || build == nil {
		return Entry{}, false, errors.New("helpers imageExists and build are mandatory for image resolving")
	}

	mu := NewFSMutex(filepath.Join(c.locksDir, string(key)+".lock"))
	lockCtx, cancel := context.WithTimeout(ctx, lockWaitTimeout)
	if err := mu.Lock(lockCtx); err != nil {
		logs.Warnf("image cache lock unavailable, building without it: %v", err)
	}
	cancel()
	defer mu.Unlock()

	cached, found, err := c.Lookup(ctx, key)
	if err != nil {
		logs.Warnf("image cache lookup failed: %v", err)
	}
	if found {
		if imageExists(ctx, cached.ImageID) {
			logs.Debugf("image cache hit %s -> %s", key.Short(12), cached.ImageID)
			return cached, true, nil
		}
		logs.Debugf("cached image %s for %s is gone", cached.ImageID, key.Short(12))
		if err := c.Forget(ctx, key); err != nil {
			logs.Warnf("image cache cleanup failed: %v", err)
		}
	}

	built, err := build(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	built.Key = key
	if err := c.Record(ctx, key, built); err != nil {
		logs.Warnf("failed to record image %s: %v", built.ImageID, err)
	}
	return built, false, nil
}

func decodeEntry(raw state.Entry) (Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(raw.Value), &e); err != nil {
		return Entry{}, fmt.Errorf("decode %s: %w", raw.Key, err)
	}
	e.Key = CacheKey(strings.TrimPrefix(string(raw.Key), keyPrefix))
	e.CreatedAt = raw.CreatedAt
	e.LastUsed = raw.LastUsed
	return e, nil
}

// Package cache implements a persistent content-addressed cache: a single
// JSON file mapping string keys to {hash, data}, written atomically (temp
// file + rename) and self-healing on corruption (a file that fails to
// parse is backed up aside and the cache restarts empty rather than
// failing the run).
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

type entry struct {
	Hash string          `json:"hash"`
	Data json.RawMessage `json:"data"`
}

// Cache is a single-file, mutex-guarded key -> {hash, payload} store. The
// write path (Set/Invalidate) is serialized process-wide by mu; reads
// (Get/Exists) load a fresh in-memory snapshot from disk each call, which
// is cheap at the sizes this tool operates on and guarantees readers never
// observe a torn file.
type Cache struct {
	path   string
	mu     sync.Mutex
	logger *zap.SugaredLogger
}

// New builds a Cache backed by the file at path.
func New(path string, logger *zap.SugaredLogger) *Cache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cache{path: path, logger: logger}
}

// HashContent returns the 32-hex-digit MD5 of the UTF-8 bytes of s, used
// only for change detection, never for cryptographic purposes.
func HashContent(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// load reads the persisted file. A missing file is an empty cache. A file
// that fails to parse is copied aside with a ".corrupt" suffix and an empty
// cache is returned, reported through the logger as a recoverable warning,
// never returned as a fatal error.
func (c *Cache) load() map[string]entry {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]entry{}
		}
		c.logger.Warnw("cache: read failed, starting empty", "path", c.path, "error", err)
		return map[string]entry{}
	}

	var data map[string]entry
	if err := json.Unmarshal(raw, &data); err != nil {
		corruptPath := c.path + ".corrupt"
		if writeErr := os.WriteFile(corruptPath, raw, 0o644); writeErr != nil {
			c.logger.Errorw("cache: failed to save corrupt copy", "path", corruptPath, "error", writeErr)
		} else {
			c.logger.Warnw("cache file corrupted, backed up and starting empty", "backup", corruptPath, "error", err)
		}
		return map[string]entry{}
	}
	if data == nil {
		data = map[string]entry{}
	}
	return data
}

// save writes data atomically: a sibling temp file is written first, then
// renamed over the target, so readers never observe a partial file.
func (c *Cache) save(data map[string]entry) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp cache file into place: %w", err)
	}
	return nil
}

// Get returns the payload for key if present and, when expectedHash is
// non-empty, only when it equals the stored hash.
func (c *Cache) Get(key, expectedHash string) (json.RawMessage, bool) {
	if key == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.load()
	item, ok := data[key]
	if !ok {
		return nil, false
	}
	if expectedHash != "" && item.Hash != expectedHash {
		return nil, false
	}
	return item.Data, true
}

// Exists reports whether key is present and, when expectedHash is
// non-empty, matches the stored hash.
func (c *Cache) Exists(key, expectedHash string) bool {
	_, ok := c.Get(key, expectedHash)
	return ok
}

// Set stores payload under key with the given content hash. Empty keys are
// rejected with a warning; nothing is stored.
func (c *Cache) Set(key string, payload json.RawMessage, hash string) error {
	if key == "" {
		c.logger.Warnw("cache: refusing to store empty key")
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.load()
	data[key] = entry{Hash: hash, Data: payload}
	return c.save(data)
}

// Invalidate removes key from the cache, if present.
func (c *Cache) Invalidate(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.load()
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return c.save(data)
}

// GetTyped unmarshals the cached payload for key into a T, when present and
// hash-matching.
func GetTyped[T any](c *Cache, key, expectedHash string) (T, bool) {
	var zero T
	raw, ok := c.Get(key, expectedHash)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warnw("cache: stored payload failed to decode, treating as miss", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

// SetTyped marshals value to JSON and stores it under key with hash.
func SetTyped[T any](c *Cache, key string, value T, hash string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling cache value for %s: %w", key, err)
	}
	return c.Set(key, raw, hash)
}

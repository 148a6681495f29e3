// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/olegiv/ocms-migrate/internal/cache"
)

// CheckpointFile is the URL map file written to the output directory.
const CheckpointFile = "url-map.json"

const checkpointKey = "url-map"

// Checkpoint persists the URL map so an interrupted migration can resume
// without downloading again. The file is always used; a cache adds a
// shared copy (for example Redis) when configured.
type Checkpoint struct {
	path  string
	cache *cache.TypedCache[map[string]string]
	key   string
}

// NewCheckpoint stores the map at <outputDir>/url-map.json and, when c is
// not nil, under a key derived from source in c.
func NewCheckpoint(outputDir, source string, c cache.Cache) *Checkpoint {
	cp := &Checkpoint{
		path: filepath.Join(outputDir, CheckpointFile),
		key:  checkpointKey + ":" + filepath.Base(source),
	}
	if c != nil {
		cp.cache = cache.NewTypedCache[map[string]string](c, 0)
	}
	return cp
}

// Path returns the checkpoint file location.
func (c *Checkpoint) Path() string {
	return c.path
}

// Load reads the file, then merges the cached copy over it. A missing
// checkpoint yields an empty map.
func (c *Checkpoint) Load(ctx context.Context) (*URLMap, error) {
	m := NewURLMap()

	data, err := os.ReadFile(c.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("reading %s: %w", c.path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", c.path, err)
	}

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, c.key)
		switch {
		case err == nil:
			m.Merge(*cached)
		case !errors.Is(err, cache.ErrCacheMiss):
			return nil, fmt.Errorf("reading cached url map: %w", err)
		}
	}

	return m, nil
}

// Save writes the map to the file and the cache.
func (c *Checkpoint) Save(ctx context.Context, m *URLMap) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding url map: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", c.path, err)
	}

	if c.cache != nil {
		entries := m.Entries()
		if err := c.cache.Set(ctx, c.key, &entries); err != nil {
			return fmt.Errorf("caching url map: %w", err)
		}
	}
	return nil
}

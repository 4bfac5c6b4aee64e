// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"jsoncfg/tool/internal/jsonc"

	"github.com/cespare/xxhash/v2"
	"k8s.io/klog/v2"
)

const DefaultCacheFileName = ".jsoncfg-cache.json"

// Cache remembers the content hash each file had after it was last written,
// so files that have not been touched since can be skipped. Entries are only
// valid for the stripping options they were recorded with.
type Cache struct {
	mu      sync.Mutex
	Options string            `json:"options"`
	Entries map[string]uint64 `json:"entries"`
}

func NewCache(opts jsonc.Options) *Cache {
	return &Cache{
		Options: optionsKey(opts),
		Entries: make(map[string]uint64),
	}
}

// LoadCache reads the cache from path. A missing file, or one written with
// other options, yields an empty cache.
func LoadCache(store FileStore, path string, opts jsonc.Options) (*Cache, error) {
	cache := NewCache(opts)

	data, err := store.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cache, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	stored := &Cache{}
	if err := json.Unmarshal(data, stored); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if stored.Options != cache.Options {
		klog.V(3).Infof("Drop cache %s since it was written with options %q", path, stored.Options)
		return cache, nil
	}
	for file, sum := range stored.Entries {
		cache.Entries[file] = sum
	}

	return cache, nil
}

func optionsKey(opts jsonc.Options) string {
	return fmt.Sprintf("whitespace=%t,trailing-commas=%t", opts.PreserveWhitespace, opts.StripTrailingCommas)
}

func (c *Cache) Save(store FileStore, path string) error {
	c.mu.Lock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := store.WriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

func (c *Cache) Unchanged(path string, content []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	sum, ok := c.Entries[path]
	return ok && sum == xxhash.Sum64(content)
}

func (c *Cache) Record(path string, content []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Entries[path] = xxhash.Sum64(content)
}

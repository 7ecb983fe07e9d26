package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/cmdembed/internal/logging"
)

// DefaultCacheSize is the number of pages kept in memory when no size is given.
const DefaultCacheSize = 128

// Cache returns compiled pages for source documents, compiling each distinct
// source once. Pages are keyed by source digest and optionally persisted in
// a directory so they survive restarts.
type Cache struct {
	compiler *Compiler
	mem      *lru.Cache[string, *Page]
	group    singleflight.Group
	fs       afero.Fs
	dir      string
	key      string
	logger   *logging.Logger

	hits     atomic.Uint64
	diskHits atomic.Uint64
	misses   atomic.Uint64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheDir persists pages under dir.
func WithCacheDir(dir string) CacheOption {
	return func(c *Cache) {
		c.dir = dir
	}
}

// WithCacheFs sets the file system used for the cache directory.
func WithCacheFs(fs afero.Fs) CacheOption {
	return func(c *Cache) {
		c.fs = fs
	}
}

// WithCacheKey mixes key into the name of every persisted page. Pages saved
// under a different key are never loaded.
func WithCacheKey(key string) CacheOption {
	return func(c *Cache) {
		c.key = key
	}
}

// WithCacheLogger sets the cache logger.
func WithCacheLogger(l *logging.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = l
	}
}

// NewCache creates a cache holding up to size pages in memory.
func NewCache(compiler *Compiler, size int, opts ...CacheOption) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	mem, err := lru.New[string, *Page](size)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		compiler: compiler,
		mem:      mem,
		fs:       afero.NewOsFs(),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("cache")

	if c.dir != "" {
		if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	return c, nil
}

// Get returns the compiled page for src.
func (c *Cache) Get(src string) (*Page, error) {
	digest := Digest(src)
	if page, ok := c.mem.Get(digest); ok {
		c.hits.Add(1)
		return page, nil
	}

	v, err, _ := c.group.Do(digest, func() (any, error) {
		if page, ok := c.mem.Get(digest); ok {
			c.hits.Add(1)
			return page, nil
		}

		if page := c.loadFromDisk(digest); page != nil {
			c.diskHits.Add(1)
			c.mem.Add(digest, page)
			return page, nil
		}

		c.misses.Add(1)
		page := c.compiler.Compile(src)
		c.mem.Add(digest, page)
		if err := c.saveToDisk(page); err != nil {
			c.logger.WithField("page", page.ID).Warn("persisting page: %v", err)
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}

// Path returns the cache file of a source digest, or "" without a cache
// directory.
func (c *Cache) Path(digest string) string {
	if c.dir == "" {
		return ""
	}
	name := digest
	if c.key != "" {
		name = Digest(c.key + "\x00" + digest)
	}
	return filepath.Join(c.dir, name+FileExt)
}

func (c *Cache) loadFromDisk(digest string) *Page {
	path := c.Path(digest)
	if path == "" {
		return nil
	}
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil
	}
	page, err := Load(bytes.NewReader(data))
	if err != nil {
		c.logger.WithField("path", path).Warn("discarding cached page: %v", err)
		_ = c.fs.Remove(path)
		return nil
	}
	if page.Digest != digest {
		c.logger.WithField("path", path).Warn("discarding cached page with digest %s", page.Digest)
		_ = c.fs.Remove(path)
		return nil
	}
	return page
}

func (c *Cache) saveToDisk(page *Page) error {
	path := c.Path(page.Digest)
	if path == "" {
		return nil
	}

	var buf bytes.Buffer
	if err := Save(&buf, page); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return c.fs.Rename(tmp, path)
}

// Invalidate drops the page for src from memory and disk.
func (c *Cache) Invalidate(src string) {
	digest := Digest(src)
	c.mem.Remove(digest)
	if path := c.Path(digest); path != "" {
		_ = c.fs.Remove(path)
	}
}

// Purge drops all pages from memory. Persisted pages are kept.
func (c *Cache) Purge() {
	c.mem.Purge()
}

// Len returns the number of pages in memory.
func (c *Cache) Len() int {
	return c.mem.Len()
}

// CacheStats counts cache lookups.
type CacheStats struct {
	Hits     uint64
	DiskHits uint64
	Misses   uint64
}

// Stats returns lookup counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:     c.hits.Load(),
		DiskHits: c.diskHits.Load(),
		Misses:   c.misses.Load(),
	}
}

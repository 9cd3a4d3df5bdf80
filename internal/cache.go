package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/micutio/trackspottr/internal/track"
)

// ErrNoCachedPicture is returned by Load when nothing has been saved yet. Starting without a
// cached picture is normal.
var ErrNoCachedPicture = errors.New("no cached picture")

// ErrCacheUnavailable is returned when the cache backend cannot be reached at startup.
var ErrCacheUnavailable = errors.New("cache backend unavailable")

// redisPingTimeout bounds the connection check when the redis cache is created.
const redisPingTimeout = 5 * time.Second

// Picture is the saved state of the track table.
type Picture struct {
	SavedAt    time.Time     `msgpack:"savedAt"`
	ServerTime time.Time     `msgpack:"serverTime"`
	Version    string        `msgpack:"version"`
	Tracks     []track.Track `msgpack:"tracks"`
}

// SnapshotCache keeps the last picture between runs so the display is populated before the first
// fetch completes.
type SnapshotCache interface {
	Save(ctx context.Context, p Picture) error
	Load(ctx context.Context) (Picture, error)
}

// NewCache creates the configured cache. It returns a nil cache when caching is disabled. The
// returned close function is never nil.
func NewCache(cfg CacheConfig) (SnapshotCache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "none":
		return nil, noop, nil
	case "file":
		return NewFileCache(cfg.File), noop, nil
	case "redis":
		rc, err := NewRedisCache(cfg.RedisAddr, cfg.RedisKey, cfg.TTL)
		if err != nil {
			return nil, noop, err
		}
		return rc, rc.Close, nil
	}
	return nil, noop, fmt.Errorf("NewCache: unknown backend %q", cfg.Backend)
}

// FileCache stores the picture as zstd-compressed msgpack in a single file.
type FileCache struct {
	path string
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Save writes the picture to a temporary file and renames it into place, so a crash never leaves a
// truncated cache behind.
func (c *FileCache) Save(_ context.Context, p Picture) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // permissions
		return fmt.Errorf("FileCache.Save: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*")
	if err != nil {
		return fmt.Errorf("FileCache.Save: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("FileCache.Save: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(&p); err != nil {
		zw.Close()
		tmp.Close()
		return fmt.Errorf("FileCache.Save: encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("FileCache.Save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("FileCache.Save: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("FileCache.Save: %w", err)
	}
	return nil
}

func (c *FileCache) Load(_ context.Context) (Picture, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Picture{}, ErrNoCachedPicture
	} else if err != nil {
		return Picture{}, fmt.Errorf("FileCache.Load: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return Picture{}, fmt.Errorf("FileCache.Load: %w", err)
	}
	defer zr.Close()

	var p Picture
	if err := msgpack.NewDecoder(zr).Decode(&p); err != nil {
		return Picture{}, fmt.Errorf("FileCache.Load: decode: %w", err)
	}
	return p, nil
}

// RedisCache stores the picture as msgpack under a single key that expires after ttl, so a
// picture from a long-dead session is never restored.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache connects to addr, given either as host:port or as a redis:// URL, and pings the
// server before returning.
func NewRedisCache(addr, key string, ttl time.Duration) (*RedisCache, error) {
	opt := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("NewRedisCache: %w", err)
		}
		opt = parsed
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("NewRedisCache: %w: %w", ErrCacheUnavailable, err)
	}

	return NewRedisCacheWithClient(client, key, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, key: key, ttl: ttl}
}

func (c *RedisCache) Save(ctx context.Context, p Picture) error {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&p); err != nil {
		return fmt.Errorf("RedisCache.Save: encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key, buf.Bytes(), c.ttl).Err(); err != nil {
		return fmt.Errorf("RedisCache.Save: %w", err)
	}
	return nil
}

func (c *RedisCache) Load(ctx context.Context) (Picture, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Picture{}, ErrNoCachedPicture
	} else if err != nil {
		return Picture{}, fmt.Errorf("RedisCache.Load: %w", err)
	}

	var p Picture
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return Picture{}, fmt.Errorf("RedisCache.Load: decode: %w", err)
	}
	return p, nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

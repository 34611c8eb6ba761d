package cache

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"divdataset/internal"
	"divdataset/internal/config"
	"divdataset/internal/errors"
	"divdataset/internal/migration"
	"divdataset/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLCache is a SessionCache stored in the session_cache table of PostgreSQL or SQLite.
// Expiry is kept as unix milliseconds; expired rows read as absent until the janitor purges them.
type SQLCache struct {
	db     *sqlx.DB
	now    func() time.Time
	logger *internal.Logger
}

var _ ports.SessionCache = (*SQLCache)(nil)

// OpenDB connects to the configured SQL backend and runs the cache migrations
func OpenDB(ctx context.Context, backend, url string) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch backend {
	case config.CachePostgres:
		db, err = sqlx.ConnectContext(ctx, "postgres", url)
	case config.CacheSQLite:
		sqlx.BindDriver("sqlite", sqlx.QUESTION)
		db, err = sqlx.ConnectContext(ctx, "sqlite", url)
		if err == nil {
			// SQLite allows a single writer
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, errors.ConfigInvalid("unsupported SQL cache backend: " + backend)
	}
	if err != nil {
		return nil, errors.CacheError("failed to connect to "+backend+" cache", err)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cache migration failed")
	}
	return db, nil
}

// NewSQLCache wraps an already migrated database
func NewSQLCache(db *sqlx.DB, logger *internal.Logger) *SQLCache {
	if logger == nil {
		logger = internal.Discard()
	}
	return &SQLCache{db: db, now: time.Now, logger: logger}
}

// WithClock replaces the time source, for tests
func (c *SQLCache) WithClock(now func() time.Time) *SQLCache {
	c.now = now
	return c
}

func (c *SQLCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := c.db.GetContext(ctx, &value, c.db.Rebind(`
		SELECT value FROM session_cache
		WHERE cache_key = ? AND expires_at > ?
	`), key, c.now().UnixMilli())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.CacheError("failed to read cache entry", err)
	}
	return []byte(value), true, nil
}

func (c *SQLCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := c.now().Add(ttl).UnixMilli()
	if ttl <= 0 {
		expiresAt = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	}
	_, err := c.db.ExecContext(ctx, c.db.Rebind(`
		INSERT INTO session_cache (cache_key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`), key, string(value), expiresAt)
	if err != nil {
		return errors.CacheError("failed to write cache entry", err)
	}
	return nil
}

func (c *SQLCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, c.db.Rebind(`DELETE FROM session_cache WHERE cache_key = ?`), key)
	if err != nil {
		return errors.CacheError("failed to delete cache entry", err)
	}
	return nil
}

// Cleanup removes expired rows and returns how many were deleted
func (c *SQLCache) Cleanup(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, c.db.Rebind(`DELETE FROM session_cache WHERE expires_at <= ?`), c.now().UnixMilli())
	if err != nil {
		return 0, errors.CacheError("failed to purge expired cache entries", err)
	}
	return res.RowsAffected()
}

// StartJanitor purges expired rows every interval until ctx is done
func (c *SQLCache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := c.Cleanup(ctx)
				if err != nil {
					c.logger.Warn("cache cleanup failed: %v", err)
					continue
				}
				if n > 0 {
					c.logger.Debug("purged %d expired sessions", n)
				}
			}
		}
	}()
}

// Close closes the underlying database
func (c *SQLCache) Close() error {
	return c.db.Close()
}

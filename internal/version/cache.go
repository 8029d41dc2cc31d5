package version

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Cache persists derived tile significance tables in a local sqlite file so
// repeat runs skip the source-file derivation.
type Cache struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenCache opens (creating if needed) the cache database at path and applies
// pending migrations.
func OpenCache(ctx context.Context, path string, log *zap.Logger) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open spec cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping spec cache: %w", err)
	}

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Cache{db: db, log: log.Named("speccache")}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Lookup returns the cached table for profileID. A cached row whose tile
// count no longer matches the profile is stale and reported as a miss.
func (c *Cache) Lookup(ctx context.Context, profileID string, tileCount int) ([]bool, bool, error) {
	var count int
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT tile_count, important FROM spec_tile_tables WHERE profile_id = ?`,
		profileID).Scan(&count, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query spec cache: %w", err)
	}
	if count != tileCount || len(blob) != tileCount {
		c.log.Debug("stale cache entry",
			zap.String("profile", profileID),
			zap.Int("cached", count),
			zap.Int("want", tileCount))
		return nil, false, nil
	}

	table := make([]bool, tileCount)
	for i, b := range blob {
		table[i] = b != 0
	}
	return table, true, nil
}

// Store upserts the derived table for profileID.
func (c *Cache) Store(ctx context.Context, profileID string, table []bool) error {
	blob := make([]byte, len(table))
	for i, v := range table {
		if v {
			blob[i] = 1
		}
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO spec_tile_tables (profile_id, tile_count, important, derived_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (profile_id) DO UPDATE SET
		   tile_count = excluded.tile_count,
		   important  = excluded.important,
		   derived_at = excluded.derived_at`,
		profileID, len(table), blob)
	if err != nil {
		return fmt.Errorf("store spec cache: %w", err)
	}
	return nil
}

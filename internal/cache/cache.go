// Package cache stores fragment translations in SQLite so that a rerun on
// an unchanged fragment skips the translation service.
package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"ltxtrans/internal/logger"
	"ltxtrans/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS translations (
	hash        TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	target      TEXT NOT NULL,
	original    TEXT NOT NULL,
	translation TEXT NOT NULL,
	model       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);
`

// TranslationCache 负责缓存翻译结果
type TranslationCache struct {
	db   *sql.DB
	path string
}

// Entry is one cached translation.
type Entry struct {
	Hash        string
	Source      string
	Target      string
	Original    string
	Translation string
	Model       string
	CreatedAt   time.Time
}

// Open opens or creates the cache database at path.
func Open(path string) (*TranslationCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, types.NewAppError(types.ErrCache, "failed to create cache directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, types.NewAppError(types.ErrCache, "failed to open cache", err)
	}
	// One writer at a time; the pipeline writes from several goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, types.NewAppErrorWithDetails(types.ErrCache, "failed to create cache schema", path, err)
	}

	logger.Debug("translation cache opened", logger.String("path", path))
	return &TranslationCache{db: db, path: path}, nil
}

// ComputeHash 计算缓存键（使用 BLAKE3）
func ComputeHash(source, target, text string) string {
	h := blake3.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(target))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Get 获取缓存的翻译
func (c *TranslationCache) Get(ctx context.Context, source, target, text string) (string, bool, error) {
	var translation string
	err := c.db.QueryRowContext(ctx,
		"SELECT translation FROM translations WHERE hash = ?",
		ComputeHash(source, target, text),
	).Scan(&translation)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.NewAppError(types.ErrCache, "failed to read cache", err)
	}
	return translation, true, nil
}

// Set 设置翻译缓存
func (c *TranslationCache) Set(ctx context.Context, source, target, text, translation, model string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO translations (hash, source, target, original, translation, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET translation = excluded.translation, model = excluded.model, created_at = excluded.created_at
	`,
		ComputeHash(source, target, text),
		source,
		target,
		text,
		translation,
		model,
		time.Now().Unix(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCache, "failed to write cache", err)
	}
	return nil
}

// Lookup returns the full entry for a hash.
func (c *TranslationCache) Lookup(ctx context.Context, hash string) (*Entry, error) {
	var e Entry
	var created int64
	err := c.db.QueryRowContext(ctx,
		"SELECT hash, source, target, original, translation, model, created_at FROM translations WHERE hash = ?",
		hash,
	).Scan(&e.Hash, &e.Source, &e.Target, &e.Original, &e.Translation, &e.Model, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCache, "failed to read cache", err)
	}
	e.CreatedAt = time.Unix(created, 0)
	return &e, nil
}

// Len 返回缓存条目数
func (c *TranslationCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM translations").Scan(&n); err != nil {
		return 0, types.NewAppError(types.ErrCache, "failed to count cache entries", err)
	}
	return n, nil
}

// Clear 清空缓存
func (c *TranslationCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM translations"); err != nil {
		return types.NewAppError(types.ErrCache, "failed to clear cache", err)
	}
	return nil
}

// Path returns the database file path.
func (c *TranslationCache) Path() string {
	return c.path
}

// Close closes the database.
func (c *TranslationCache) Close() error {
	return c.db.Close()
}

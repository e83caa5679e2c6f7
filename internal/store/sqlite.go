// 包 store 提供检索索引的存储实现（SQLite），包含迁移/整集合替换/查询/统计等操作。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"portfolio-content/internal/model"
	"portfolio-content/internal/store/migrations"
)

// Document 为写入索引的一条记录：摘要字段加上用于全文匹配的纯文本。
type Document struct {
	model.IndexEntry
	Text string
}

// CollectionState 为某个集合最近一次同步的状态。
type CollectionState struct {
	Name        model.Collection
	Fingerprint string
	Count       int
	SyncedAt    time.Time
}

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开 SQLite 数据库并执行嵌入的迁移脚本。
// path 为 ":memory:" 时使用内存库，否则自动创建所在目录。
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// 内存库每个连接各自独立，限制为单连接
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func runMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("init migrate driver: %w", err)
	}
	src, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	defer func() { _ = src.Close() }()

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Reset 清空索引数据（不删除数据库文件），下次同步将全量重建。
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections`); err != nil {
		return fmt.Errorf("delete collections: %w", err)
	}
	return nil
}

// ReplaceCollection 在一个事务内用 docs 替换集合 c 的全部条目并记录指纹，
// 返回实际写入的条目数。同一集合内 slug 重复时保留先出现的一条。
func (s *SQLite) ReplaceCollection(ctx context.Context, c model.Collection, fingerprint string, docs []Document) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM entries WHERE type = ?`, string(c.Kind())); err != nil {
		return 0, fmt.Errorf("delete %s entries: %w", c, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO entries(type, slug, title, excerpt, keywords, url, date, body)
        VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, d := range docs {
		kw, jerr := json.Marshal(nonNil(d.Keywords))
		if jerr != nil {
			err = fmt.Errorf("marshal keywords %s: %w", d.Slug, jerr)
			return 0, err
		}
		res, xerr := stmt.ExecContext(ctx, string(d.Type), d.Slug, d.Title, d.Excerpt, string(kw), d.URL, d.Date.UTC(), d.Text)
		if xerr != nil {
			err = fmt.Errorf("insert %s/%s: %w", c, d.Slug, xerr)
			return 0, err
		}
		// 被 OR IGNORE 丢弃的重复 slug 影响行数为 0
		if k, _ := res.RowsAffected(); k > 0 {
			n++
		}
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO collections(name, fingerprint, count, synced_at) VALUES(?,?,?,?)
        ON CONFLICT(name) DO UPDATE SET fingerprint=excluded.fingerprint, count=excluded.count, synced_at=excluded.synced_at`,
		string(c), fingerprint, n, time.Now())
	if err != nil {
		return 0, fmt.Errorf("upsert collection %s: %w", c, err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", c, err)
	}
	return n, nil
}

// Collection 返回集合的同步状态；从未同步过时 ok 为 false。
func (s *SQLite) Collection(ctx context.Context, c model.Collection) (st CollectionState, ok bool, err error) {
	var syncedAt sql.NullTime
	err = s.db.QueryRowContext(ctx, `SELECT name, fingerprint, count, synced_at FROM collections WHERE name = ?`, string(c)).
		Scan(&st.Name, &st.Fingerprint, &st.Count, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return st, false, nil
	}
	if err != nil {
		return st, false, fmt.Errorf("query collection %s: %w", c, err)
	}
	if syncedAt.Valid {
		st.SyncedAt = syncedAt.Time
	}
	return st, true, nil
}

// Search 不区分大小写地匹配标题、摘要、关键词与正文；标题命中的排在前面，其余按日期倒序。
// limit <= 0 表示不限制。
func (s *SQLite) Search(ctx context.Context, query string, limit int) ([]model.IndexEntry, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT type, slug, title, excerpt, keywords, url, date FROM entries
        WHERE lower(title) LIKE ? ESCAPE '\' OR lower(excerpt) LIKE ? ESCAPE '\'
           OR lower(keywords) LIKE ? ESCAPE '\' OR lower(body) LIKE ? ESCAPE '\'
        ORDER BY (lower(title) LIKE ? ESCAPE '\') DESC, date DESC, type, slug
        LIMIT ?`, pattern, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	return scanEntries(rows)
}

// List 返回某类记录，按日期倒序。
func (s *SQLite) List(ctx context.Context, kind model.Kind) ([]model.IndexEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, slug, title, excerpt, keywords, url, date FROM entries
        WHERE type = ? ORDER BY date DESC, slug`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return scanEntries(rows)
}

// Stats 统计各类记录数量。
func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(1) FROM entries GROUP BY type`)
	if err != nil {
		return st, fmt.Errorf("count entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return st, fmt.Errorf("scan stats: %w", err)
		}
		switch model.Kind(kind) {
		case model.KindProject:
			st.Projects = n
		case model.KindLog:
			st.Logs = n
		case model.KindEssay:
			st.Essays = n
		}
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("iterate stats: %w", err)
	}
	st.GeneratedAt = time.Now()
	return st, nil
}

func scanEntries(rows *sql.Rows) ([]model.IndexEntry, error) {
	defer rows.Close()
	out := []model.IndexEntry{}
	for rows.Next() {
		var e model.IndexEntry
		var kind, kw string
		var date sql.NullTime
		if err := rows.Scan(&kind, &e.Slug, &e.Title, &e.Excerpt, &kw, &e.URL, &date); err != nil {
			return nil, fmt.Errorf("scan entries: %w", err)
		}
		e.Type = model.Kind(kind)
		if err := json.Unmarshal([]byte(kw), &e.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords %s: %w", e.Slug, err)
		}
		if date.Valid {
			e.Date = date.Time
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

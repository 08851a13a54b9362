// Package sqlite stores pages and their blocks in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cozy/blocknote/document"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store implements document.PageHost.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

type Option func(*Store)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open opens (or creates) the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS blocks (
			id TEXT PRIMARY KEY,
			page_id TEXT NOT NULL REFERENCES pages(id),
			type TEXT NOT NULL DEFAULT 'paragraph',
			content TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_page ON blocks(page_id, position)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", m[:40], err)
		}
	}
	return nil
}

// CreatePage adds an empty page.
func (s *Store) CreatePage(ctx context.Context, title string) (*document.Page, error) {
	now := s.now().UTC()
	p := &document.Page{
		ID:        uuid.NewString(),
		Title:     title,
		Blocks:    []document.Block{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Title, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return p, nil
}

// ListPages returns every page, without blocks, most recently updated first.
func (s *Store) ListPages(ctx context.Context) ([]document.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM pages ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []document.Page
	for rows.Next() {
		var p document.Page
		if err := rows.Scan(&p.ID, &p.Title, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (s *Store) LoadPage(ctx context.Context, id string) (*document.Page, error) {
	p := &document.Page{Blocks: []document.Block{}}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM pages WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", id, document.ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, content, position FROM blocks WHERE page_id = ? ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b document.Block
		if err := rows.Scan(&b.ID, &b.Type, &b.Content, &b.Order); err != nil {
			return nil, err
		}
		p.Blocks = append(p.Blocks, b)
	}
	return p, rows.Err()
}

// SavePage writes the title and/or the blocks of a page. Blocks replace the
// stored sequence; blocks without an id, with an unknown type or with a
// repeated id are dropped, and positions follow the slice order. Content is
// stored as given.
func (s *Store) SavePage(ctx context.Context, id string, update document.PageUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE pages SET updated_at = ? WHERE id = ?`, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch page: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("page %s: %w", id, document.ErrPageNotFound)
	}

	if update.Title != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE pages SET title = ? WHERE id = ?`, *update.Title, id); err != nil {
			return fmt.Errorf("update title: %w", err)
		}
	}

	if update.Blocks != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE page_id = ?`, id); err != nil {
			return fmt.Errorf("delete blocks: %w", err)
		}
		seen := make(map[string]bool, len(update.Blocks))
		position := 0
		for _, b := range update.Blocks {
			if b.ID == "" || b.IsPlaceholder() || !b.Type.Valid() || seen[b.ID] {
				s.log.Warn().Str("page", id).Str("block", b.ID).Str("type", string(b.Type)).Msg("dropping invalid block")
				continue
			}
			seen[b.ID] = true
			_, err := tx.ExecContext(ctx,
				`INSERT INTO blocks (id, page_id, type, content, position) VALUES (?, ?, ?, ?, ?)`,
				b.ID, id, string(b.Type), b.Content, position,
			)
			if err != nil {
				return fmt.Errorf("insert block %s: %w", b.ID, err)
			}
			position++
		}
	}

	return tx.Commit()
}

// DeletePage removes a page and its blocks.
func (s *Store) DeletePage(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE page_id = ?`, id); err != nil {
		return fmt.Errorf("delete blocks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("page %s: %w", id, document.ErrPageNotFound)
	}
	return tx.Commit()
}

var _ document.PageHost = (*Store)(nil)

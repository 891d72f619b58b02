package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	logx "channelposter/pkg/logx"
)

//go:embed schema_sqlite.sql schema_postgres.sql
var schemaFS embed.FS

// sqlStore appends entries to a publications table. Queries are written with
// '?' placeholders and rebound per driver.
type sqlStore struct {
	db  *sqlx.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	return newSQLStore(db, "schema_sqlite.sql", log)
}

func openPostgres(cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.Path)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required (storage.path)")
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return newSQLStore(db, "schema_postgres.sql", log)
}

func newSQLStore(db *sqlx.DB, schema string, log logx.Logger) (Store, error) {
	st := &sqlStore{db: db, log: log}
	if err := st.migrate(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqlStore) migrate(ctx context.Context, schema string) error {
	b, err := schemaFS.ReadFile(schema)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("migrate %s: %w", s.db.DriverName(), err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) Append(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	q := s.db.Rebind(`INSERT INTO publications(timestamp, post_id, post_type, channel) VALUES(?,?,?,?)`)
	if _, err := s.db.ExecContext(ctx, q, e.Timestamp, e.PostID, e.PostType, e.Channel); err != nil {
		return fmt.Errorf("insert publication: %w", err)
	}
	return nil
}

func (s *sqlStore) List(ctx context.Context) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	entries := []Entry{}
	if err := s.db.SelectContext(ctx, &entries,
		`SELECT timestamp, post_id, post_type, channel FROM publications ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	return entries, nil
}

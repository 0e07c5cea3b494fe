package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// Dialect is a supported SQL dialect
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore keeps sessions and archived narrative in a SQL database
type SQLStore struct {
	dialect Dialect
	db      *sql.DB
	logger  *zap.Logger
}

// Ensure SQLStore satisfies the store interfaces
var (
	_ interfaces.SessionStore  = (*SQLStore)(nil)
	_ interfaces.ArchiveStore  = (*SQLStore)(nil)
	_ interfaces.ArchivePurger = (*SQLStore)(nil)
)

// OpenSQL opens the database, checks the connection and applies pending migrations
func OpenSQL(ctx context.Context, dialect, dsn string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	d := Dialect(strings.ToLower(strings.TrimSpace(dialect)))
	var driverName string
	switch d {
	case DialectSQLite:
		driverName = "sqlite"
		if dsn == "" {
			dsn = filepath.Join("data", "frontline.db")
		}
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
	case DialectPostgres:
		driverName = "pgx"
		if dsn == "" {
			return nil, errors.New("postgres session store requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if d == DialectSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	store := &SQLStore{
		dialect: d,
		db:      db,
		logger:  logger.Named("sql_store"),
	}
	if err := store.applyMigrations(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	store.logger.Info("Database ready", zap.String("dialect", string(store.dialect)))
	return store, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) bind(pos int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (s *SQLStore) binds(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = s.bind(i + 1)
	}
	return out
}

func (s *SQLStore) applyMigrations(ctx context.Context) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan schema migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to iterate schema migrations: %w", err)
	}
	rows.Close()

	files, err := fs.Glob(migrationFS, fmt.Sprintf("migrations/%s/*.sql", s.dialect))
	if err != nil {
		return fmt.Errorf("failed to glob migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		version := filepath.Base(file)
		if applied[version] {
			continue
		}
		script, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(script)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
		record := fmt.Sprintf("INSERT INTO schema_migrations (version, applied_at) VALUES (%s, %s)", s.binds(2)...)
		if _, err := tx.ExecContext(ctx, record, version, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", file, err)
		}

		s.logger.Info("Applied migration", zap.String("version", version))
	}
	return nil
}

// Save inserts or replaces a session
func (s *SQLStore) Save(ctx context.Context, session *types.GameSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	now := time.Now().UTC()
	created := session.CreatedAt.UTC()
	if session.CreatedAt.IsZero() {
		created = now
	}

	query := fmt.Sprintf(`
		INSERT INTO sessions (id, player_name, state, payload, created_at, updated_at)
		VALUES (%s, %s, %s, %s, %s, %s)
		ON CONFLICT (id) DO UPDATE SET
			player_name = excluded.player_name,
			state = excluded.state,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, s.binds(6)...)
	if _, err := s.db.ExecContext(ctx, query, session.ID, session.Player.Name, string(session.State), string(payload), created, now); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads a session by id
func (s *SQLStore) Load(ctx context.Context, sessionID string) (*types.GameSession, error) {
	var payload string
	query := fmt.Sprintf("SELECT payload FROM sessions WHERE id = %s", s.bind(1))
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session types.GameSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSessionCorrupt, err)
	}
	return &session, nil
}

// Delete removes a session and its archived narrative
func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	for _, table := range []string{"story_chunks", "sessions"} {
		column := "session_id"
		if table == "sessions" {
			column = "id"
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", table, column, s.bind(1))
		if _, err := tx.ExecContext(ctx, query, sessionID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// Put archives narrative text under a tag; a repeated tag replaces the text
func (s *SQLStore) Put(ctx context.Context, sessionID, tag, text string) error {
	query := fmt.Sprintf(`
		INSERT INTO story_chunks (session_id, tag, text, created_at)
		VALUES (%s, %s, %s, %s)
		ON CONFLICT (session_id, tag) DO UPDATE SET
			text = excluded.text,
			created_at = excluded.created_at
	`, s.binds(4)...)
	if _, err := s.db.ExecContext(ctx, query, sessionID, tag, text, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to archive narrative: %w", err)
	}
	return nil
}

// Get returns archived narrative text
func (s *SQLStore) Get(ctx context.Context, sessionID, tag string) (string, error) {
	var text string
	query := fmt.Sprintf("SELECT text FROM story_chunks WHERE session_id = %s AND tag = %s", s.binds(2)...)
	err := s.db.QueryRowContext(ctx, query, sessionID, tag).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.ErrArchiveNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read archived narrative: %w", err)
	}
	return text, nil
}

// Purge removes everything archived for a session
func (s *SQLStore) Purge(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf("DELETE FROM story_chunks WHERE session_id = %s", s.bind(1))
	if _, err := s.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to purge archived narrative: %w", err)
	}
	return nil
}

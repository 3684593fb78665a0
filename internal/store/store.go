// Package store owns the household state. The whole document is held in
// memory and persisted to SQLite, one row per top-level collection.
// Readers get deep copies; writers go through Update, which persists the
// changed collections in a single transaction before publishing them.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	appLog "concierge/internal/log"
	"concierge/internal/model"
	"concierge/internal/store/migrations"
)

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDerivedDate is returned on attempts to edit or delete an important
	// date synthesized from an asset; the asset itself must be edited.
	ErrDerivedDate = errors.New("store: date is derived from an asset renewal")
	// ErrInvalid is returned when a record fails validation.
	ErrInvalid = errors.New("store: invalid record")
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

type Option func(*Store)

// WithClock overrides the clock used for timestamps and seed dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the timezone seed dates are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithoutSeed leaves a fresh database empty instead of writing the demo
// household.
func WithoutSeed() Option {
	return func(s *Store) { s.seed = false }
}

type Store struct {
	db *sql.DB

	mu    sync.RWMutex
	state *model.State
	docs  map[string]json.RawMessage

	now  func() time.Time
	loc  *time.Location
	seed bool
}

// Open opens (creating if needed) the database at path, applies migrations
// and loads the state. An empty database is seeded unless WithoutSeed is
// given.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: data path is empty")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// One connection: SQLite has a single writer, and each connection to
	// ":memory:" would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	s := &Store{
		db:   db,
		now:  time.Now,
		loc:  time.Local,
		seed: true,
	}
	for _, o := range opts {
		o(s)
	}

	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if len(s.docs) == 0 && s.seed {
		appLog.Info("store: seeding demo household", "path", path)
		if err := s.Replace(ctx, SeedState(s.now().In(s.loc))); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// RunMigrations applies the embedded schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	appLog.Debug("goose: " + fmt.Sprintf(format, v...))
}

func (gooseLogger) Fatalf(format string, v ...any) {
	appLog.Error("goose: fatal", fmt.Errorf(format, v...))
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() *model.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Update applies fn to a copy of the state and persists the result. If fn
// or the write fails, the state is unchanged.
func (s *Store) Update(ctx context.Context, fn func(*model.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	return s.commit(ctx, next)
}

// Replace swaps in a whole new state, as done by bulk import.
func (s *Store) Replace(ctx context.Context, state *model.State) error {
	if state == nil {
		return errors.New("store: nil state")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, state.Clone())
}

func (s *Store) load(ctx context.Context) error {
	docs, err := readDocuments(ctx, s.db)
	if err != nil {
		return err
	}

	state := model.NewState()
	if len(docs) > 0 {
		raw, err := json.Marshal(docs)
		if err != nil {
			return fmt.Errorf("store: assemble state: %w", err)
		}
		if err := json.Unmarshal(raw, state); err != nil {
			return fmt.Errorf("store: decode state: %w", err)
		}
		state.Normalize()
	}

	s.state = state
	s.docs = docs
	return nil
}

func (s *Store) commit(ctx context.Context, next *model.State) error {
	next.Normalize()
	docs, err := splitDocuments(next)
	if err != nil {
		return err
	}

	changed := make([]string, 0, len(docs))
	for key, body := range docs {
		if old, ok := s.docs[key]; !ok || !bytes.Equal(old, body) {
			changed = append(changed, key)
		}
	}
	sort.Strings(changed)

	if len(changed) > 0 {
		stamp := s.now().UnixMilli()
		err = withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
			for _, key := range changed {
				if err := writeDocument(ctx, tx, key, docs[key], stamp); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("store: persist: %w", err)
		}
		appLog.Debug("store: persisted collections", "keys", changed)
	}

	s.state = next
	s.docs = docs
	return nil
}

// splitDocuments breaks the state into its top-level JSON fields.
func splitDocuments(state *model.State) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("store: encode state: %w", err)
	}
	docs := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("store: split state: %w", err)
	}
	return docs, nil
}

func readDocuments(ctx context.Context, db DBTX) (map[string]json.RawMessage, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, body FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("store: read documents: %w", err)
	}
	defer rows.Close()

	docs := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("store: scan document: %w", err)
		}
		docs[key] = json.RawMessage(body)
	}
	return docs, rows.Err()
}

func writeDocument(ctx context.Context, db DBTX, key string, body json.RawMessage, stamp int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, string(body), stamp)
	if err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	return nil
}

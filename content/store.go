package content

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps a SQLite database and exposes one repository per record type.
type Store struct {
	db  *sql.DB
	now func() time.Time
	bus *Bus

	Listings  *Listings
	Posts     *Posts
	Portfolio *Portfolio
	Users     *Users
	Pages     *Pages
	Invoices  *Invoices
	Messages  *Messages
	Images    *Images
	Homepage  *Homepage
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and publish dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithBus makes the store publish homepage and import events on b.
func WithBus(b *Bus) Option {
	return func(s *Store) { s.bus = b }
}

// Open opens (or creates) the SQLite database at path, ensures the data
// directory exists, and applies pending migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// WAL lets readers proceed while the admin writes; busy_timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = NewBus(nil)
	}
	s.Listings = &Listings{s}
	s.Posts = &Posts{s}
	s.Portfolio = &Portfolio{s}
	s.Users = &Users{s}
	s.Pages = &Pages{s}
	s.Invoices = &Invoices{s}
	s.Messages = &Messages{s}
	s.Images = &Images{s}
	s.Homepage = &Homepage{s}
	return s, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Bus returns the bus mutations are announced on.
func (s *Store) Bus() *Bus {
	return s.bus
}

func (s *Store) publish(kind Kind, op Op, id string) {
	s.bus.Publish(Event{Kind: kind, Op: op, ID: id, At: s.now().UTC()})
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Today is the current calendar day according to the store clock.
func (s *Store) Today() Date {
	return DateOf(s.now())
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetSetting returns the value stored under key, or "" when absent.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSetting upserts a settings value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return setSetting(ctx, s.db, key, value)
}

func setSetting(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Counts returns the number of records per dispatchable kind plus invoices
// and unread messages, for the admin dashboard.
func (s *Store) Counts(ctx context.Context) (map[Kind]int, error) {
	tables := map[Kind]string{
		KindListings:  "listings",
		KindBlogPosts: "blog_posts",
		KindPortfolio: "portfolio_items",
		KindUsers:     "users",
		KindPages:     "pages",
		KindInvoices:  "invoices",
	}
	out := make(map[Kind]int, len(tables)+1)
	for kind, table := range tables {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out[kind] = n
	}
	var unread int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_messages WHERE read = 0`).Scan(&unread); err != nil {
		return nil, fmt.Errorf("count unread messages: %w", err)
	}
	out[KindMessages] = unread
	return out, nil
}

func newID() string {
	return uuid.NewString()
}

// reUniqueColumn captures the column of a unique violation, e.g.
// "UNIQUE constraint failed: users.email (2067)".
var reUniqueColumn = regexp.MustCompile(`UNIQUE constraint failed: \w+\.(\w+)`)

// mapWriteErr converts driver errors into package sentinels.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if m := reUniqueColumn.FindStringSubmatch(err.Error()); m != nil {
		return fmt.Errorf("%w: %s already in use", ErrConflict, m[1])
	}
	return err
}

func mapReadErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// requireAffected turns a zero-row update/delete into ErrNotFound.
func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return mapWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// stamp fills the bookkeeping fields of a new or updated record. New records
// always get a fresh ID; snapshots keep theirs because Restore bypasses it.
func stamp(id *string, created, updated *time.Time, now time.Time, isNew bool) {
	now = now.UTC()
	if isNew {
		*id = newID()
		*created = now
	}
	*updated = now
}

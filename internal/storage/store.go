// internal/storage/store.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"mcp-plan-generator/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultPlanDays = 28
	sqlitePragmas   = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	// Fixed-width fraction keeps TEXT timestamps sortable.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLStorage persists catalog, training and nutrition plans through
// database/sql. SQLite (modernc) and Postgres (lib/pq) share one schema.
type SQLStorage struct {
	db       *sql.DB
	driver   string
	logger   *zap.Logger
	now      func() time.Time
	planDays int
}

type Option func(*SQLStorage)

// WithPlanDays sets how many days a new training plan runs.
func WithPlanDays(days int) Option {
	return func(s *SQLStorage) {
		if days > 0 {
			s.planDays = days
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStorage) { s.now = now }
}

func NewSQLStorage(driver, dsn string, logger *zap.Logger, opts ...Option) (*SQLStorage, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "_pragma=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + sqlitePragmas
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite has a single writer; one connection keeps transactions
		// from tripping over each other's locks.
		db.SetMaxOpenConns(1)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	storage := &SQLStorage{
		db:       db,
		driver:   driver,
		logger:   logger,
		now:      time.Now,
		planDays: defaultPlanDays,
	}
	for _, opt := range opts {
		opt(storage)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates missing tables and indexes.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// rebind turns ? placeholders into $n for Postgres.
func (s *SQLStorage) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// inTx runs fn in one transaction and rolls back on any error.
func (s *SQLStorage) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &models.PersistenceError{Op: "start transaction for " + op, Err: err}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &models.PersistenceError{Op: "commit " + op, Err: err}
	}
	return nil
}

// inTxRetryConflict retries fn once when a concurrent request for the same
// user won a unique constraint first, so the later request replaces it.
func (s *SQLStorage) inTxRetryConflict(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	err := s.inTx(ctx, op, fn)
	if err != nil && isUniqueViolation(err) {
		s.logger.Warn("concurrent write conflict, retrying",
			zap.String("op", op),
			zap.Error(err))
		err = s.inTx(ctx, op, fn)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// Package pgstore keeps licenses in PostgreSQL.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/cheetahbyte/licensor/internal/license"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

var ErrEmptyDSN = errors.New("postgres dsn cannot be empty")

const licenseColumns = `key, max_accounts, bound_accounts, expiry, status, created_at`

const (
	lookupLicense = `SELECT ` + licenseColumns + ` FROM licenses WHERE key = $1`

	insertLicense = `INSERT INTO licenses (key, max_accounts, bound_accounts, expiry, status, created_at)
VALUES ($1, $2, '{}', $3, $4, $5)
RETURNING ` + licenseColumns

	// Row locking makes a concurrent update re-evaluate the WHERE clause against
	// the committed row, so the seat check and the append cannot interleave.
	appendAccount = `UPDATE licenses
SET bound_accounts = array_append(bound_accounts, $2)
WHERE key = $1
  AND NOT ($2 = ANY(bound_accounts))
  AND cardinality(bound_accounts) < max_accounts
RETURNING ` + licenseColumns
)

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open creates a pool for dsn and applies pending migrations.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres store connected")
	return &Store{pool: pool, now: time.Now}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

func scanLicense(row pgx.Row) (license.License, error) {
	var (
		l      license.License
		status string
	)
	if err := row.Scan(&l.Key, &l.MaxAccounts, &l.BoundAccounts, &l.Expiry, &status, &l.CreatedAt); err != nil {
		return license.License{}, err
	}
	l.Status = license.Status(status)
	if l.BoundAccounts == nil {
		l.BoundAccounts = []int64{}
	}
	if l.Expiry != nil {
		e := l.Expiry.UTC()
		l.Expiry = &e
	}
	return l, nil
}

func (s *Store) Lookup(ctx context.Context, key string) (license.License, error) {
	l, err := scanLicense(s.pool.QueryRow(ctx, lookupLicense, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return license.License{}, license.ErrNotFound
	}
	if err != nil {
		return license.License{}, fmt.Errorf("postgres lookup license: %w", err)
	}
	return l, nil
}

func (s *Store) Insert(ctx context.Context, n license.NewLicense) (license.License, error) {
	if err := n.Validate(); err != nil {
		return license.License{}, err
	}

	rec := n.Build(s.now())
	l, err := scanLicense(s.pool.QueryRow(ctx, insertLicense,
		rec.Key, rec.MaxAccounts, rec.Expiry, string(rec.Status), rec.CreatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return license.License{}, fmt.Errorf("insert %q: %w", n.Key, license.ErrDuplicateKey)
		}
		return license.License{}, fmt.Errorf("postgres insert license: %w", err)
	}
	return l, nil
}

func (s *Store) AppendAccount(ctx context.Context, key string, account int64) (license.License, error) {
	l, err := scanLicense(s.pool.QueryRow(ctx, appendAccount, key, account))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return license.License{}, fmt.Errorf("postgres append account: %w", err)
	}

	current, err := s.Lookup(ctx, key)
	if err != nil {
		return license.License{}, err
	}
	if current.HasAccount(account) {
		return current, nil
	}
	return license.License{}, license.ErrAccountLimitExceeded
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

// Pool exposes the connection pool for maintenance tasks and tests.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

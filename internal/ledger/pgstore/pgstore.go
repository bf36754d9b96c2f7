// Package pgstore is the PostgreSQL ledger.Store used by tangle-node when STORE=postgres.
//
// The schema is embedded and applied with goose on startup (see Migrate).
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Options configures the connection pool
type Options struct {
	DatabaseURL     string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	PingTimeout     time.Duration
}

// Store implements ledger.Store on a pgx connection pool
type Store struct {
	pool *pgxpool.Pool
}

var _ ledger.Store = (*Store)(nil)

// Open creates the connection pool and checks the database is reachable.
func Open(ctx context.Context, opts Options) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	poolConfig.MinConns = opts.MinConns
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("can't ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool. The store closes the pool on Close.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the connection pool to other components sharing the database
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate applies all pending goose migrations
func (s *Store) Migrate(ctx context.Context) error {
	// goose expects a database/sql connection
	var db *sql.DB = stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (s *Store) CreateChannel(ctx context.Context, ch *ledger.Channel, announce *ledger.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.WrapInternalError(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO channels (address, author_key, announce_id, restricted, last_seq, created_at)
		VALUES ($1, $2, $3, $4, 1, $5)`,
		ch.Address, ch.AuthorKey, ch.AnnounceID, ch.Restricted, ch.CreatedAt)
	if err != nil {
		return mapError(err, "channel "+ch.Address)
	}

	stored := *announce
	stored.Seq = 1
	if err := insertMessage(ctx, tx, &stored); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return ledger.WrapInternalError(err, "failed to commit channel")
	}
	return nil
}

func (s *Store) GetChannel(ctx context.Context, address string) (*ledger.Channel, error) {
	var ch ledger.Channel
	err := s.pool.QueryRow(ctx, `
		SELECT address, author_key, announce_id, restricted, created_at
		FROM channels WHERE address = $1`, address).
		Scan(&ch.Address, &ch.AuthorKey, &ch.AnnounceID, &ch.Restricted, &ch.CreatedAt)
	if err != nil {
		return nil, mapError(err, "channel "+address)
	}
	return &ch, nil
}

func (s *Store) PutSubscription(ctx context.Context, sub *ledger.Subscription) (*ledger.Subscription, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (channel_address, public_key, message_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_address, public_key) DO NOTHING`,
		sub.ChannelAddress, sub.PublicKey, sub.MessageID, sub.CreatedAt)
	if err != nil {
		return nil, mapError(err, "channel "+sub.ChannelAddress)
	}
	return s.GetSubscription(ctx, sub.ChannelAddress, sub.PublicKey)
}

func (s *Store) GetSubscription(ctx context.Context, channelAddress, publicKey string) (*ledger.Subscription, error) {
	sub := ledger.Subscription{Role: ledger.RoleSubscriber}
	err := s.pool.QueryRow(ctx, `
		SELECT channel_address, public_key, message_id, created_at
		FROM subscriptions WHERE channel_address = $1 AND public_key = $2`,
		channelAddress, publicKey).
		Scan(&sub.ChannelAddress, &sub.PublicKey, &sub.MessageID, &sub.CreatedAt)
	if err != nil {
		return nil, mapError(err, "subscription")
	}
	return &sub, nil
}

func (s *Store) AppendMessage(ctx context.Context, m *ledger.Message) (*ledger.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, ledger.WrapInternalError(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// the row lock taken by the update serialises writers of the same channel
	var seq int64
	err = tx.QueryRow(ctx, `
		UPDATE channels SET last_seq = last_seq + 1
		WHERE address = $1
		RETURNING last_seq`, m.ChannelAddress).Scan(&seq)
	if err != nil {
		return nil, mapError(err, "channel "+m.ChannelAddress)
	}

	stored := *m
	stored.Seq = uint64(seq)
	if err := insertMessage(ctx, tx, &stored); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, ledger.WrapInternalError(err, "failed to commit message")
	}
	return &stored, nil
}

const messageColumns = `id, channel_address, seq, version, kind, link_id, public_key, nonce, payload, restricted, signature, created_at`

func (s *Store) GetMessage(ctx context.Context, channelAddress, id string) (*ledger.Message, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+messageColumns+`
		FROM messages WHERE channel_address = $1 AND id = $2`, channelAddress, id)
	m, err := scanMessage(row)
	if err != nil {
		return nil, mapError(err, "message "+id)
	}
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, q ledger.ListQuery) ([]*ledger.Message, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = ledger.DefaultListLimit
	}
	rows, err := s.pool.Query(ctx, `SELECT `+messageColumns+`
		FROM messages
		WHERE channel_address = $1
		  AND seq > $2
		  AND kind = $3
		  AND ($4 = '' OR link_id = $4)
		ORDER BY seq
		LIMIT $5`,
		q.ChannelAddress, int64(q.AfterSeq), string(ledger.KindSignedPacket), q.LinkID, limit)
	if err != nil {
		return nil, ledger.WrapInternalError(err, "failed to list messages")
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ledger.Message, error) {
		return scanMessage(row)
	})
	if err != nil {
		return nil, ledger.WrapInternalError(err, "failed to read messages")
	}
	if out == nil {
		out = []*ledger.Message{}
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return ledger.WrapInternalError(err, "database ping failed")
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func insertMessage(ctx context.Context, tx pgx.Tx, m *ledger.Message) error {
	_, err := tx.Exec(ctx, `INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.ChannelAddress, int64(m.Seq), m.Version, string(m.Kind), m.LinkID,
		m.PublicKey, m.Nonce, m.Payload, m.Restricted, m.Signature, m.Timestamp)
	if err != nil {
		return mapError(err, "message "+m.ID)
	}
	return nil
}

func scanMessage(row pgx.Row) (*ledger.Message, error) {
	var (
		m    ledger.Message
		seq  int64
		kind string
	)
	err := row.Scan(&m.ID, &m.ChannelAddress, &seq, &m.Version, &kind, &m.LinkID,
		&m.PublicKey, &m.Nonce, &m.Payload, &m.Restricted, &m.Signature, &m.Timestamp)
	if err != nil {
		return nil, err
	}
	m.Seq = uint64(seq)
	m.Kind = ledger.Kind(kind)
	m.Timestamp = m.Timestamp.UTC()
	return &m, nil
}

func mapError(err error, subject string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.NewNotFoundError(subject + " not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ledger.NewConflictError(subject + " already exists")
		case pgForeignKeyViolation:
			return ledger.NewNotFoundError(subject + " references an unknown channel")
		}
	}
	return ledger.WrapInternalError(err, "database error")
}

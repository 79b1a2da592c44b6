package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by all repositories when a lookup misses,
// regardless of the backing store.
var ErrNotFound = errors.New("not found")

// Store aggregates the per-entity repositories behind one injected value,
// so services can run against postgres in production and the in-memory
// implementation in tests. WithTx runs fn against a transaction-bound Store;
// if fn returns an error every write inside it is rolled back.
type Store interface {
	Users() UserRepository
	Chats() ChatRepository
	Escrows() EscrowRepository
	Disputes() DisputeRepository
	Transactions() TransactionRepository
	Wallets() WalletRepository
	Notifications() NotificationRepository
	Audit() AuditRepository

	WithTx(ctx context.Context, fn func(Store) error) error
}

// DB is the subset of pgxpool.Pool and pgx.Tx the repositories need.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgStore is the postgres-backed Store.
type PgStore struct {
	pool *pgxpool.Pool
	db   DB

	users         *PgUserRepo
	chats         *PgChatRepo
	escrows       *PgEscrowRepo
	disputes      *PgDisputeRepo
	transactions  *PgTransactionRepo
	wallets       *PgWalletRepo
	notifications *PgNotificationRepo
	audit         *PgAuditRepo
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return newPgStore(pool, pool)
}

func newPgStore(pool *pgxpool.Pool, db DB) *PgStore {
	return &PgStore{
		pool:          pool,
		db:            db,
		users:         &PgUserRepo{db: db},
		chats:         &PgChatRepo{db: db},
		escrows:       &PgEscrowRepo{db: db},
		disputes:      &PgDisputeRepo{db: db},
		transactions:  &PgTransactionRepo{db: db},
		wallets:       &PgWalletRepo{db: db},
		notifications: &PgNotificationRepo{db: db},
		audit:         &PgAuditRepo{db: db},
	}
}

func (s *PgStore) Users() UserRepository                 { return s.users }
func (s *PgStore) Chats() ChatRepository                 { return s.chats }
func (s *PgStore) Escrows() EscrowRepository             { return s.escrows }
func (s *PgStore) Disputes() DisputeRepository           { return s.disputes }
func (s *PgStore) Transactions() TransactionRepository   { return s.transactions }
func (s *PgStore) Wallets() WalletRepository             { return s.wallets }
func (s *PgStore) Notifications() NotificationRepository { return s.notifications }
func (s *PgStore) Audit() AuditRepository                { return s.audit }

func (s *PgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(newPgStore(s.pool, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

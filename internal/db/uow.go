package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUnavailable = errors.New("store unavailable")
	ErrTxActive    = errors.New("transaction already active")
	ErrNoTx        = errors.New("no active transaction")
	ErrReleased    = errors.New("unit of work already released")
)

// Querier is the part of pgx the repositories use. *pgxpool.Conn and pgx.Tx
// both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UnitOfWork is one checked-out connection plus an optional transaction.
// It belongs to a single request and is not safe for concurrent use.
type UnitOfWork interface {
	Querier() Querier
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Release()
}

type pooledConn interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PoolUnitOfWorkFactory struct {
	pool *pgxpool.Pool
}

func NewUnitOfWorkFactory(pool *pgxpool.Pool) *PoolUnitOfWorkFactory {
	return &PoolUnitOfWorkFactory{pool: pool}
}

// New acquires a connection, waiting until one frees up or ctx is done.
func (f *PoolUnitOfWorkFactory) New(ctx context.Context) (UnitOfWork, error) {
	conn, err := f.pool.Acquire(ctx)

	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", errors.Join(ErrUnavailable, err))
	}

	return newPoolUnitOfWork(conn, conn.Release), nil
}

type PoolUnitOfWork struct {
	conn     pooledConn
	release  func()
	tx       pgx.Tx
	released bool
}

func newPoolUnitOfWork(conn pooledConn, release func()) *PoolUnitOfWork {
	return &PoolUnitOfWork{conn: conn, release: release}
}

// Querier returns the open transaction, or the bare connection when none is open.
func (u *PoolUnitOfWork) Querier() Querier {
	if u.tx != nil {
		return u.tx
	}

	return u.conn
}

func (u *PoolUnitOfWork) Begin(ctx context.Context) error {
	if u.released {
		return ErrReleased
	}

	if u.tx != nil {
		return ErrTxActive
	}

	tx, err := u.conn.Begin(ctx)

	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	u.tx = tx

	return nil
}

func (u *PoolUnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return ErrNoTx
	}

	tx := u.tx
	u.tx = nil

	err := tx.Commit(ctx)

	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (u *PoolUnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return ErrNoTx
	}

	tx := u.tx
	u.tx = nil

	err := tx.Rollback(ctx)

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}

	return nil
}

// Release rolls back anything still open and hands the connection back.
// Calling it more than once is a no-op.
func (u *PoolUnitOfWork) Release() {
	if u.released {
		return
	}

	if u.tx != nil {
		_ = u.Rollback(context.Background())
	}

	u.released = true

	if u.release != nil {
		u.release()
	}
}

// RunInTx begins a transaction on uow, runs fn and commits when fn succeeds.
// On error or panic the transaction is rolled back; panics are rethrown.
func RunInTx(ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) error) (err error) {
	err = uow.Begin(ctx)

	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback(ctx)
			panic(p)
		}

		if err != nil {
			_ = uow.Rollback(ctx)
			return
		}

		err = uow.Commit(ctx)
	}()

	err = fn(ctx)

	return err
}

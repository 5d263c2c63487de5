// Package tx carries a SQL transaction through context so stores can join an
// enclosing unit of work without changing their method signatures.
package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "supplierhub/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// DefaultTimeout bounds a transaction when the caller set no deadline.
const DefaultTimeout = 5 * time.Second

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Executor is the subset of *sql.DB and *sql.Tx used by stores.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ExecutorFrom returns the transaction in ctx, or db when there is none.
func ExecutorFrom(ctx context.Context, db *sql.DB) Executor {
	if t, ok := From(ctx); ok {
		return t
	}
	return db
}

// Manager runs a function inside a unit of work.
type Manager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PostgresManager opens a database transaction per RunInTx call and commits
// only when fn returns nil.
type PostgresManager struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresManager(db *sql.DB) *PostgresManager {
	return &PostgresManager{db: db, timeout: DefaultTimeout}
}

func (m *PostgresManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	// Nested calls join the outer transaction.
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	ctx, cancel := withDefaultTimeout(ctx, m.timeout)
	defer cancel()

	sqlTx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// MemoryManager serializes units of work with a single lock. In-memory stores
// apply writes immediately and register the inverse with OnRollback; when fn
// fails the inverses run newest first.
type MemoryManager struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{timeout: DefaultTimeout}
}

type memoryTxKey struct{}

type memoryTx struct {
	undo []func()
}

// OnRollback registers undo to run if the enclosing in-memory transaction
// fails. Outside one it does nothing.
func OnRollback(ctx context.Context, undo func()) {
	if mtx, ok := ctx.Value(memoryTxKey{}).(*memoryTx); ok {
		mtx.undo = append(mtx.undo, undo)
	}
}

func (m *MemoryManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}

	ctx, cancel := withDefaultTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	mtx := &memoryTx{}
	if err := fn(context.WithValue(ctx, memoryTxKey{}, mtx)); err != nil {
		for i := len(mtx.undo) - 1; i >= 0; i-- {
			mtx.undo[i]()
		}
		return err
	}
	return nil
}

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

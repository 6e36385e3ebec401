package tx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dErrors "simtrack/pkg/domain-errors"
)

const defaultTxTimeout = 30 * time.Second

// SQLRunner runs units of work inside database transactions. Nested calls
// join the transaction already bound to the context instead of opening a
// second one.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

type SQLRunnerOption func(r *SQLRunner)

// WithTimeout bounds each transaction.
func WithTimeout(d time.Duration) SQLRunnerOption {
	return func(r *SQLRunner) {
		r.timeout = d
	}
}

// NewSQLRunner constructs a Runner over db.
func NewSQLRunner(db *sql.DB, opts ...SQLRunnerOption) *SQLRunner {
	r := &SQLRunner{db: db, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

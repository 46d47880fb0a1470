package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/tracing"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

const (
	postgresDriverName = "postgres"
	unlocked           = "NONE"

	maxTransactionRetries = 3
)

// serialization_failure and deadlock_detected are retried
var retryableCodes = map[pq.ErrorCode]struct{}{
	"40001": {},
	"40P01": {},
}

type PostgreSQL struct {
	db                *sqlx.DB
	q                 sqlx.ExtContext
	inTx              bool
	now               func() time.Time
	logger            *slog.Logger
	tracingEnabled    bool
	tracingAttributes []attribute.KeyValue
}

func WithNow(nowFunc func() time.Time) func(*PostgreSQL) {
	return func(p *PostgreSQL) {
		p.now = nowFunc
	}
}

func WithLogger(logger *slog.Logger) func(*PostgreSQL) {
	return func(p *PostgreSQL) {
		p.logger = logger
	}
}

func WithTracer(attr ...attribute.KeyValue) func(*PostgreSQL) {
	return func(p *PostgreSQL) {
		p.tracingEnabled = true
		if len(attr) > 0 {
			p.tracingAttributes = append(p.tracingAttributes, attr...)
		}
	}
}

func New(dbInfo string, idleConns int, maxOpenConns int, opts ...func(postgreSQL *PostgreSQL)) (*PostgreSQL, error) {
	db, err := sqlx.Open(postgresDriverName, dbInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres DB: %+v", err)
	}

	db.SetMaxIdleConns(idleConns)
	db.SetMaxOpenConns(maxOpenConns)

	p := &PostgreSQL{
		db:     db,
		q:      db,
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.logger = p.logger.With(slog.String("module", "postgres-store"))

	return p, nil
}

func (p *PostgreSQL) InTransaction(ctx context.Context, name string, fn func(ctx context.Context, tx store.Tx) error) (err error) {
	if p.inTx {
		return fn(ctx, p)
	}

	ctx, span := tracing.StartTracing(ctx, "InTransaction."+name, p.tracingEnabled, p.tracingAttributes...)
	defer func() {
		tracing.EndTracing(span, err)
	}()

	attempt := 0
	op := func() error {
		attempt++
		opErr := p.runInTransaction(ctx, fn)
		if opErr == nil {
			return nil
		}

		var pqErr *pq.Error
		if errors.As(opErr, &pqErr) {
			if _, ok := retryableCodes[pqErr.Code]; ok {
				p.logger.Warn("Retrying storage transaction", slog.String("name", name), slog.Int("attempt", attempt), slog.String("err", opErr.Error()))
				return opErr
			}
		}

		return backoff.Permanent(opErr)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxTransactionRetries), ctx)
	err = backoff.Retry(op, bo)
	if err != nil {
		return errors.Join(store.ErrTransactionFailed, fmt.Errorf("transaction %s: %w", name, err))
	}

	return nil
}

func (p *PostgreSQL) runInTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	dbTx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	child := &PostgreSQL{
		db:                p.db,
		q:                 dbTx,
		inTx:              true,
		now:               p.now,
		logger:            p.logger,
		tracingEnabled:    p.tracingEnabled,
		tracingAttributes: p.tracingAttributes,
	}

	err = fn(ctx, child)
	if err != nil {
		rollbackErr := dbTx.Rollback()
		if rollbackErr != nil {
			return errors.Join(err, fmt.Errorf("failed to rollback: %w", rollbackErr))
		}
		return err
	}

	return dbTx.Commit()
}

// ClaimRequests locks the matching unlocked requests for lockedBy, least recently updated first.
// Rows held by any instance, this one included, or by a concurrent claim are skipped.
func (p *PostgreSQL) ClaimRequests(ctx context.Context, filter store.ClaimFilter, lockedBy string) ([]*txreq.Request, error) {
	q := `
		UPDATE txlifecycle.requests r
		SET locked_by = $1, updated_at = $5
		WHERE r.id IN (
			SELECT r2.id
			FROM txlifecycle.requests r2
			WHERE r2.locked_by = 'NONE'
			AND r2.status = ANY($2)
			AND (cardinality($3::text[]) = 0 OR r2.txid = ANY($3))
			ORDER BY r2.updated_at, r2.id
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + requestColumns + `;`

	limit := sql.NullInt64{Int64: filter.Limit, Valid: filter.Limit > 0}
	txIDs := filter.TxIDs
	if txIDs == nil {
		txIDs = []string{}
	}

	var rows []requestRow
	err := sqlx.SelectContext(ctx, p.q, &rows, q, lockedBy, pq.Array(statusStrings(filter.Statuses)), pq.Array(txIDs), limit, p.now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim requests: %w", err)
	}

	return toRequests(rows)
}

func (p *PostgreSQL) SetUnlocked(ctx context.Context, txIDs []string) error {
	q := `UPDATE txlifecycle.requests SET locked_by = 'NONE' WHERE txid = ANY($1);`

	_, err := p.q.ExecContext(ctx, q, pq.Array(txIDs))
	if err != nil {
		return err
	}

	return nil
}

func (p *PostgreSQL) SetUnlockedByName(ctx context.Context, lockedBy string) (int64, error) {
	q := "UPDATE txlifecycle.requests SET locked_by = 'NONE' WHERE locked_by = $1;"

	rows, err := p.q.ExecContext(ctx, q, lockedBy)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := rows.RowsAffected()
	if err != nil {
		return 0, err
	}

	return rowsAffected, nil
}

func (p *PostgreSQL) GetStats(ctx context.Context) (*store.Stats, error) {
	q := `
		SELECT
			r.status,
			count(*)
		FROM
			txlifecycle.requests r
		GROUP BY
			r.status
	;
	`
	rows, err := p.q.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &store.Stats{Requests: make(map[txreq.Status]int64)}
	for rows.Next() {
		var status string
		var count int64
		err = rows.Scan(&status, &count)
		if err != nil {
			return nil, err
		}

		parsed, err := txreq.ParseStatus(status)
		if err != nil {
			p.logger.Warn("Unknown request status in storage", slog.String("status", status))
			continue
		}
		stats.Requests[parsed] = count
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func (p *PostgreSQL) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

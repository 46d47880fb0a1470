package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

const requestColumns = `id, txid, raw_tx, input_beef, status, batch, attempts, notify, history, locked_by, created_at, updated_at`

type requestRow struct {
	ID        int64     `db:"id"`
	TxID      string    `db:"txid"`
	RawTx     []byte    `db:"raw_tx"`
	InputBeef []byte    `db:"input_beef"`
	Status    string    `db:"status"`
	Batch     string    `db:"batch"`
	Attempts  int       `db:"attempts"`
	Notify    []byte    `db:"notify"`
	History   []byte    `db:"history"`
	LockedBy  string    `db:"locked_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r requestRow) toRequest() (*txreq.Request, error) {
	status, err := txreq.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}

	req := &txreq.Request{
		ID:        r.ID,
		TxID:      r.TxID,
		RawTx:     r.RawTx,
		InputBeef: r.InputBeef,
		Status:    status,
		Batch:     r.Batch,
		Attempts:  r.Attempts,
		LockedBy:  r.LockedBy,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}

	if len(r.Notify) > 0 {
		err = json.Unmarshal(r.Notify, &req.Notify)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal notify of %s: %w", r.TxID, err)
		}
	}

	if len(r.History) > 0 {
		err = json.Unmarshal(r.History, &req.History)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal history of %s: %w", r.TxID, err)
		}
	}

	return req, nil
}

func toRequests(rows []requestRow) ([]*txreq.Request, error) {
	requests := make([]*txreq.Request, 0, len(rows))
	for _, row := range rows {
		req, err := row.toRequest()
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, nil
}

func encodeRequest(req *txreq.Request) (notify []byte, history []byte, err error) {
	n := req.Notify
	if n.TransactionIDs == nil {
		n.TransactionIDs = []int64{}
	}
	notify, err = json.Marshal(n)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal notify: %w", err)
	}

	h := req.History
	if h == nil {
		h = txreq.History{}
	}
	history, err = json.Marshal(h)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	return notify, history, nil
}

func statusStrings(statuses []txreq.Status) []string {
	result := make([]string, len(statuses))
	for i, status := range statuses {
		result[i] = string(status)
	}

	return result
}

func (p *PostgreSQL) GetRequest(ctx context.Context, txID string) (*txreq.Request, error) {
	return p.getRequest(ctx, txID, false)
}

func (p *PostgreSQL) GetRequestForUpdate(ctx context.Context, txID string) (*txreq.Request, error) {
	return p.getRequest(ctx, txID, true)
}

func (p *PostgreSQL) getRequest(ctx context.Context, txID string, forUpdate bool) (*txreq.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM txlifecycle.requests WHERE txid = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}

	var row requestRow
	err := sqlx.GetContext(ctx, p.q, &row, q, txID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return row.toRequest()
}

func (p *PostgreSQL) GetRequests(ctx context.Context, txIDs []string) ([]*txreq.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM txlifecycle.requests WHERE txid = ANY($1) ORDER BY id;`

	var rows []requestRow
	err := sqlx.SelectContext(ctx, p.q, &rows, q, pq.Array(txIDs))
	if err != nil {
		return nil, err
	}

	return toRequests(rows)
}

func (p *PostgreSQL) ListRequests(ctx context.Context, statuses []txreq.Status, limit int64) ([]*txreq.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM txlifecycle.requests WHERE status = ANY($1) ORDER BY id LIMIT $2;`

	var rows []requestRow
	err := sqlx.SelectContext(ctx, p.q, &rows, q, pq.Array(statusStrings(statuses)), sql.NullInt64{Int64: limit, Valid: limit > 0})
	if err != nil {
		return nil, err
	}

	return toRequests(rows)
}

func (p *PostgreSQL) InsertOrMergeRequest(ctx context.Context, req *txreq.Request) (*txreq.Request, error) {
	existing, err := p.getRequest(ctx, req.TxID, true)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	merged := *req
	if existing != nil {
		err = merged.MergeExisting(existing)
		if err != nil {
			return nil, err
		}

		err = p.UpdateRequest(ctx, &merged)
		if err != nil {
			return nil, err
		}

		return &merged, nil
	}

	notify, history, err := encodeRequest(&merged)
	if err != nil {
		return nil, err
	}

	now := p.now()
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = now
	}
	merged.UpdatedAt = now
	if merged.LockedBy == "" {
		merged.LockedBy = unlocked
	}

	q := `INSERT INTO txlifecycle.requests (
		 txid
		,raw_tx
		,input_beef
		,status
		,batch
		,attempts
		,notify
		,history
		,locked_by
		,created_at
		,updated_at
	) VALUES (
		 $1
		,$2
		,$3
		,$4
		,$5
		,$6
		,$7
		,$8
		,$9
		,$10
		,$11
	) ON CONFLICT (txid) DO NOTHING
	RETURNING id;`

	err = p.q.QueryRowxContext(ctx, q,
		merged.TxID,
		merged.RawTx,
		merged.InputBeef,
		string(merged.Status),
		merged.Batch,
		merged.Attempts,
		notify,
		history,
		merged.LockedBy,
		merged.CreatedAt,
		merged.UpdatedAt,
	).Scan(&merged.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// inserted concurrently
			return p.InsertOrMergeRequest(ctx, req)
		}
		return nil, fmt.Errorf("failed to insert request %s: %w", req.TxID, err)
	}

	return &merged, nil
}

func (p *PostgreSQL) UpdateRequest(ctx context.Context, req *txreq.Request) error {
	notify, history, err := encodeRequest(req)
	if err != nil {
		return err
	}

	req.UpdatedAt = p.now()

	q := `UPDATE txlifecycle.requests SET
		 raw_tx = $2
		,input_beef = $3
		,status = $4
		,batch = $5
		,attempts = $6
		,notify = $7
		,history = $8
		,updated_at = $9
	WHERE txid = $1;`

	res, err := p.q.ExecContext(ctx, q,
		req.TxID,
		req.RawTx,
		req.InputBeef,
		string(req.Status),
		req.Batch,
		req.Attempts,
		notify,
		history,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update request %s: %w", req.TxID, err)
	}

	return expectRows(res, req.TxID)
}

func expectRows(res sql.Result, key any) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return errors.Join(store.ErrNotFound, fmt.Errorf("key: %v", key))
	}

	return nil
}

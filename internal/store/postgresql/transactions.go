package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

const (
	transactionColumns = `id, user_id, txid, status, reference, raw_tx, input_beef, is_outgoing, satoshis, description, created_at, updated_at`
	outputColumns      = `id, user_id, transaction_id, vout, satoshis, locking_script, txid, spendable, change, script_offset, script_length, spent_by, created_at, updated_at`
	commissionColumns  = `id, user_id, transaction_id, satoshis, locking_script, key_offset`
)

type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(clause string, arg any) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(c.args))))
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}

	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func (p *PostgreSQL) FindTransactions(ctx context.Context, filter store.TransactionFilter) ([]*store.Transaction, error) {
	c := &conditions{}
	if filter.ID != 0 {
		c.add("id = ?", filter.ID)
	}
	if len(filter.IDs) > 0 {
		c.add("id = ANY(?)", pq.Array(filter.IDs))
	}
	if filter.UserID != 0 {
		c.add("user_id = ?", filter.UserID)
	}
	if filter.Reference != "" {
		c.add("reference = ?", filter.Reference)
	}
	if filter.TxID != "" {
		c.add("txid = ?", filter.TxID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		c.add("status = ANY(?)", pq.Array(statuses))
	}

	q := `SELECT ` + transactionColumns + ` FROM txlifecycle.transactions` + c.where() + ` ORDER BY id;`

	var transactions []*store.Transaction
	err := sqlx.SelectContext(ctx, p.q, &transactions, q, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}

	return transactions, nil
}

func (p *PostgreSQL) FindOutputs(ctx context.Context, filter store.OutputFilter) ([]*store.Output, error) {
	c := &conditions{}
	if filter.TransactionID != 0 {
		c.add("transaction_id = ?", filter.TransactionID)
	}
	if filter.SpentBy != 0 {
		c.add("spent_by = ?", filter.SpentBy)
	}
	if filter.TxID != "" {
		c.add("txid = ?", filter.TxID)
	}

	q := `SELECT ` + outputColumns + ` FROM txlifecycle.outputs` + c.where() + ` ORDER BY transaction_id, vout;`

	var outputs []*store.Output
	err := sqlx.SelectContext(ctx, p.q, &outputs, q, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find outputs: %w", err)
	}

	return outputs, nil
}

func (p *PostgreSQL) FindCommission(ctx context.Context, transactionID int64) (*store.Commission, error) {
	q := `SELECT ` + commissionColumns + ` FROM txlifecycle.commissions WHERE transaction_id = $1;`

	commission := &store.Commission{}
	err := sqlx.GetContext(ctx, p.q, commission, q, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return commission, nil
}

func (p *PostgreSQL) UpdateTransaction(ctx context.Context, id int64, update store.TransactionUpdate) error {
	q := `UPDATE txlifecycle.transactions SET
		 status = $2
		,txid = CASE WHEN $3 = '' THEN txid ELSE $3 END
		,raw_tx = CASE WHEN $4 THEN NULL ELSE raw_tx END
		,input_beef = CASE WHEN $4 THEN NULL ELSE input_beef END
		,updated_at = $5
	WHERE id = $1;`

	res, err := p.q.ExecContext(ctx, q, id, string(update.Status), update.TxID, update.ClearStaging, p.now())
	if err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", id, err)
	}

	return expectRows(res, id)
}

func (p *PostgreSQL) UpdateTransactionsStatus(ctx context.Context, ids []int64, status txreq.TxStatus) error {
	if len(ids) == 0 {
		return nil
	}

	q := `UPDATE txlifecycle.transactions SET status = $2, updated_at = $3 WHERE id = ANY($1);`

	_, err := p.q.ExecContext(ctx, q, pq.Array(ids), string(status), p.now())
	if err != nil {
		return fmt.Errorf("failed to update status of transactions: %w", err)
	}

	return nil
}

func (p *PostgreSQL) UpdateOutput(ctx context.Context, id int64, update store.OutputUpdate) error {
	q := `UPDATE txlifecycle.outputs SET
		 txid = $2
		,spendable = $3
		,script_offset = $4
		,script_length = $5
		,locking_script = $6
		,updated_at = $7
	WHERE id = $1;`

	res, err := p.q.ExecContext(ctx, q, id, update.TxID, update.Spendable, update.ScriptOffset, update.ScriptLength, update.LockingScript, p.now())
	if err != nil {
		return fmt.Errorf("failed to update output %d: %w", id, err)
	}

	return expectRows(res, id)
}

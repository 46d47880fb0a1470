package store

import (
	"context"
	"errors"
	"time"

	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

var (
	ErrNotFound          = errors.New("record could not be found")
	ErrTransactionFailed = errors.New("storage transaction failed")
)

// Transaction is the wallet-level transaction row.
type Transaction struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	TxID        string         `db:"txid"`
	Status      txreq.TxStatus `db:"status"`
	Reference   string         `db:"reference"`
	RawTx       []byte         `db:"raw_tx"`
	InputBeef   []byte         `db:"input_beef"`
	IsOutgoing  bool           `db:"is_outgoing"`
	Satoshis    int64          `db:"satoshis"`
	Description string         `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type Output struct {
	ID            int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	TransactionID int64     `db:"transaction_id"`
	Vout          uint32    `db:"vout"`
	Satoshis      int64     `db:"satoshis"`
	LockingScript []byte    `db:"locking_script"`
	TxID          string    `db:"txid"`
	Spendable     bool      `db:"spendable"`
	Change        bool      `db:"change"`
	ScriptOffset  uint64    `db:"script_offset"`
	ScriptLength  uint64    `db:"script_length"`
	SpentBy       *int64    `db:"spent_by"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Commission is the service fee output a transaction is expected to pay.
type Commission struct {
	ID            int64  `db:"id"`
	UserID        int64  `db:"user_id"`
	TransactionID int64  `db:"transaction_id"`
	Satoshis      int64  `db:"satoshis"`
	LockingScript []byte `db:"locking_script"`
	KeyOffset     string `db:"key_offset"`
}

// TransactionFilter matches rows on every non-zero field.
type TransactionFilter struct {
	ID        int64
	IDs       []int64
	UserID    int64
	Reference string
	TxID      string
	Statuses  []txreq.TxStatus
}

type OutputFilter struct {
	TransactionID int64
	SpentBy       int64
	TxID          string
}

// TransactionUpdate sets the status of a transaction row. Clearing removes staged raw tx and input beef.
type TransactionUpdate struct {
	Status       txreq.TxStatus
	TxID         string
	ClearStaging bool
}

// OutputUpdate finalizes an output row. A nil LockingScript removes the inline copy.
type OutputUpdate struct {
	TxID          string
	Spendable     bool
	ScriptOffset  uint64
	ScriptLength  uint64
	LockingScript []byte
}

// ClaimFilter selects unlocked requests to lock for one dispatcher instance, least recently
// updated first. Limit 0 means no limit.
type ClaimFilter struct {
	TxIDs    []string
	Statuses []txreq.Status
	Limit    int64
}

type Stats struct {
	Requests map[txreq.Status]int64
}

func (s *Stats) Count(status txreq.Status) int64 {
	if s == nil || s.Requests == nil {
		return 0
	}

	return s.Requests[status]
}

type Reader interface {
	FindTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)
	FindOutputs(ctx context.Context, filter OutputFilter) ([]*Output, error)
	FindCommission(ctx context.Context, transactionID int64) (*Commission, error)
	GetRequest(ctx context.Context, txID string) (*txreq.Request, error)
	GetRequests(ctx context.Context, txIDs []string) ([]*txreq.Request, error)
	ListRequests(ctx context.Context, statuses []txreq.Status, limit int64) ([]*txreq.Request, error)
}

type Writer interface {
	// InsertOrMergeRequest stores req, merging notify set and history into an existing row for the same txid.
	InsertOrMergeRequest(ctx context.Context, req *txreq.Request) (*txreq.Request, error)
	// GetRequestForUpdate reads the request and locks its row until the surrounding transaction ends.
	GetRequestForUpdate(ctx context.Context, txID string) (*txreq.Request, error)
	UpdateRequest(ctx context.Context, req *txreq.Request) error
	UpdateTransaction(ctx context.Context, id int64, update TransactionUpdate) error
	UpdateTransactionsStatus(ctx context.Context, ids []int64, status txreq.TxStatus) error
	UpdateOutput(ctx context.Context, id int64, update OutputUpdate) error
}

// Tx is the view of the store inside a scoped transaction.
type Tx interface {
	Reader
	Writer
}

type Store interface {
	Tx

	// InTransaction runs fn in a storage transaction named name. All writes made through tx become visible together or not at all.
	InTransaction(ctx context.Context, name string, fn func(ctx context.Context, tx Tx) error) error

	ClaimRequests(ctx context.Context, filter ClaimFilter, lockedBy string) ([]*txreq.Request, error)
	SetUnlocked(ctx context.Context, txIDs []string) error
	SetUnlockedByName(ctx context.Context, lockedBy string) (int64, error)

	GetStats(ctx context.Context) (*Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

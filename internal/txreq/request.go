package txreq

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	DefaultMaxAttempts = 10
	// Unlocked is the lock owner of a request no dispatcher instance holds.
	Unlocked = "NONE"
)

var (
	ErrMissingRawTx       = errors.New("request has no raw transaction")
	ErrNoNotifyTargets    = errors.New("request has no transactions to notify")
	ErrAttemptsExceeded   = errors.New("request exceeded maximum number of attempts")
	ErrTerminalStatus     = errors.New("request is in a terminal status")
	ErrMismatchingRequest = errors.New("requests refer to different transactions")
)

// Notify lists the wallet transactions interested in the fate of a request.
type Notify struct {
	TransactionIDs []int64 `json:"transactionIds"`
}

// Request tracks one transaction from commitment until proof. It is a plain value: persistence
// belongs to the store, the network to the relays.
type Request struct {
	ID        int64
	TxID      string
	RawTx     []byte
	InputBeef []byte
	Status    Status
	Batch     string
	Attempts  int
	Notify    Notify
	History   History
	LockedBy  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(txID string, rawTx []byte, inputBeef []byte, status Status, now time.Time) *Request {
	return &Request{
		TxID:      txID,
		RawTx:     rawTx,
		InputBeef: inputBeef,
		Status:    status,
		LockedBy:  Unlocked,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddNotifyTransactionID adds id to the notify set. Returns false if it was already present.
func (r *Request) AddNotifyTransactionID(id int64) bool {
	if slices.Contains(r.Notify.TransactionIDs, id) {
		return false
	}

	r.Notify.TransactionIDs = append(r.Notify.TransactionIDs, id)
	return true
}

// MergeNotify adds all ids of other and returns how many were new.
func (r *Request) MergeNotify(other Notify) int {
	added := 0
	for _, id := range other.TransactionIDs {
		if r.AddNotifyTransactionID(id) {
			added++
		}
	}

	return added
}

func (r *Request) AddHistoryNote(note HistoryNote) {
	r.History = append(r.History, note)
}

func (r *Request) AddNote(now time.Time, what string, attrs ...any) {
	r.AddHistoryNote(NewNote(now, what, attrs...))
}

// PreCheck validates that the request can be posted to the network.
func (r *Request) PreCheck(maxAttempts int) error {
	if len(r.RawTx) == 0 {
		return ErrMissingRawTx
	}

	if len(r.Notify.TransactionIDs) == 0 {
		return ErrNoNotifyTargets
	}

	if r.Attempts > maxAttempts {
		return errors.Join(ErrAttemptsExceeded, fmt.Errorf("attempts: %d, max: %d", r.Attempts, maxAttempts))
	}

	return nil
}

func (r *Request) IncrementAttempts() {
	r.Attempts++
}

// Transition moves the request to status and records the change. Terminal requests do not move.
func (r *Request) Transition(status Status, now time.Time) error {
	if r.Status == status {
		return nil
	}

	if r.Status.IsTerminal() {
		return errors.Join(ErrTerminalStatus, fmt.Errorf("txid: %s, status: %s, requested: %s", r.TxID, r.Status, status))
	}

	r.AddNote(now, WhatStatusChange, "old", string(r.Status), "new", string(status))
	r.Status = status
	r.UpdatedAt = now

	return nil
}

// MergeExisting folds a stored request for the same txid into r. Notify sets and history are
// unioned, the stored identity and progress are kept.
func (r *Request) MergeExisting(existing *Request) error {
	if existing == nil {
		return nil
	}

	if existing.TxID != r.TxID {
		return errors.Join(ErrMismatchingRequest, fmt.Errorf("txids: %s, %s", existing.TxID, r.TxID))
	}

	notify := r.Notify
	history := r.History

	r.ID = existing.ID
	r.Status = existing.Status
	r.Batch = existing.Batch
	r.Attempts = existing.Attempts
	r.CreatedAt = existing.CreatedAt
	r.Notify = Notify{TransactionIDs: slices.Clone(existing.Notify.TransactionIDs)}
	r.History = slices.Clone(existing.History)

	if len(r.RawTx) == 0 {
		r.RawTx = existing.RawTx
	}
	if len(r.InputBeef) == 0 {
		r.InputBeef = existing.InputBeef
	}

	r.MergeNotify(notify)
	r.History = append(r.History, history...)

	return nil
}

// Mark is the progress of a request at one point. Changes made after it can be replayed onto a
// fresher copy of the same request.
type Mark struct {
	status   Status
	batch    string
	attempts int
	history  int
}

func (r *Request) Mark() Mark {
	return Mark{
		status:   r.Status,
		batch:    r.Batch,
		attempts: r.Attempts,
		history:  len(r.History),
	}
}

// Replay applies the changes made to r since m onto stored. Attempts and history notes are added
// to the stored ones and the notify sets are unioned. A status change is dropped if stored became
// terminal meanwhile, in which case Replay returns false.
func (r *Request) Replay(m Mark, stored *Request) (bool, error) {
	if stored.TxID != r.TxID {
		return false, errors.Join(ErrMismatchingRequest, fmt.Errorf("txids: %s, %s", stored.TxID, r.TxID))
	}

	applied := true
	if r.Status != m.status {
		if stored.Status.IsTerminal() && stored.Status != r.Status {
			applied = false
		} else {
			stored.Status = r.Status
		}
	}

	if r.Batch != m.batch {
		stored.Batch = r.Batch
	}

	stored.Attempts += r.Attempts - m.attempts

	if len(r.History) > m.history {
		stored.History = append(stored.History, r.History[m.history:]...)
	}

	stored.MergeNotify(r.Notify)

	return applied, nil
}

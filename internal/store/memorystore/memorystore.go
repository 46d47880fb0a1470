package memorystore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

const unlocked = "NONE"

var (
	_ store.Store = (*MemoryStore)(nil)
	_ store.Tx    = (*view)(nil)
)

type state struct {
	transactions map[int64]*store.Transaction
	outputs      map[int64]*store.Output
	commissions  map[int64]*store.Commission
	requests     map[string]*txreq.Request
	nextID       int64
}

func newState() *state {
	return &state{
		transactions: make(map[int64]*store.Transaction),
		outputs:      make(map[int64]*store.Output),
		commissions:  make(map[int64]*store.Commission),
		requests:     make(map[string]*txreq.Request),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for id, tx := range s.transactions {
		c.transactions[id] = copyTransaction(tx)
	}
	for id, o := range s.outputs {
		c.outputs[id] = copyOutput(o)
	}
	for id, cm := range s.commissions {
		cp := *cm
		c.commissions[id] = &cp
	}
	for txID, req := range s.requests {
		c.requests[txID] = copyRequest(req)
	}

	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// MemoryStore keeps all rows in process memory. Scoped transactions work on a copy which replaces
// the live data only when the transaction function succeeds.
type MemoryStore struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

func WithNow(nowFunc func() time.Time) func(*MemoryStore) {
	return func(m *MemoryStore) {
		m.now = nowFunc
	}
}

func New(opts ...func(*MemoryStore)) *MemoryStore {
	m := &MemoryStore{
		data: newState(),
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MemoryStore) view() *view {
	return &view{s: m.data, now: m.now}
}

func (m *MemoryStore) AddTransaction(tx store.Transaction) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.ID == 0 {
		tx.ID = m.data.id()
	} else if tx.ID > m.data.nextID {
		m.data.nextID = tx.ID
	}
	m.data.transactions[tx.ID] = copyTransaction(&tx)

	return tx.ID
}

func (m *MemoryStore) AddOutput(output store.Output) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if output.ID == 0 {
		output.ID = m.data.id()
	}
	m.data.outputs[output.ID] = copyOutput(&output)

	return output.ID
}

func (m *MemoryStore) AddCommission(commission store.Commission) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if commission.ID == 0 {
		commission.ID = m.data.id()
	}
	m.data.commissions[commission.TransactionID] = &commission
}

func (m *MemoryStore) AddRequest(req *txreq.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := copyRequest(req)
	if cp.ID == 0 {
		cp.ID = m.data.id()
	}
	if cp.LockedBy == "" {
		cp.LockedBy = unlocked
	}
	m.data.requests[cp.TxID] = cp
}

func (m *MemoryStore) InTransaction(ctx context.Context, name string, fn func(ctx context.Context, tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.data.clone()
	err := fn(ctx, &view{s: working, now: m.now})
	if err != nil {
		return errors.Join(store.ErrTransactionFailed, fmt.Errorf("transaction %s: %w", name, err))
	}

	m.data = working
	return nil
}

func (m *MemoryStore) ClaimRequests(_ context.Context, filter store.ClaimFilter, lockedBy string) ([]*txreq.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.view().sortedRequests()
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].UpdatedAt.Before(candidates[j].UpdatedAt)
	})

	claimed := make([]*txreq.Request, 0)
	for _, req := range candidates {
		if filter.Limit > 0 && int64(len(claimed)) >= filter.Limit {
			break
		}
		if req.LockedBy != unlocked {
			continue
		}
		if !req.Status.In(filter.Statuses...) {
			continue
		}
		if len(filter.TxIDs) > 0 && !slices.Contains(filter.TxIDs, req.TxID) {
			continue
		}

		req.LockedBy = lockedBy
		req.UpdatedAt = m.now()
		claimed = append(claimed, copyRequest(req))
	}

	return claimed, nil
}

func (m *MemoryStore) SetUnlocked(_ context.Context, txIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, txID := range txIDs {
		if req, ok := m.data.requests[txID]; ok {
			req.LockedBy = unlocked
		}
	}

	return nil
}

func (m *MemoryStore) SetUnlockedByName(_ context.Context, lockedBy string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, req := range m.data.requests {
		if req.LockedBy == lockedBy {
			req.LockedBy = unlocked
			count++
		}
	}

	return count, nil
}

func (m *MemoryStore) GetStats(_ context.Context) (*store.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &store.Stats{Requests: make(map[txreq.Status]int64)}
	for _, req := range m.data.requests {
		stats.Requests[req.Status]++
	}

	return stats, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) FindTransactions(ctx context.Context, filter store.TransactionFilter) ([]*store.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().FindTransactions(ctx, filter)
}

func (m *MemoryStore) FindOutputs(ctx context.Context, filter store.OutputFilter) ([]*store.Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().FindOutputs(ctx, filter)
}

func (m *MemoryStore) FindCommission(ctx context.Context, transactionID int64) (*store.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().FindCommission(ctx, transactionID)
}

func (m *MemoryStore) GetRequest(ctx context.Context, txID string) (*txreq.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetRequest(ctx, txID)
}

func (m *MemoryStore) GetRequests(ctx context.Context, txIDs []string) ([]*txreq.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetRequests(ctx, txIDs)
}

func (m *MemoryStore) ListRequests(ctx context.Context, statuses []txreq.Status, limit int64) ([]*txreq.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ListRequests(ctx, statuses, limit)
}

func (m *MemoryStore) InsertOrMergeRequest(ctx context.Context, req *txreq.Request) (*txreq.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().InsertOrMergeRequest(ctx, req)
}

func (m *MemoryStore) UpdateRequest(ctx context.Context, req *txreq.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateRequest(ctx, req)
}

func (m *MemoryStore) GetRequestForUpdate(ctx context.Context, txID string) (*txreq.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetRequestForUpdate(ctx, txID)
}

func (m *MemoryStore) UpdateTransaction(ctx context.Context, id int64, update store.TransactionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateTransaction(ctx, id, update)
}

func (m *MemoryStore) UpdateTransactionsStatus(ctx context.Context, ids []int64, status txreq.TxStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateTransactionsStatus(ctx, ids, status)
}

func (m *MemoryStore) UpdateOutput(ctx context.Context, id int64, update store.OutputUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateOutput(ctx, id, update)
}

// view implements store.Tx on a state the caller has locked.
type view struct {
	s   *state
	now func() time.Time
}

func (v *view) sortedRequests() []*txreq.Request {
	requests := make([]*txreq.Request, 0, len(v.s.requests))
	for _, req := range v.s.requests {
		requests = append(requests, req)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].ID < requests[j].ID
	})

	return requests
}

func (v *view) FindTransactions(_ context.Context, filter store.TransactionFilter) ([]*store.Transaction, error) {
	result := make([]*store.Transaction, 0)
	for _, tx := range v.s.transactions {
		if filter.ID != 0 && tx.ID != filter.ID {
			continue
		}
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, tx.ID) {
			continue
		}
		if filter.UserID != 0 && tx.UserID != filter.UserID {
			continue
		}
		if filter.Reference != "" && tx.Reference != filter.Reference {
			continue
		}
		if filter.TxID != "" && tx.TxID != filter.TxID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, tx.Status) {
			continue
		}
		result = append(result, copyTransaction(tx))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (v *view) FindOutputs(_ context.Context, filter store.OutputFilter) ([]*store.Output, error) {
	result := make([]*store.Output, 0)
	for _, o := range v.s.outputs {
		if filter.TransactionID != 0 && o.TransactionID != filter.TransactionID {
			continue
		}
		if filter.SpentBy != 0 && (o.SpentBy == nil || *o.SpentBy != filter.SpentBy) {
			continue
		}
		if filter.TxID != "" && o.TxID != filter.TxID {
			continue
		}
		result = append(result, copyOutput(o))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TransactionID != result[j].TransactionID {
			return result[i].TransactionID < result[j].TransactionID
		}
		return result[i].Vout < result[j].Vout
	})

	return result, nil
}

func (v *view) FindCommission(_ context.Context, transactionID int64) (*store.Commission, error) {
	commission, ok := v.s.commissions[transactionID]
	if !ok {
		return nil, store.ErrNotFound
	}

	cp := *commission
	return &cp, nil
}

func (v *view) GetRequest(_ context.Context, txID string) (*txreq.Request, error) {
	req, ok := v.s.requests[txID]
	if !ok {
		return nil, store.ErrNotFound
	}

	return copyRequest(req), nil
}

func (v *view) GetRequests(_ context.Context, txIDs []string) ([]*txreq.Request, error) {
	result := make([]*txreq.Request, 0, len(txIDs))
	for _, req := range v.sortedRequests() {
		if slices.Contains(txIDs, req.TxID) {
			result = append(result, copyRequest(req))
		}
	}

	return result, nil
}

func (v *view) ListRequests(_ context.Context, statuses []txreq.Status, limit int64) ([]*txreq.Request, error) {
	result := make([]*txreq.Request, 0)
	for _, req := range v.sortedRequests() {
		if limit > 0 && int64(len(result)) >= limit {
			break
		}
		if req.Status.In(statuses...) {
			result = append(result, copyRequest(req))
		}
	}

	return result, nil
}

func (v *view) InsertOrMergeRequest(_ context.Context, req *txreq.Request) (*txreq.Request, error) {
	merged := copyRequest(req)
	merged.UpdatedAt = v.now()

	if existing, ok := v.s.requests[req.TxID]; ok {
		err := merged.MergeExisting(copyRequest(existing))
		if err != nil {
			return nil, err
		}
		merged.LockedBy = existing.LockedBy
	} else {
		merged.ID = v.s.id()
		if merged.CreatedAt.IsZero() {
			merged.CreatedAt = merged.UpdatedAt
		}
		if merged.LockedBy == "" {
			merged.LockedBy = unlocked
		}
	}

	v.s.requests[merged.TxID] = copyRequest(merged)

	return merged, nil
}

func (v *view) UpdateRequest(_ context.Context, req *txreq.Request) error {
	existing, ok := v.s.requests[req.TxID]
	if !ok {
		return errors.Join(store.ErrNotFound, fmt.Errorf("key: %s", req.TxID))
	}

	req.UpdatedAt = v.now()
	updated := copyRequest(req)
	updated.ID = existing.ID
	updated.LockedBy = existing.LockedBy
	updated.CreatedAt = existing.CreatedAt
	v.s.requests[req.TxID] = updated

	return nil
}

// GetRequestForUpdate is GetRequest. The store lock already serialises transactions.
func (v *view) GetRequestForUpdate(ctx context.Context, txID string) (*txreq.Request, error) {
	return v.GetRequest(ctx, txID)
}

func (v *view) UpdateTransaction(_ context.Context, id int64, update store.TransactionUpdate) error {
	tx, ok := v.s.transactions[id]
	if !ok {
		return errors.Join(store.ErrNotFound, fmt.Errorf("key: %d", id))
	}

	tx.Status = update.Status
	if update.TxID != "" {
		tx.TxID = update.TxID
	}
	if update.ClearStaging {
		tx.RawTx = nil
		tx.InputBeef = nil
	}
	tx.UpdatedAt = v.now()

	return nil
}

func (v *view) UpdateTransactionsStatus(_ context.Context, ids []int64, status txreq.TxStatus) error {
	for _, id := range ids {
		if tx, ok := v.s.transactions[id]; ok {
			tx.Status = status
			tx.UpdatedAt = v.now()
		}
	}

	return nil
}

func (v *view) UpdateOutput(_ context.Context, id int64, update store.OutputUpdate) error {
	o, ok := v.s.outputs[id]
	if !ok {
		return errors.Join(store.ErrNotFound, fmt.Errorf("key: %d", id))
	}

	o.TxID = update.TxID
	o.Spendable = update.Spendable
	o.ScriptOffset = update.ScriptOffset
	o.ScriptLength = update.ScriptLength
	o.LockingScript = slices.Clone(update.LockingScript)
	o.UpdatedAt = v.now()

	return nil
}

func copyTransaction(tx *store.Transaction) *store.Transaction {
	cp := *tx
	cp.RawTx = slices.Clone(tx.RawTx)
	cp.InputBeef = slices.Clone(tx.InputBeef)
	return &cp
}

func copyOutput(o *store.Output) *store.Output {
	cp := *o
	cp.LockingScript = slices.Clone(o.LockingScript)
	if o.SpentBy != nil {
		spentBy := *o.SpentBy
		cp.SpentBy = &spentBy
	}
	return &cp
}

func copyRequest(req *txreq.Request) *txreq.Request {
	cp := *req
	cp.RawTx = slices.Clone(req.RawTx)
	cp.InputBeef = slices.Clone(req.InputBeef)
	cp.Notify.TransactionIDs = slices.Clone(req.Notify.TransactionIDs)
	cp.History = slices.Clone(req.History)
	return &cp
}

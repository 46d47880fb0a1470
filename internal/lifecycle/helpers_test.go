package lifecycle_test

import (
	"context"
	"encoding/hex"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	sdkTx "github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/require"

	ctMocks "github.com/bitcoin-sv/txlifecycle/internal/chaintracker/mocks"
	"github.com/bitcoin-sv/txlifecycle/internal/lifecycle"
	"github.com/bitcoin-sv/txlifecycle/internal/relay"
	relayMocks "github.com/bitcoin-sv/txlifecycle/internal/relay/mocks"
	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/store/memorystore"
	"github.com/bitcoin-sv/txlifecycle/internal/testdata"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

const (
	userID         = int64(1)
	instanceName   = "test-instance"
	chainTipHeight = uint32(850_000)
)

var p2pkhScript, _ = hex.DecodeString(testdata.P2PKHScript)

// signedTx spends the first output of parent. Different satoshis yield different txids.
func signedTx(parent *sdkTx.Transaction, satoshis uint64) *sdkTx.Transaction {
	return testdata.SpendingTx(parent, 0, 0, 0xffffffff, testdata.Output(satoshis, testdata.P2PKHScript))
}

// reserve stores an unsigned outgoing transaction row with one change output.
func reserve(s *memorystore.MemoryStore, id int64, reference string) {
	s.AddTransaction(store.Transaction{
		ID:         id,
		UserID:     userID,
		Reference:  reference,
		Status:     txreq.TxStatusUnsigned,
		IsOutgoing: true,
		InputBeef:  testdata.Beef,
		Satoshis:   -26000,
	})
	s.AddOutput(store.Output{
		ID:            id * 10,
		UserID:        userID,
		TransactionID: id,
		Vout:          0,
		Satoshis:      26000,
		LockingScript: p2pkhScript,
		Change:        true,
	})
}

// seedRequest stores a request for tx backed by the transaction row txRowID.
func seedRequest(s *memorystore.MemoryStore, tx *sdkTx.Transaction, txRowID int64, status txreq.Status, attempts int) string {
	txID := tx.TxID().String()

	s.AddTransaction(store.Transaction{
		ID:         txRowID,
		UserID:     userID,
		TxID:       txID,
		Status:     txreq.TxStatusSending,
		IsOutgoing: true,
	})

	req := txreq.New(txID, tx.Bytes(), testdata.Beef, status, testdata.Time)
	req.Attempts = attempts
	req.AddNotifyTransactionID(txRowID)
	s.AddRequest(req)

	return txID
}

func newTracker(validRoots bool) *ctMocks.ChainTrackerMock {
	return &ctMocks.ChainTrackerMock{
		IsValidRootForHeightFunc: func(_ context.Context, _ *chainhash.Hash, _ uint32) (bool, error) {
			return validRoots, nil
		},
		CurrentHeightFunc: func(_ context.Context) (uint32, error) {
			return chainTipHeight, nil
		},
	}
}

// newRelay answers every txid with the outcome found in outcomes. Txids without an entry are omitted.
func newRelay(name string, outcomes map[string]relay.Outcome, postErr error) *relayMocks.RelayMock {
	return &relayMocks.RelayMock{
		NameFunc: func() string {
			return name
		},
		PostBeefFunc: func(_ context.Context, _ []byte, txIDs []string) ([]relay.TxResult, error) {
			if postErr != nil {
				return nil, postErr
			}

			results := make([]relay.TxResult, 0, len(txIDs))
			for _, txID := range txIDs {
				outcome, found := outcomes[txID]
				if !found {
					continue
				}

				result := relay.TxResult{TxID: txID, Outcome: outcome}
				if outcome == relay.OutcomeDoubleSpend {
					result.CompetingTxs = []string{testdata.ParentTxID}
				}
				results = append(results, result)
			}

			return results, nil
		},
	}
}

func newProcessor(t *testing.T, s store.Store, tracker *ctMocks.ChainTrackerMock, relays []relay.Relay, opts ...lifecycle.Option) *lifecycle.Processor {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	defaults := []lifecycle.Option{
		lifecycle.WithLogger(logger),
		lifecycle.WithNow(func() time.Time { return testdata.Time }),
		lifecycle.WithLockedBy(instanceName),
	}

	sut, err := lifecycle.NewProcessor(s, tracker, relay.NewMultiRelay(relays, relay.WithLogger(logger)), append(defaults, opts...)...)
	require.NoError(t, err)
	t.Cleanup(sut.Shutdown)

	return sut
}

func getRequest(t *testing.T, s store.Store, txID string) *txreq.Request {
	t.Helper()

	req, err := s.GetRequest(context.Background(), txID)
	require.NoError(t, err)

	return req
}

func getTransaction(t *testing.T, s store.Store, id int64) *store.Transaction {
	t.Helper()

	txs, err := s.FindTransactions(context.Background(), store.TransactionFilter{ID: id})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	return txs[0]
}

func historyWhats(req *txreq.Request) []string {
	whats := make([]string, 0, len(req.History))
	for _, note := range req.History {
		whats = append(whats, note.What)
	}

	return whats
}

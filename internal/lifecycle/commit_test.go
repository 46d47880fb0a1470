package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitcoin-sv/txlifecycle/internal/lifecycle"
	"github.com/bitcoin-sv/txlifecycle/internal/relay"
	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/store/memorystore"
	"github.com/bitcoin-sv/txlifecycle/internal/testdata"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

func TestProcessor_CommitSignedTransaction(t *testing.T) {
	signed := signedTx(testdata.ChildRaw, 26000)
	notFinal := testdata.SpendingTx(testdata.ChildRaw, 0, 900_000, 0, testdata.Output(26000, testdata.P2PKHScript))
	childScript := []byte{0x51}

	tt := []struct {
		name       string
		reference  string
		txID       string
		rawTx      []byte
		isNoSend   bool
		isDelayed  bool
		isSendWith bool
		commission uint64
		setup      func(s *memorystore.MemoryStore)

		expectedReqStatus txreq.Status
		expectedTxStatus  txreq.TxStatus
		expectedErr       error
	}{
		{
			name:     "no send",
			isNoSend: true,

			expectedReqStatus: txreq.StatusNoSend,
			expectedTxStatus:  txreq.TxStatusNoSend,
		},
		{
			name:      "delayed",
			isDelayed: true,

			expectedReqStatus: txreq.StatusUnsent,
			expectedTxStatus:  txreq.TxStatusUnprocessed,
		},
		{
			name: "immediate",

			expectedReqStatus: txreq.StatusUnprocessed,
			expectedTxStatus:  txreq.TxStatusUnprocessed,
		},
		{
			name:       "no send with send with",
			isNoSend:   true,
			isSendWith: true,

			expectedReqStatus: txreq.StatusUnprocessed,
			expectedTxStatus:  txreq.TxStatusUnprocessed,
		},
		{
			name:       "commission paid",
			commission: 10,
			setup: func(s *memorystore.MemoryStore) {
				s.AddCommission(store.Commission{UserID: userID, TransactionID: 1, Satoshis: 26000, LockingScript: p2pkhScript})
			},

			expectedReqStatus: txreq.StatusUnprocessed,
			expectedTxStatus:  txreq.TxStatusUnprocessed,
		},
		{
			name:  "missing arguments",
			rawTx: []byte{},

			expectedErr: lifecycle.ErrMissingArgs,
		},
		{
			name:  "garbage raw transaction",
			rawTx: []byte{0x01, 0x02, 0x03},

			expectedErr: lifecycle.ErrInvalidRawTx,
		},
		{
			name: "txid mismatch",
			txID: testdata.ChildTxID,

			expectedErr: lifecycle.ErrTxIDMismatch,
		},
		{
			name:  "not final",
			txID:  notFinal.TxID().String(),
			rawTx: notFinal.Bytes(),

			expectedErr: lifecycle.ErrTxNotFinal,
		},
		{
			name:      "unknown reference",
			reference: "unknown",

			expectedErr: lifecycle.ErrTransactionNotFound,
		},
		{
			name: "transaction already sending",
			setup: func(s *memorystore.MemoryStore) {
				s.AddTransaction(store.Transaction{ID: 1, UserID: userID, Reference: "ref-1", Status: txreq.TxStatusSending, IsOutgoing: true, InputBeef: testdata.Beef})
			},

			expectedErr: lifecycle.ErrTransactionStatus,
		},
		{
			name: "incoming transaction",
			setup: func(s *memorystore.MemoryStore) {
				s.AddTransaction(store.Transaction{ID: 1, UserID: userID, Reference: "ref-1", Status: txreq.TxStatusUnsigned, IsOutgoing: false, InputBeef: testdata.Beef})
			},

			expectedErr: lifecycle.ErrNotOutgoing,
		},
		{
			name: "missing input beef",
			setup: func(s *memorystore.MemoryStore) {
				s.AddTransaction(store.Transaction{ID: 1, UserID: userID, Reference: "ref-1", Status: txreq.TxStatusUnsigned, IsOutgoing: true})
			},

			expectedErr: lifecycle.ErrMissingInputBeef,
		},
		{
			name: "output script mismatch",
			setup: func(s *memorystore.MemoryStore) {
				s.AddOutput(store.Output{ID: 10, UserID: userID, TransactionID: 1, Vout: 0, Satoshis: 26000, LockingScript: childScript})
			},

			expectedErr: lifecycle.ErrOutputScriptMismatch,
		},
		{
			name: "output out of range",
			setup: func(s *memorystore.MemoryStore) {
				s.AddOutput(store.Output{ID: 11, UserID: userID, TransactionID: 1, Vout: 1, Satoshis: 1})
			},

			expectedErr: lifecycle.ErrOutputOutOfRange,
		},
		{
			name:       "commission missing",
			commission: 10,

			expectedErr: lifecycle.ErrCommissionMissing,
		},
		{
			name:       "commission not paid",
			commission: 10,
			setup: func(s *memorystore.MemoryStore) {
				s.AddCommission(store.Commission{UserID: userID, TransactionID: 1, Satoshis: 10, LockingScript: p2pkhScript})
			},

			expectedErr: lifecycle.ErrCommissionMissing,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := memorystore.New(memorystore.WithNow(func() time.Time { return testdata.Time }))
			reserve(s, 1, "ref-1")
			if tc.setup != nil {
				tc.setup(s)
			}

			reference := "ref-1"
			if tc.reference != "" {
				reference = tc.reference
			}
			txID := signed.TxID().String()
			if tc.txID != "" {
				txID = tc.txID
			}
			rawTx := signed.Bytes()
			if tc.rawTx != nil {
				rawTx = tc.rawTx
			}

			sut := newProcessor(t, s, newTracker(true), nil, lifecycle.WithCommissionSatoshis(tc.commission))

			// when
			actual, err := sut.CommitSignedTransaction(context.Background(), lifecycle.CommitArgs{
				UserID:     userID,
				Reference:  reference,
				TxID:       txID,
				RawTx:      rawTx,
				IsNoSend:   tc.isNoSend,
				IsDelayed:  tc.isDelayed,
				IsSendWith: tc.isSendWith,
			})

			// then
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				require.ErrorIs(t, err, lifecycle.ErrValidation)
				require.Nil(t, actual)

				_, getErr := s.GetRequest(context.Background(), txID)
				require.ErrorIs(t, getErr, store.ErrNotFound)

				transaction := getTransaction(t, s, 1)
				require.Empty(t, transaction.TxID)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expectedReqStatus, actual.Status)
			require.Equal(t, []int64{1}, actual.Notify.TransactionIDs)
			require.Equal(t, []string{txreq.WhatCommitted}, historyWhats(actual))

			stored := getRequest(t, s, txID)
			require.Equal(t, rawTx, stored.RawTx)
			require.Equal(t, testdata.Beef, stored.InputBeef)
			require.Zero(t, stored.Attempts)

			transaction := getTransaction(t, s, 1)
			require.Equal(t, tc.expectedTxStatus, transaction.Status)
			require.Equal(t, txID, transaction.TxID)
			require.Empty(t, transaction.InputBeef)
			require.Empty(t, transaction.RawTx)

			outputs, err := s.FindOutputs(context.Background(), store.OutputFilter{TransactionID: 1})
			require.NoError(t, err)
			require.Len(t, outputs, 1)
			require.True(t, outputs[0].Spendable)
			require.Equal(t, txID, outputs[0].TxID)
			require.Equal(t, uint64(57), outputs[0].ScriptOffset)
			require.Equal(t, uint64(25), outputs[0].ScriptLength)
			require.Equal(t, p2pkhScript, outputs[0].LockingScript)
		})
	}
}

func TestProcessor_CommitSignedTransaction_LongScript(t *testing.T) {
	// given
	s := memorystore.New()
	reserve(s, 1, "ref-1")
	signed := signedTx(testdata.ChildRaw, 26000)

	sut := newProcessor(t, s, newTracker(true), nil, lifecycle.WithMaxOutputScript(10))

	// when
	_, err := sut.CommitSignedTransaction(context.Background(), lifecycle.CommitArgs{
		UserID:    userID,
		Reference: "ref-1",
		TxID:      signed.TxID().String(),
		RawTx:     signed.Bytes(),
	})

	// then
	require.NoError(t, err)

	outputs, err := s.FindOutputs(context.Background(), store.OutputFilter{TransactionID: 1})
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	require.Nil(t, outputs[0].LockingScript)
	require.Equal(t, uint64(57), outputs[0].ScriptOffset)
	require.Equal(t, uint64(25), outputs[0].ScriptLength)
}

func TestProcessor_CommitSignedTransaction_Merge(t *testing.T) {
	// given
	s := memorystore.New()
	reserve(s, 1, "ref-1")
	signed := signedTx(testdata.ChildRaw, 26000)
	txID := signed.TxID().String()

	existing := txreq.New(txID, signed.Bytes(), testdata.Beef, txreq.StatusSending, testdata.Time)
	existing.Attempts = 3
	existing.AddNotifyTransactionID(7)
	s.AddRequest(existing)

	sut := newProcessor(t, s, newTracker(true), nil)

	// when
	actual, err := sut.CommitSignedTransaction(context.Background(), lifecycle.CommitArgs{
		UserID:    userID,
		Reference: "ref-1",
		TxID:      txID,
		RawTx:     signed.Bytes(),
	})

	// then
	require.NoError(t, err)
	require.Equal(t, txreq.StatusSending, actual.Status)
	require.Equal(t, 3, actual.Attempts)
	require.ElementsMatch(t, []int64{1, 7}, actual.Notify.TransactionIDs)
}

func TestProcessor_ProcessAction(t *testing.T) {
	t.Run("immediate", func(t *testing.T) {
		// given
		s := memorystore.New()
		reserve(s, 1, "ref-1")
		signed := signedTx(testdata.ChildRaw, 26000)
		txID := signed.TxID().String()

		arc := newRelay("arc", map[string]relay.Outcome{txID: relay.OutcomeSuccess}, nil)
		sut := newProcessor(t, s, newTracker(true), []relay.Relay{arc})

		// when
		actual, err := sut.ProcessAction(context.Background(), lifecycle.ProcessActionArgs{
			UserID:    userID,
			Reference: "ref-1",
			TxID:      txID,
			RawTx:     signed.Bytes(),
		})

		// then
		require.NoError(t, err)
		require.Equal(t, txreq.StatusUnprocessed, actual.Request.Status)
		require.Equal(t, []lifecycle.SendWithResult{{TxID: txID, Status: txreq.SendWithResultStatusSending}}, actual.SendWithResults)
		require.Equal(t, lifecycle.AggregateSuccess, actual.Reconciled.Status)

		require.Len(t, arc.PostBeefCalls(), 1)
		require.Equal(t, []string{txID}, arc.PostBeefCalls()[0].TxIDs)

		stored := getRequest(t, s, txID)
		require.Equal(t, txreq.StatusUnmined, stored.Status)
		require.Equal(t, 1, stored.Attempts)
		require.Empty(t, stored.Batch)
		require.Equal(t, "NONE", stored.LockedBy)
		require.Equal(t, []string{
			txreq.WhatCommitted,
			txreq.WhatStatusChange,
			txreq.WhatPostToNetwork,
			txreq.WhatPostBeefSuccess,
			txreq.WhatStatusChange,
			txreq.WhatAggregateResults,
		}, historyWhats(stored))

		require.Equal(t, txreq.TxStatusUnproven, getTransaction(t, s, 1).Status)
	})

	t.Run("no send", func(t *testing.T) {
		// given
		s := memorystore.New()
		reserve(s, 1, "ref-1")
		signed := signedTx(testdata.ChildRaw, 26000)

		arc := newRelay("arc", nil, nil)
		sut := newProcessor(t, s, newTracker(true), []relay.Relay{arc})

		// when
		actual, err := sut.ProcessAction(context.Background(), lifecycle.ProcessActionArgs{
			UserID:    userID,
			Reference: "ref-1",
			TxID:      signed.TxID().String(),
			RawTx:     signed.Bytes(),
			IsNoSend:  true,
		})

		// then
		require.NoError(t, err)
		require.Equal(t, txreq.StatusNoSend, actual.Request.Status)
		require.Empty(t, actual.SendWithResults)
		require.Nil(t, actual.Reconciled)
		require.Empty(t, arc.PostBeefCalls())
	})

	t.Run("send with batch", func(t *testing.T) {
		// given
		s := memorystore.New()
		reserve(s, 1, "ref-1")
		reserve(s, 2, "ref-2")
		first := signedTx(testdata.ChildRaw, 26000)
		second := signedTx(first, 25000)
		firstID := first.TxID().String()
		secondID := second.TxID().String()

		arc := newRelay("arc", map[string]relay.Outcome{
			firstID:  relay.OutcomeSuccess,
			secondID: relay.OutcomeUnknown,
		}, nil)
		sut := newProcessor(t, s, newTracker(true), []relay.Relay{arc},
			lifecycle.WithBatchIDGenerator(func() string { return "batch-1" }),
		)

		_, err := sut.ProcessAction(context.Background(), lifecycle.ProcessActionArgs{
			UserID:    userID,
			Reference: "ref-1",
			TxID:      firstID,
			RawTx:     first.Bytes(),
			IsNoSend:  true,
		})
		require.NoError(t, err)

		// when
		actual, err := sut.ProcessAction(context.Background(), lifecycle.ProcessActionArgs{
			UserID:    userID,
			Reference: "ref-2",
			TxID:      secondID,
			RawTx:     second.Bytes(),
			SendWith:  []string{firstID},
		})

		// then
		require.NoError(t, err)
		require.Equal(t, lifecycle.AggregateError, actual.Reconciled.Status)
		require.Equal(t, "batch-1", actual.Reconciled.Batch)
		require.Equal(t, []lifecycle.SendWithResult{
			{TxID: firstID, Status: txreq.SendWithResultStatusSending},
			{TxID: secondID, Status: txreq.SendWithResultStatusFailed},
		}, actual.SendWithResults)

		require.Len(t, arc.PostBeefCalls(), 1)
		require.Equal(t, []string{firstID, secondID}, arc.PostBeefCalls()[0].TxIDs)

		firstReq := getRequest(t, s, firstID)
		require.Equal(t, txreq.StatusUnmined, firstReq.Status)
		require.Equal(t, "batch-1", firstReq.Batch)
		require.Equal(t, 1, firstReq.Attempts)

		secondReq := getRequest(t, s, secondID)
		require.Equal(t, txreq.StatusSending, secondReq.Status)
		require.Equal(t, "batch-1", secondReq.Batch)
		require.Equal(t, 1, secondReq.Attempts)

		require.Equal(t, txreq.TxStatusUnproven, getTransaction(t, s, 1).Status)
		require.Equal(t, txreq.TxStatusSending, getTransaction(t, s, 2).Status)
	})

	t.Run("commit fails", func(t *testing.T) {
		// given
		s := memorystore.New()
		signed := signedTx(testdata.ChildRaw, 26000)

		arc := newRelay("arc", nil, nil)
		sut := newProcessor(t, s, newTracker(true), []relay.Relay{arc})

		// when
		actual, err := sut.ProcessAction(context.Background(), lifecycle.ProcessActionArgs{
			UserID:    userID,
			Reference: "ref-1",
			TxID:      signed.TxID().String(),
			RawTx:     signed.Bytes(),
		})

		// then
		require.ErrorIs(t, err, lifecycle.ErrTransactionNotFound)
		require.Nil(t, actual)
		require.Empty(t, arc.PostBeefCalls())
	})
}

package lifecycle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitcoin-sv/txlifecycle/internal/chaintracker"
	"github.com/bitcoin-sv/txlifecycle/internal/lifecycle"
	"github.com/bitcoin-sv/txlifecycle/internal/relay"
	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/store/memorystore"
	"github.com/bitcoin-sv/txlifecycle/internal/testdata"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

func TestNewProcessor(t *testing.T) {
	tt := []struct {
		name    string
		store   store.Store
		tracker chaintracker.ChainTracker
		relays  *relay.MultiRelay

		expectedErr error
	}{
		{
			name:    "valid",
			store:   memorystore.New(),
			tracker: newTracker(true),
			relays:  relay.NewMultiRelay(nil),
		},
		{
			name:    "no store",
			tracker: newTracker(true),
			relays:  relay.NewMultiRelay(nil),

			expectedErr: lifecycle.ErrStoreNil,
		},
		{
			name:   "no tracker",
			store:  memorystore.New(),
			relays: relay.NewMultiRelay(nil),

			expectedErr: lifecycle.ErrTrackerNil,
		},
		{
			name:    "no relays",
			store:   memorystore.New(),
			tracker: newTracker(true),

			expectedErr: lifecycle.ErrRelaysNil,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// when
			sut, err := lifecycle.NewProcessor(tc.store, tc.tracker, tc.relays)

			// then
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				require.Nil(t, sut)
				return
			}

			require.NoError(t, err)
			require.NotEmpty(t, sut.LockedBy())
			sut.Shutdown()
		})
	}
}

func TestProcessor_Shutdown(t *testing.T) {
	// given
	s := memorystore.New()
	tx := signedTx(testdata.ChildRaw, 26000)
	txID := tx.TxID().String()

	owned := txreq.New(txID, tx.Bytes(), testdata.Beef, txreq.StatusSending, testdata.Time)
	owned.LockedBy = instanceName
	s.AddRequest(owned)

	other := signedTx(testdata.ChildRaw, 25000)
	foreign := txreq.New(other.TxID().String(), other.Bytes(), testdata.Beef, txreq.StatusSending, testdata.Time)
	foreign.LockedBy = "other-instance"
	s.AddRequest(foreign)

	sut := newProcessor(t, s, newTracker(true), nil)
	require.Equal(t, instanceName, sut.LockedBy())

	// when
	sut.Shutdown()

	// then
	stored, err := s.GetRequest(context.Background(), txID)
	require.NoError(t, err)
	require.Equal(t, "NONE", stored.LockedBy)
	require.Equal(t, "other-instance", getRequest(t, s, other.TxID().String()).LockedBy)
}

package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitcoin-sv/txlifecycle/internal/chaintracker/mocks"
	"github.com/bitcoin-sv/txlifecycle/internal/lifecycle"
	"github.com/bitcoin-sv/txlifecycle/internal/testdata"
)

func TestLockTimeIsFinal(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tt := []struct {
		name      string
		lockTime  uint32
		sequence  uint32
		heightErr error

		expectedFinal       bool
		expectedErr         error
		expectedHeightCalls int
	}{
		{
			name:     "zero lock time",
			sequence: 0,

			expectedFinal: true,
		},
		{
			name:     "all sequences final",
			lockTime: 900_000,
			sequence: 0xffffffff,

			expectedFinal: true,
		},
		{
			name:     "height reached",
			lockTime: 850_000,
			sequence: 1,

			expectedFinal:       true,
			expectedHeightCalls: 1,
		},
		{
			name:     "height in the future",
			lockTime: 850_001,
			sequence: 1,

			expectedFinal:       false,
			expectedHeightCalls: 1,
		},
		{
			name:     "time passed",
			lockTime: uint32(now.Add(-time.Hour).Unix()),
			sequence: 1,

			expectedFinal: true,
		},
		{
			name:     "time in the future",
			lockTime: uint32(now.Add(time.Hour).Unix()),
			sequence: 1,

			expectedFinal: false,
		},
		{
			name:      "tracker fails",
			lockTime:  850_000,
			sequence:  1,
			heightErr: errors.New("unreachable"),

			expectedErr:         errors.New("unreachable"),
			expectedHeightCalls: 1,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			tracker := &mocks.ChainTrackerMock{
				CurrentHeightFunc: func(_ context.Context) (uint32, error) {
					return 850_000, tc.heightErr
				},
			}
			tx := testdata.SpendingTx(testdata.ChildRaw, 0, tc.lockTime, tc.sequence, testdata.Output(1, testdata.P2PKHScript))

			// when
			final, err := lifecycle.LockTimeIsFinal(context.Background(), tx, tracker, now)

			// then
			require.Len(t, tracker.CurrentHeightCalls(), tc.expectedHeightCalls)
			if tc.expectedErr != nil {
				require.EqualError(t, err, tc.expectedErr.Error())
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expectedFinal, final)
		})
	}
}

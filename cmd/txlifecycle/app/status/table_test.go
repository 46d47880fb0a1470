package status

import (
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/require"

	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

func TestRequestsTable(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tt := []struct {
		name string
		reqs []*txreq.Request

		expectedContains []string
	}{
		{
			name: "no requests",

			expectedContains: []string{"TXID", "LOCKED BY", "TOTAL"},
		},
		{
			name: "requests counted per status",
			reqs: []*txreq.Request{
				{TxID: "aa", Status: txreq.StatusSending, Attempts: 2, Batch: "batch-1", UpdatedAt: now},
				{TxID: "bb", Status: txreq.StatusSending, Batch: "batch-1", UpdatedAt: now},
				{TxID: "cc", Status: txreq.StatusUnmined, Notify: txreq.Notify{TransactionIDs: []int64{1, 2}}, UpdatedAt: now},
			},

			expectedContains: []string{"aa", "batch-1", "2024-05-01T12:00:00Z", "sending", "unmined"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// when
			sut := requestsTable(table.NewWriter(), tc.reqs)

			// then
			rendered := sut.Render()
			for _, expected := range tc.expectedContains {
				require.Contains(t, rendered, expected)
			}
			require.Equal(t, len(tc.reqs), sut.Length())
		})
	}
}

func TestParseStatuses(t *testing.T) {
	tt := []struct {
		name   string
		values []string

		expectedStatuses []txreq.Status
		expectedErr      bool
	}{
		{
			name: "none given",

			expectedStatuses: txreq.AllStatuses,
		},
		{
			name:   "valid",
			values: []string{"sending", "unsent"},

			expectedStatuses: []txreq.Status{txreq.StatusSending, txreq.StatusUnsent},
		},
		{
			name:   "invalid",
			values: []string{"lost"},

			expectedErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// when
			actual, err := parseStatuses(tc.values)

			// then
			if tc.expectedErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expectedStatuses, actual)
		})
	}
}

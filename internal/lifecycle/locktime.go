package lifecycle

import (
	"context"
	"time"

	sdkTx "github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitcoin-sv/txlifecycle/internal/chaintracker"
)

const (
	// lockTimeThreshold separates block heights from unix timestamps.
	lockTimeThreshold = 500_000_000
	finalSequence     = 0xffffffff
)

// LockTimeIsFinal reports whether tx can be included in the next block. A transaction whose inputs
// all carry the final sequence number is final regardless of its lock time.
func LockTimeIsFinal(ctx context.Context, tx *sdkTx.Transaction, tracker chaintracker.ChainTracker, now time.Time) (bool, error) {
	if tx.LockTime == 0 {
		return true, nil
	}

	if allInputsFinal(tx) {
		return true, nil
	}

	if tx.LockTime >= lockTimeThreshold {
		return int64(tx.LockTime) < now.Unix(), nil
	}

	height, err := tracker.CurrentHeight(ctx)
	if err != nil {
		return false, err
	}

	return tx.LockTime <= height, nil
}

func allInputsFinal(tx *sdkTx.Transaction) bool {
	for _, input := range tx.Inputs {
		if input.SequenceNumber != finalSequence {
			return false
		}
	}

	return true
}

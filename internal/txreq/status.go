package txreq

import (
	"errors"
	"fmt"
)

var ErrUnknownStatus = errors.New("unknown status")

// Status is the lifecycle state of a transaction request.
type Status string

const (
	// StatusNoSend marks a request the caller opted out of sending.
	StatusNoSend Status = "nosend"
	// StatusUnprocessed marks a request committed on the immediate path and not yet posted.
	StatusUnprocessed Status = "unprocessed"
	// StatusUnsent marks a request deferred to the retry sweep.
	StatusUnsent Status = "unsent"
	// StatusSending marks a request whose last post was inconclusive or is in flight.
	StatusSending Status = "sending"
	// StatusUnmined marks a request accepted by a relay and awaiting a merkle proof.
	StatusUnmined     Status = "unmined"
	StatusDoubleSpend Status = "doubleSpend"
	StatusInvalid     Status = "invalid"
	// StatusAlreadySent marks a request a relay reported as previously accepted.
	StatusAlreadySent Status = "alreadySent"
	StatusCompleted   Status = "completed"
)

var AllStatuses = []Status{
	StatusNoSend,
	StatusUnprocessed,
	StatusUnsent,
	StatusSending,
	StatusUnmined,
	StatusDoubleSpend,
	StatusInvalid,
	StatusAlreadySent,
	StatusCompleted,
}

// ReadyToSendStatuses can be included in a network post.
var ReadyToSendStatuses = []Status{StatusNoSend, StatusUnprocessed, StatusUnsent, StatusSending}

// SweepStatuses are picked up by the retry sweep.
var SweepStatuses = []Status{StatusUnsent, StatusSending}

func ParseStatus(s string) (Status, error) {
	for _, status := range AllStatuses {
		if string(status) == s {
			return status, nil
		}
	}

	return "", errors.Join(ErrUnknownStatus, fmt.Errorf("status: %s", s))
}

// IsTerminal reports whether no dispatch may move the request out of this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDoubleSpend, StatusInvalid, StatusCompleted:
		return true
	default:
		return false
	}
}

// AlreadySent reports whether a relay has accepted the transaction.
func (s Status) AlreadySent() bool {
	switch s {
	case StatusUnmined, StatusAlreadySent, StatusCompleted:
		return true
	default:
		return false
	}
}

func (s Status) ReadyToSend() bool {
	return s.In(ReadyToSendStatuses...)
}

func (s Status) In(statuses ...Status) bool {
	for _, status := range statuses {
		if s == status {
			return true
		}
	}

	return false
}

// TxStatus is the status of the wallet-level transaction row.
type TxStatus string

const (
	TxStatusUnsigned    TxStatus = "unsigned"
	TxStatusUnprocessed TxStatus = "unprocessed"
	TxStatusSending     TxStatus = "sending"
	TxStatusUnproven    TxStatus = "unproven"
	TxStatusFailed      TxStatus = "failed"
	TxStatusNoSend      TxStatus = "nosend"
	TxStatusCompleted   TxStatus = "completed"
)

// SendWithResultStatus is reported per txid to the caller of a dispatch.
type SendWithResultStatus string

const (
	SendWithResultStatusUnproven SendWithResultStatus = "unproven"
	SendWithResultStatusSending  SendWithResultStatus = "sending"
	SendWithResultStatusFailed   SendWithResultStatus = "failed"
)

package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

const StatusTopic = "request-status"

// StatusEvent is published for every request a reconciliation touched.
type StatusEvent struct {
	TxID      string       `json:"txid"`
	Status    txreq.Status `json:"status"`
	Batch     string       `json:"batch,omitempty"`
	Attempts  int          `json:"attempts"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewStatusEvent(req *txreq.Request, now time.Time) StatusEvent {
	return StatusEvent{
		TxID:      req.TxID,
		Status:    req.Status,
		Batch:     req.Batch,
		Attempts:  req.Attempts,
		Timestamp: now.UTC(),
	}
}

func (p *Processor) publishStatus(ctx context.Context, req *txreq.Request) {
	if p.mqClient == nil {
		return
	}

	data, err := json.Marshal(NewStatusEvent(req, p.now()))
	if err != nil {
		p.logger.Error("Failed to marshal status event", slog.String("hash", req.TxID), slog.String("err", err.Error()))
		return
	}

	err = p.mqClient.Publish(ctx, p.statusTopic, data)
	if err != nil {
		p.logger.Error("Failed to publish status event", slog.String("hash", req.TxID), slog.String("err", errors.Join(ErrFailedToPublish, err).Error()))
	}
}

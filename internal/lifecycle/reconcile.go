package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bitcoin-sv/txlifecycle/internal/beef"
	"github.com/bitcoin-sv/txlifecycle/internal/relay"
	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/tracing"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

// AggregateStatus summarises one reconciliation over all its requests.
type AggregateStatus string

const (
	AggregateSuccess AggregateStatus = "success"
	AggregateError   AggregateStatus = "error"
	// AggregateInvalid means the batch failed the pre-check and was not posted.
	AggregateInvalid AggregateStatus = "invalid"
)

type ReconcileDetail struct {
	TxID         string
	Outcome      relay.Outcome
	Status       txreq.Status
	CompetingTxs []string
	Err          string
}

type ReconcileResult struct {
	Status      AggregateStatus
	Batch       string
	Details     []ReconcileDetail
	PostResults []*relay.PostResult
}

func (r *ReconcileResult) Detail(txID string) (ReconcileDetail, bool) {
	if r == nil {
		return ReconcileDetail{}, false
	}

	for _, d := range r.Details {
		if d.TxID == txID {
			return d, true
		}
	}

	return ReconcileDetail{}, false
}

// reconcile posts the bundle for reqs and maps the relay outcomes onto the stored requests and
// their transactions. A batch with any request failing the pre-check is invalidated as a whole.
func (p *Processor) reconcile(ctx context.Context, bundle *beef.Bundle, unresolved map[string]error, reqs []*txreq.Request, batch string, trigger string) (result *ReconcileResult, err error) {
	ctx, span := tracing.StartTracing(ctx, "reconcile", p.tracingEnabled, p.tracingAttributes...)
	defer func() {
		tracing.EndTracing(span, err)
	}()

	bad := p.preCheck(reqs, unresolved)
	if len(bad) > 0 {
		return p.invalidateBatch(ctx, reqs, bad, batch)
	}

	if !bundle.Verify(ctx, p.tracker) {
		return nil, errors.Join(ErrBundleInvalid, fmt.Errorf("requests: %d", len(reqs)))
	}

	rawBeef, err := bundle.Bytes()
	if err != nil {
		return nil, errors.Join(ErrInternalInvariant, err)
	}

	err = p.markSending(ctx, reqs, batch, trigger)
	if err != nil {
		return nil, err
	}

	txIDs := requestTxIDs(reqs)
	marks := markAll(reqs)
	postResults := p.relays.Post(ctx, rawBeef, txIDs)

	result = &ReconcileResult{
		Status:      AggregateSuccess,
		Batch:       batch,
		PostResults: postResults,
	}

	var omitted []string
	now := p.now()

	for _, req := range reqs {
		addPostNotes(req, postResults, now)
		req.IncrementAttempts()

		aggregated := relay.Aggregate(postResults, req.TxID)
		detail := ReconcileDetail{
			TxID:         req.TxID,
			Outcome:      aggregated.Outcome,
			CompetingTxs: aggregated.CompetingTxs,
		}
		if aggregated.Err != nil {
			detail.Err = aggregated.Err.Error()
		}

		if !aggregated.Outcome.IsSuccess() {
			result.Status = AggregateError
		}

		if names := relay.Omitted(postResults, req.TxID); len(names) > 0 {
			omitted = append(omitted, fmt.Sprintf("%s: %s", req.TxID, strings.Join(names, ",")))
		}

		result.Details = append(result.Details, detail)
	}

	txStatuses := make([]txreq.TxStatus, len(reqs))
	for i, req := range reqs {
		txStatuses[i], err = applyOutcome(req, &result.Details[i], now)
		if err != nil {
			return nil, err
		}
	}

	err = p.persist(ctx, "reconcile", reqs, marks, txStatuses)
	if err != nil {
		return nil, err
	}

	for i, req := range reqs {
		result.Details[i].Status = req.Status
		p.stats.observeOutcome(result.Details[i].Outcome)
		p.publishStatus(ctx, req)
	}

	p.logger.Info("Reconciled requests",
		slog.Int("requests", len(reqs)),
		slog.String("batch", batch),
		slog.String("status", string(result.Status)),
	)

	if len(omitted) > 0 {
		return result, errors.Join(ErrRelayOmittedTx, fmt.Errorf("omitted: %s", strings.Join(omitted, "; ")))
	}

	return result, nil
}

// preCheck returns the reason for every request that must not be posted.
func (p *Processor) preCheck(reqs []*txreq.Request, unresolved map[string]error) map[string]error {
	bad := make(map[string]error)

	for _, req := range reqs {
		err := req.PreCheck(p.maxAttempts)
		if err != nil {
			bad[req.TxID] = err
			continue
		}

		if err, found := unresolved[req.TxID]; found {
			bad[req.TxID] = err
		}
	}

	return bad
}

// invalidateBatch marks every request of the batch invalid. Their transactions keep their status.
func (p *Processor) invalidateBatch(ctx context.Context, reqs []*txreq.Request, bad map[string]error, batch string) (*ReconcileResult, error) {
	result := &ReconcileResult{
		Status: AggregateInvalid,
		Batch:  batch,
	}

	marks := markAll(reqs)
	now := p.now()
	reasons := make([]string, len(reqs))
	for i, req := range reqs {
		reasons[i] = "batch member failed pre-check"
		if badErr, found := bad[req.TxID]; found {
			reasons[i] = badErr.Error()
		}

		req.AddNote(now, txreq.WhatPostToNetworkError, "batch", batch, "err", reasons[i])

		err := req.Transition(txreq.StatusInvalid, now)
		if err != nil {
			return nil, err
		}
	}

	err := p.persist(ctx, "invalidateBatch", reqs, marks, make([]txreq.TxStatus, len(reqs)))
	if err != nil {
		return nil, err
	}

	for i, req := range reqs {
		result.Details = append(result.Details, ReconcileDetail{
			TxID:   req.TxID,
			Status: req.Status,
			Err:    reasons[i],
		})
		p.publishStatus(ctx, req)
	}

	p.logger.Warn("Invalidated batch", slog.String("batch", batch), slog.Int("requests", len(reqs)), slog.Int("failedPreCheck", len(bad)))

	return result, nil
}

// markSending records the post attempt before contacting the network.
func (p *Processor) markSending(ctx context.Context, reqs []*txreq.Request, batch string, trigger string) error {
	marks := markAll(reqs)
	txStatuses := make([]txreq.TxStatus, len(reqs))

	now := p.now()
	for i, req := range reqs {
		if batch != "" && req.Batch != batch {
			req.Batch = batch
			req.AddNote(now, txreq.WhatBatchAssigned, "batch", batch)
		}

		err := req.Transition(txreq.StatusSending, now)
		if err != nil {
			return err
		}

		req.AddNote(now, trigger, "batch", batch, "attempts", req.Attempts)
		txStatuses[i] = txreq.TxStatusSending
	}

	return p.persist(ctx, "markSending", reqs, marks, txStatuses)
}

// persist re-reads reqs in one storage transaction and replays their changes since marks onto
// the stored rows, so that notify ids and notes merged meanwhile survive. The transactions a
// request notifies move to txStatuses[i] if it is set and the request status change was kept.
// On success reqs hold the stored rows.
func (p *Processor) persist(ctx context.Context, name string, reqs []*txreq.Request, marks []txreq.Mark, txStatuses []txreq.TxStatus) error {
	updated := make([]*txreq.Request, len(reqs))

	err := p.store.InTransaction(ctx, name, func(ctx context.Context, stx store.Tx) error {
		for i, req := range reqs {
			stored, err := stx.GetRequestForUpdate(ctx, req.TxID)
			if err != nil {
				return err
			}

			applied, err := req.Replay(marks[i], stored)
			if err != nil {
				return err
			}

			err = stx.UpdateRequest(ctx, stored)
			if err != nil {
				return err
			}

			if applied && txStatuses[i] != "" {
				err = stx.UpdateTransactionsStatus(ctx, stored.Notify.TransactionIDs, txStatuses[i])
				if err != nil {
					return err
				}
			}

			updated[i] = stored
		}

		return nil
	})
	if err != nil {
		return err
	}

	for i := range reqs {
		*reqs[i] = *updated[i]
	}

	return nil
}

func markAll(reqs []*txreq.Request) []txreq.Mark {
	marks := make([]txreq.Mark, len(reqs))
	for i, req := range reqs {
		marks[i] = req.Mark()
	}

	return marks
}

// addPostNotes records what every relay answered for req.
func addPostNotes(req *txreq.Request, postResults []*relay.PostResult, now time.Time) {
	for _, pr := range postResults {
		if pr == nil {
			continue
		}

		if pr.Err != nil {
			req.AddNote(now, txreq.WhatPostBeefError, "name", pr.Name, "err", pr.Err.Error())
			continue
		}

		r, found := pr.Result(req.TxID)
		if !found {
			req.AddNote(now, txreq.WhatPostBeefError, "name", pr.Name, "err", "no result for txid")
			continue
		}

		attrs := []any{"name", pr.Name, "outcome", string(r.Outcome)}
		if r.BlockHash != "" {
			attrs = append(attrs, "blockHash", r.BlockHash, "blockHeight", r.BlockHeight)
		}
		if r.Data != "" {
			attrs = append(attrs, "data", r.Data)
		}
		if r.Err != nil {
			attrs = append(attrs, "err", r.Err.Error())
		}

		if r.Outcome.IsSuccess() {
			req.AddNote(now, txreq.WhatPostBeefSuccess, attrs...)
			continue
		}

		req.AddNote(now, txreq.WhatPostBeefError, attrs...)
	}
}

// applyOutcome moves req according to the aggregated outcome and returns the status its
// transactions take. Rejected and unknown outcomes leave both unchanged.
func applyOutcome(req *txreq.Request, detail *ReconcileDetail, now time.Time) (txreq.TxStatus, error) {
	var txStatus txreq.TxStatus

	switch detail.Outcome {
	case relay.OutcomeSuccess:
		if req.Status.In(txreq.ReadyToSendStatuses...) {
			err := req.Transition(txreq.StatusUnmined, now)
			if err != nil {
				return "", err
			}
		}
		txStatus = txreq.TxStatusUnproven
	case relay.OutcomeAlreadyKnown:
		err := req.Transition(txreq.StatusAlreadySent, now)
		if err != nil {
			return "", err
		}
		txStatus = txreq.TxStatusUnproven
	case relay.OutcomeDoubleSpend:
		req.AddNote(now, txreq.WhatDoubleSpend, "competingTxs", detail.CompetingTxs)
		err := req.Transition(txreq.StatusDoubleSpend, now)
		if err != nil {
			return "", err
		}
		txStatus = txreq.TxStatusFailed
	}

	req.AddNote(now, txreq.WhatAggregateResults,
		"outcome", string(detail.Outcome),
		"status", string(req.Status),
		"attempts", req.Attempts,
	)

	return txStatus, nil
}

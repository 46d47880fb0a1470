package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	sdkTx "github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitcoin-sv/txlifecycle/internal/beef"
	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/tracing"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

var ErrUnresolvedInput = errors.New("request depends on a transaction which cannot be resolved")

// DetailStatus classifies a requested txid before sharing.
type DetailStatus string

const (
	DetailReadyToSend DetailStatus = "readyToSend"
	DetailAlreadySent DetailStatus = "alreadySent"
	DetailError       DetailStatus = "error"
	DetailUnknown     DetailStatus = "unknown"
)

type RequestDetail struct {
	TxID    string
	Request *txreq.Request
	Status  DetailStatus
	Err     string
}

// SendWithResult is the provisional fate of one txid reported to the caller.
type SendWithResult struct {
	TxID   string
	Status txreq.SendWithResultStatus
}

type ShareResult struct {
	Batch           string
	Details         []RequestDetail
	SendWithResults []SendWithResult
	// Reconciled is nil on the delayed path and when no request was ready.
	Reconciled *ReconcileResult
}

// ShareRequests shares the requests of txIDs with the network. Delayed sharing queues ready
// requests for the retry sweep, immediate sharing posts them now as one batch.
func (p *Processor) ShareRequests(ctx context.Context, txIDs []string, isDelayed bool) (result *ShareResult, err error) {
	ctx, span := tracing.StartTracing(ctx, "ShareRequests", p.tracingEnabled, p.tracingAttributes...)
	defer func() {
		tracing.EndTracing(span, err)
	}()

	txIDs = unique(txIDs)

	details, err := p.requestDetails(ctx, txIDs)
	if err != nil {
		return nil, err
	}

	ready := make([]*txreq.Request, 0, len(details))
	for _, d := range details {
		if d.Status == DetailReadyToSend {
			ready = append(ready, d.Request)
		}
	}

	result = &ShareResult{Details: details}

	if len(ready) > 1 {
		result.Batch = p.newBatchID()
	}

	var claimed map[string]struct{}
	if len(ready) > 0 {
		if isDelayed {
			err = p.shareDelayed(ctx, ready, result.Batch)
			if err != nil {
				return nil, err
			}
		} else {
			claimed, err = p.shareImmediately(ctx, ready, result)
			if err != nil && result.Reconciled == nil {
				return nil, err
			}
		}
	}

	result.SendWithResults = sendWithResults(details, isDelayed, claimed, result.Reconciled)

	return result, err
}

func (p *Processor) requestDetails(ctx context.Context, txIDs []string) ([]RequestDetail, error) {
	requests, err := p.store.GetRequests(ctx, txIDs)
	if err != nil {
		return nil, err
	}

	byTxID := make(map[string]*txreq.Request, len(requests))
	for _, req := range requests {
		byTxID[req.TxID] = req
	}

	details := make([]RequestDetail, 0, len(txIDs))
	for _, txID := range txIDs {
		req, found := byTxID[txID]
		switch {
		case !found:
			details = append(details, RequestDetail{TxID: txID, Status: DetailUnknown, Err: store.ErrNotFound.Error()})
		case req.Status.AlreadySent():
			details = append(details, RequestDetail{TxID: txID, Request: req, Status: DetailAlreadySent})
		case req.Status.ReadyToSend():
			details = append(details, RequestDetail{TxID: txID, Request: req, Status: DetailReadyToSend})
		default:
			details = append(details, RequestDetail{TxID: txID, Request: req, Status: DetailError, Err: fmt.Sprintf("status %s", req.Status)})
		}
	}

	return details, nil
}

// buildBundle merges the evidence of reqs into one bundle. Inputs missing from the bundle are
// resolved from stored requests; the returned map names the requests whose inputs stay unresolved.
func (p *Processor) buildBundle(ctx context.Context, reqs []*txreq.Request) (*beef.Bundle, map[string]error) {
	bundle := beef.NewBundle()
	unresolved := make(map[string]error)

	for _, req := range reqs {
		err := bundle.MergeBytes(req.InputBeef)
		if err != nil {
			unresolved[req.TxID] = err
			continue
		}

		if len(req.RawTx) == 0 {
			continue
		}

		_, err = bundle.MergeRawTx(req.RawTx)
		if err != nil {
			unresolved[req.TxID] = err
		}
	}

	for _, req := range reqs {
		if _, bad := unresolved[req.TxID]; bad || len(req.RawTx) == 0 {
			continue
		}

		err := p.resolveInputs(ctx, bundle, req)
		if err != nil {
			unresolved[req.TxID] = err
		}
	}

	return bundle, unresolved
}

func (p *Processor) resolveInputs(ctx context.Context, bundle *beef.Bundle, req *txreq.Request) error {
	tx, err := sdkTx.NewTransactionFromBytes(req.RawTx)
	if err != nil {
		return err
	}

	for _, input := range tx.Inputs {
		if input.SourceTXID == nil {
			return errors.Join(ErrUnresolvedInput, errors.New("input without source txid"))
		}

		if bundle.Has(input.SourceTXID) {
			continue
		}

		parent, err := p.store.GetRequest(ctx, input.SourceTXID.String())
		if err != nil || len(parent.RawTx) == 0 {
			return errors.Join(ErrUnresolvedInput, fmt.Errorf("txid: %s", input.SourceTXID.String()))
		}

		err = bundle.MergeBytes(parent.InputBeef)
		if err != nil {
			return errors.Join(ErrUnresolvedInput, err)
		}

		_, err = bundle.MergeRawTx(parent.RawTx)
		if err != nil {
			return errors.Join(ErrUnresolvedInput, err)
		}
	}

	return nil
}

// shareDelayed moves ready requests to unsent and their transactions to sending without contacting the network.
func (p *Processor) shareDelayed(ctx context.Context, ready []*txreq.Request, batch string) error {
	bundle, unresolved := p.buildBundle(ctx, ready)
	if len(unresolved) > 0 || !bundle.Verify(ctx, p.tracker) {
		return errors.Join(ErrBundleInvalid, fmt.Errorf("requests: %d, unresolved: %d", len(ready), len(unresolved)))
	}

	return p.store.InTransaction(ctx, "shareDelayed", func(ctx context.Context, stx store.Tx) error {
		now := p.now()
		for _, r := range ready {
			req, err := stx.GetRequestForUpdate(ctx, r.TxID)
			if err != nil {
				return err
			}

			// moved on meanwhile or claimed for a post
			if !req.Status.ReadyToSend() || req.LockedBy != txreq.Unlocked {
				continue
			}

			if batch != "" && req.Batch != batch {
				req.Batch = batch
				req.AddNote(now, txreq.WhatBatchAssigned, "batch", batch)
			}

			err = req.Transition(txreq.StatusUnsent, now)
			if err != nil {
				return err
			}

			err = stx.UpdateRequest(ctx, req)
			if err != nil {
				return err
			}

			err = stx.UpdateTransactionsStatus(ctx, req.Notify.TransactionIDs, txreq.TxStatusSending)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// shareImmediately claims the ready requests and reconciles the claimed ones with the network.
// Requests another call already holds are left to it. It returns the txids it claimed.
func (p *Processor) shareImmediately(ctx context.Context, ready []*txreq.Request, result *ShareResult) (map[string]struct{}, error) {
	claimedReqs, err := p.store.ClaimRequests(ctx, store.ClaimFilter{
		TxIDs:    requestTxIDs(ready),
		Statuses: txreq.ReadyToSendStatuses,
	}, p.lockedBy)
	if err != nil {
		return nil, err
	}

	claimed := make(map[string]struct{}, len(claimedReqs))
	for _, req := range claimedReqs {
		claimed[req.TxID] = struct{}{}
	}

	if len(claimedReqs) == 0 {
		return claimed, nil
	}

	defer p.unlock(ctx, claimedReqs)

	if len(claimedReqs) < len(ready) {
		p.logger.Warn("Requests already claimed", slog.Int("ready", len(ready)), slog.Int("claimed", len(claimedReqs)))
	}

	if len(claimedReqs) < 2 {
		result.Batch = ""
	}

	bundle, unresolved := p.buildBundle(ctx, claimedReqs)

	result.Reconciled, err = p.reconcile(ctx, bundle, unresolved, claimedReqs, result.Batch, txreq.WhatPostToNetwork)

	return claimed, err
}

func (p *Processor) unlock(ctx context.Context, reqs []*txreq.Request) {
	err := p.store.SetUnlocked(context.WithoutCancel(ctx), requestTxIDs(reqs))
	if err != nil {
		p.logger.Error("Failed to unlock requests", slog.Int("requests", len(reqs)), slog.String("err", err.Error()))
	}
}

// sendWithResults reports per txid: already sent requests are unproven, ready requests queued or
// accepted by a relay are sending, everything else failed.
func sendWithResults(details []RequestDetail, isDelayed bool, claimed map[string]struct{}, reconciled *ReconcileResult) []SendWithResult {
	results := make([]SendWithResult, 0, len(details))

	for _, d := range details {
		status := txreq.SendWithResultStatusFailed

		switch d.Status {
		case DetailAlreadySent:
			status = txreq.SendWithResultStatusUnproven
		case DetailReadyToSend:
			if isDelayed {
				status = txreq.SendWithResultStatusSending
				break
			}

			if _, ok := claimed[d.TxID]; !ok {
				// in flight with another call
				status = txreq.SendWithResultStatusSending
				break
			}

			if reconciled != nil {
				if detail, found := reconciled.Detail(d.TxID); found && detail.Outcome.IsSuccess() {
					status = txreq.SendWithResultStatusSending
				}
			}
		}

		results = append(results, SendWithResult{TxID: d.TxID, Status: status})
	}

	return results
}

func requestTxIDs(reqs []*txreq.Request) []string {
	txIDs := make([]string, 0, len(reqs))
	for _, req := range reqs {
		txIDs = append(txIDs, req.TxID)
	}

	return txIDs
}

func unique(txIDs []string) []string {
	result := make([]string, 0, len(txIDs))
	for _, txID := range txIDs {
		if !slices.Contains(result, txID) {
			result = append(result, txID)
		}
	}

	return result
}

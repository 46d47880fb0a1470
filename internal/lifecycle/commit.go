package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdkTx "github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitcoin-sv/txlifecycle/internal/beef"
	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/tracing"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

// CommitArgs carries a signed transaction for a previously reserved transaction row.
type CommitArgs struct {
	UserID     int64
	Reference  string
	TxID       string
	RawTx      []byte
	IsNoSend   bool
	IsDelayed  bool
	IsSendWith bool
}

// ProcessActionArgs commits an optional new transaction and shares it with the network together
// with the requests named in SendWith.
type ProcessActionArgs struct {
	UserID    int64
	Reference string
	TxID      string
	RawTx     []byte
	IsNoSend  bool
	IsDelayed bool
	SendWith  []string
}

// IsNewTx reports whether the action carries a signed transaction to commit.
func (a ProcessActionArgs) IsNewTx() bool {
	return a.Reference != "" || a.TxID != "" || len(a.RawTx) > 0
}

type ProcessActionResult struct {
	Request         *txreq.Request
	SendWithResults []SendWithResult
	Reconciled      *ReconcileResult
}

type statusPair struct {
	req txreq.Status
	tx  txreq.TxStatus
}

// commitStatus assigns the initial request and transaction status from the caller's intent.
func commitStatus(isNoSend bool, isDelayed bool, isSendWith bool) statusPair {
	switch {
	case isNoSend && !isSendWith:
		return statusPair{req: txreq.StatusNoSend, tx: txreq.TxStatusNoSend}
	case isDelayed:
		return statusPair{req: txreq.StatusUnsent, tx: txreq.TxStatusUnprocessed}
	default:
		return statusPair{req: txreq.StatusUnprocessed, tx: txreq.TxStatusUnprocessed}
	}
}

type outputUpdate struct {
	id     int64
	update store.OutputUpdate
}

// ProcessAction commits args' transaction, if any, and dispatches it together with the sendWith txids.
func (p *Processor) ProcessAction(ctx context.Context, args ProcessActionArgs) (result *ProcessActionResult, err error) {
	ctx, span := tracing.StartTracing(ctx, "ProcessAction", p.tracingEnabled, p.tracingAttributes...)
	defer func() {
		tracing.EndTracing(span, err)
	}()

	result = &ProcessActionResult{}
	txIDs := append([]string{}, args.SendWith...)

	if args.IsNewTx() {
		req, err := p.CommitSignedTransaction(ctx, CommitArgs{
			UserID:     args.UserID,
			Reference:  args.Reference,
			TxID:       args.TxID,
			RawTx:      args.RawTx,
			IsNoSend:   args.IsNoSend,
			IsDelayed:  args.IsDelayed,
			IsSendWith: len(args.SendWith) > 0,
		})
		if err != nil {
			return nil, err
		}

		result.Request = req
		if req.Status != txreq.StatusNoSend {
			txIDs = append(txIDs, req.TxID)
		}
	}

	if len(txIDs) == 0 {
		return result, nil
	}

	shared, err := p.ShareRequests(ctx, txIDs, args.IsDelayed)
	if shared != nil {
		result.SendWithResults = shared.SendWithResults
		result.Reconciled = shared.Reconciled
	}
	if err != nil {
		return result, err
	}

	return result, nil
}

// CommitSignedTransaction validates a signed transaction against its reserved row and records it
// together with a request to share it. Validation failures leave storage untouched.
func (p *Processor) CommitSignedTransaction(ctx context.Context, args CommitArgs) (req *txreq.Request, err error) {
	ctx, span := tracing.StartTracing(ctx, "CommitSignedTransaction", p.tracingEnabled, p.tracingAttributes...)
	defer func() {
		tracing.EndTracing(span, err)
		p.stats.observeCommit(err)
	}()

	if args.Reference == "" || args.TxID == "" || len(args.RawTx) == 0 {
		return nil, ErrMissingArgs
	}

	tx, err := parseRawTx(args.RawTx)
	if err != nil {
		return nil, err
	}

	if tx.TxID().String() != args.TxID {
		return nil, errors.Join(ErrTxIDMismatch, fmt.Errorf("expected: %s, actual: %s", args.TxID, tx.TxID().String()))
	}

	final, err := LockTimeIsFinal(ctx, tx, p.tracker, p.now())
	if err != nil {
		return nil, errors.Join(ErrLockTimeCheck, err)
	}
	if !final {
		return nil, errors.Join(ErrTxNotFinal, fmt.Errorf("lock time: %d", tx.LockTime))
	}

	offsets, err := ParseScriptOffsets(args.RawTx)
	if err != nil {
		return nil, err
	}

	status := commitStatus(args.IsNoSend, args.IsDelayed, args.IsSendWith)

	err = p.store.InTransaction(ctx, "commitNewTx", func(ctx context.Context, stx store.Tx) error {
		transaction, err := p.findReservedTransaction(ctx, stx, args.UserID, args.Reference)
		if err != nil {
			return err
		}

		outputs, err := stx.FindOutputs(ctx, store.OutputFilter{TransactionID: transaction.ID})
		if err != nil {
			return err
		}

		inputs, err := stx.FindOutputs(ctx, store.OutputFilter{SpentBy: transaction.ID})
		if err != nil {
			return err
		}

		err = p.checkCommission(ctx, stx, transaction.ID, tx)
		if err != nil {
			return err
		}

		updates, err := p.outputUpdates(args.TxID, args.RawTx, tx, offsets, outputs)
		if err != nil {
			return err
		}

		now := p.now()
		newReq := txreq.New(args.TxID, args.RawTx, transaction.InputBeef, status.req, now)
		newReq.AddNotifyTransactionID(transaction.ID)
		newReq.AddNote(now, txreq.WhatCommitted,
			"transactionId", transaction.ID,
			"reference", args.Reference,
			"inputs", len(inputs),
			"outputs", len(outputs),
		)

		req, err = stx.InsertOrMergeRequest(ctx, newReq)
		if err != nil {
			return err
		}

		for _, u := range updates {
			err = stx.UpdateOutput(ctx, u.id, u.update)
			if err != nil {
				return err
			}
		}

		return stx.UpdateTransaction(ctx, transaction.ID, store.TransactionUpdate{
			Status:       status.tx,
			TxID:         args.TxID,
			ClearStaging: true,
		})
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Committed transaction",
		slog.String("hash", args.TxID),
		slog.String("reference", args.Reference),
		slog.String("status", string(req.Status)),
	)

	return req, nil
}

func parseRawTx(rawTx []byte) (tx *sdkTx.Transaction, err error) {
	defer func() {
		if r := recover(); r != nil {
			tx = nil
			err = errors.Join(ErrInvalidRawTx, fmt.Errorf("%v", r))
		}
	}()

	tx, err = sdkTx.NewTransactionFromBytes(rawTx)
	if err != nil {
		return nil, errors.Join(ErrInvalidRawTx, err)
	}

	return tx, nil
}

func (p *Processor) findReservedTransaction(ctx context.Context, stx store.Tx, userID int64, reference string) (*store.Transaction, error) {
	transactions, err := stx.FindTransactions(ctx, store.TransactionFilter{UserID: userID, Reference: reference})
	if err != nil {
		return nil, err
	}

	if len(transactions) != 1 {
		return nil, errors.Join(ErrTransactionNotFound, fmt.Errorf("reference: %s, found: %d", reference, len(transactions)))
	}

	transaction := transactions[0]
	if !transaction.IsOutgoing {
		return nil, errors.Join(ErrNotOutgoing, fmt.Errorf("reference: %s", reference))
	}

	if len(transaction.InputBeef) == 0 {
		return nil, errors.Join(ErrMissingInputBeef, fmt.Errorf("reference: %s", reference))
	}

	_, err = beef.NewBundleFromBytes(transaction.InputBeef)
	if err != nil {
		return nil, errors.Join(ErrMissingInputBeef, err)
	}

	if transaction.Status != txreq.TxStatusUnsigned && transaction.Status != txreq.TxStatusUnprocessed {
		return nil, errors.Join(ErrTransactionStatus, fmt.Errorf("reference: %s, status: %s", reference, transaction.Status))
	}

	return transaction, nil
}

func (p *Processor) checkCommission(ctx context.Context, stx store.Tx, transactionID int64, tx *sdkTx.Transaction) error {
	commission, err := stx.FindCommission(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if p.commissionSatoshis > 0 {
			return errors.Join(ErrCommissionMissing, fmt.Errorf("no commission for transaction %d", transactionID))
		}

		return nil
	}

	if commission.Satoshis <= 0 && p.commissionSatoshis == 0 {
		return nil
	}

	for _, output := range tx.Outputs {
		if int64(output.Satoshis) != commission.Satoshis || output.LockingScript == nil {
			continue
		}

		if bytes.Equal(output.LockingScript.Bytes(), commission.LockingScript) {
			return nil
		}
	}

	return errors.Join(ErrCommissionMissing, fmt.Errorf("satoshis: %d", commission.Satoshis))
}

func (p *Processor) outputUpdates(txID string, rawTx []byte, tx *sdkTx.Transaction, offsets *ScriptOffsets, outputs []*store.Output) ([]outputUpdate, error) {
	updates := make([]outputUpdate, 0, len(outputs))

	for _, o := range outputs {
		if int(o.Vout) >= len(offsets.Outputs) || int(o.Vout) >= len(tx.Outputs) {
			return nil, errors.Join(ErrOutputOutOfRange, fmt.Errorf("vout: %d, outputs: %d", o.Vout, len(tx.Outputs)))
		}

		offset := offsets.Outputs[o.Vout]
		rawScript, ok := offset.Script(rawTx)
		if !ok {
			return nil, errors.Join(ErrOutputOutOfRange, fmt.Errorf("vout: %d, offset: %d, length: %d", o.Vout, offset.Offset, offset.Length))
		}

		if len(o.LockingScript) > 0 && !bytes.Equal(rawScript, o.LockingScript) {
			return nil, errors.Join(ErrOutputScriptMismatch, fmt.Errorf("raw transaction script of vout %d", o.Vout))
		}

		parsed := tx.Outputs[o.Vout].LockingScript
		if parsed == nil || !bytes.Equal(parsed.Bytes(), rawScript) {
			return nil, errors.Join(ErrOutputScriptMismatch, fmt.Errorf("parsed transaction script of vout %d", o.Vout))
		}

		update := store.OutputUpdate{
			TxID:         txID,
			Spendable:    true,
			ScriptOffset: offset.Offset,
			ScriptLength: offset.Length,
		}
		if offset.Length <= p.maxOutputScript {
			update.LockingScript = bytes.Clone(rawScript)
		}

		updates = append(updates, outputUpdate{id: o.ID, update: update})
	}

	return updates, nil
}

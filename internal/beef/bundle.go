package beef

import (
	"context"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	sdkTx "github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/chaintracker"
)

var (
	ErrBundleParse     = errors.New("failed to parse proof bundle")
	ErrBundlePanic     = errors.New("panic while parsing proof bundle")
	ErrBundleMerge     = errors.New("failed to merge into proof bundle")
	ErrBundleSerialize = errors.New("failed to serialize proof bundle")
	ErrUnknownTxID     = errors.New("transaction not found in proof bundle")
	ErrMissingAncestor = errors.New("proof bundle is missing an ancestor")
)

const maxAncestryDepth = 1000

// Bundle is an append-only collection of transactions and the merkle paths proving their
// ancestors. Merging a transaction that is already present is a no-op.
type Bundle struct {
	beef *sdkTx.Beef
}

func NewBundle() *Bundle {
	return &Bundle{beef: sdkTx.NewBeefV2()}
}

// NewBundleFromBytes parses BEEF V1, V2 or atomic BEEF bytes. Empty input yields an empty bundle.
func NewBundleFromBytes(b []byte) (bundle *Bundle, err error) {
	if len(b) == 0 {
		return NewBundle(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			bundle = nil
			err = errors.Join(ErrBundlePanic, fmt.Errorf("%v", r))
		}
	}()

	parsed, _, _, err := sdkTx.ParseBeef(b)
	if err != nil {
		return nil, errors.Join(ErrBundleParse, err)
	}

	return &Bundle{beef: parsed}, nil
}

// Len returns the number of transactions, including txid-only entries.
func (b *Bundle) Len() int {
	return len(b.beef.Transactions)
}

// Has reports whether the txid is known to the bundle, either as a full transaction or txid only.
func (b *Bundle) Has(txID *chainhash.Hash) bool {
	if txID == nil {
		return false
	}
	_, found := b.beef.Transactions[*txID]
	return found
}

// HasTransaction reports whether the full transaction for txID is included.
func (b *Bundle) HasTransaction(txID *chainhash.Hash) bool {
	return b.FindTransaction(txID) != nil
}

func (b *Bundle) FindTransaction(txID *chainhash.Hash) *sdkTx.Transaction {
	if txID == nil {
		return nil
	}

	btx, found := b.beef.Transactions[*txID]
	if !found || btx.DataFormat == sdkTx.TxIDOnly {
		return nil
	}

	return btx.Transaction
}

func (b *Bundle) TxIDs() []string {
	txIDs := make([]string, 0, len(b.beef.Transactions))
	for txID := range b.beef.Transactions {
		txIDs = append(txIDs, txID.String())
	}

	return txIDs
}

// MissingInputs returns the txids of inputs which are neither included nor proven.
func (b *Bundle) MissingInputs() []string {
	return b.beef.ValidateTransactions().MissingInputs
}

func (b *Bundle) MergeTransaction(tx *sdkTx.Transaction) error {
	if tx == nil {
		return errors.Join(ErrBundleMerge, errors.New("nil transaction"))
	}

	if b.HasTransaction(tx.TxID()) {
		return nil
	}

	_, err := b.beef.MergeTransaction(tx)
	if err != nil {
		return errors.Join(ErrBundleMerge, err)
	}

	return nil
}

// MergeRawTx parses rawTx and merges it. It returns the txid of the merged transaction.
func (b *Bundle) MergeRawTx(rawTx []byte) (*chainhash.Hash, error) {
	tx, err := sdkTx.NewTransactionFromBytes(rawTx)
	if err != nil {
		return nil, errors.Join(ErrBundleMerge, err)
	}

	err = b.MergeTransaction(tx)
	if err != nil {
		return nil, err
	}

	return tx.TxID(), nil
}

func (b *Bundle) MergeBundle(other *Bundle) error {
	if other == nil {
		return nil
	}

	for txID, btx := range other.beef.Transactions {
		err := mergeBeefTx(b.beef, other.beef, txID, btx)
		if err != nil {
			return err
		}
	}

	return nil
}

// MergeBytes parses serialized BEEF and merges it.
func (b *Bundle) MergeBytes(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}

	other, err := NewBundleFromBytes(raw)
	if err != nil {
		return err
	}

	return b.MergeBundle(other)
}

// Verify checks that every transaction resolves to a proven ancestor and that every merkle
// root is valid for its height. Malformed evidence yields false.
func (b *Bundle) Verify(ctx context.Context, tracker chaintracker.ChainTracker) (valid bool) {
	if len(b.beef.Transactions) == 0 {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			valid = false
		}
	}()

	ok, err := b.beef.Verify(ctx, tracker, false)
	if err != nil {
		return false
	}

	return ok
}

func (b *Bundle) Bytes() ([]byte, error) {
	raw, err := b.beef.Bytes()
	if err != nil {
		return nil, errors.Join(ErrBundleSerialize, err)
	}

	return raw, nil
}

// ToAtomicForm serializes the bundle pruned to rootTxID and its unproven ancestry as atomic BEEF.
// Every ancestor of rootTxID must be included as a full transaction down to a proven one.
func (b *Bundle) ToAtomicForm(rootTxID *chainhash.Hash) ([]byte, error) {
	if !b.HasTransaction(rootTxID) {
		return nil, errors.Join(ErrUnknownTxID, fmt.Errorf("txid: %v", rootTxID))
	}

	pruned := sdkTx.NewBeefV2()
	visited := make(map[chainhash.Hash]struct{})

	var collect func(txID chainhash.Hash) error
	collect = func(txID chainhash.Hash) error {
		if _, ok := visited[txID]; ok {
			return nil
		}
		visited[txID] = struct{}{}

		btx, found := b.beef.Transactions[txID]
		if !found || btx.DataFormat == sdkTx.TxIDOnly || btx.Transaction == nil {
			return errors.Join(ErrMissingAncestor, fmt.Errorf("txid: %s", txID.String()))
		}

		err := mergeBeefTx(pruned, b.beef, txID, btx)
		if err != nil {
			return err
		}

		if bumpFor(b.beef, txID, btx) != nil {
			return nil
		}

		for _, input := range btx.Transaction.Inputs {
			if input.SourceTXID == nil {
				return errors.Join(ErrMissingAncestor, fmt.Errorf("input of %s has no source txid", txID.String()))
			}

			err = collect(*input.SourceTXID)
			if err != nil {
				return err
			}
		}

		return nil
	}

	err := collect(*rootTxID)
	if err != nil {
		return nil, err
	}

	raw, err := pruned.AtomicBytes(rootTxID)
	if err != nil {
		return nil, errors.Join(ErrBundleSerialize, err)
	}

	return raw, nil
}

// SubjectTransaction returns a copy of txID whose inputs carry their source transactions down to
// ancestors holding a merkle path, as needed for single-subject BEEF serialization.
func (b *Bundle) SubjectTransaction(txID *chainhash.Hash) (*sdkTx.Transaction, error) {
	if !b.HasTransaction(txID) {
		return nil, errors.Join(ErrUnknownTxID, fmt.Errorf("txid: %v", txID))
	}

	return b.hydrate(*txID, 0)
}

func (b *Bundle) hydrate(txID chainhash.Hash, depth int) (*sdkTx.Transaction, error) {
	if depth > maxAncestryDepth {
		return nil, errors.Join(ErrMissingAncestor, fmt.Errorf("ancestry of %s exceeds depth %d", txID.String(), maxAncestryDepth))
	}

	btx, found := b.beef.Transactions[txID]
	if !found || btx.DataFormat == sdkTx.TxIDOnly || btx.Transaction == nil {
		return nil, errors.Join(ErrMissingAncestor, fmt.Errorf("txid: %s", txID.String()))
	}

	tx, err := sdkTx.NewTransactionFromBytes(btx.Transaction.Bytes())
	if err != nil {
		return nil, errors.Join(ErrBundleSerialize, err)
	}

	if bump := bumpFor(b.beef, txID, btx); bump != nil {
		tx.MerklePath = bump
		return tx, nil
	}

	for _, input := range tx.Inputs {
		if input.SourceTXID == nil {
			return nil, errors.Join(ErrMissingAncestor, fmt.Errorf("input of %s has no source txid", txID.String()))
		}

		input.SourceTransaction, err = b.hydrate(*input.SourceTXID, depth+1)
		if err != nil {
			return nil, err
		}
	}

	return tx, nil
}

func bumpFor(src *sdkTx.Beef, txID chainhash.Hash, btx *sdkTx.BeefTx) *sdkTx.MerklePath {
	if btx.DataFormat == sdkTx.RawTxAndBumpIndex && btx.BumpIndex >= 0 && btx.BumpIndex < len(src.BUMPs) {
		return src.BUMPs[btx.BumpIndex]
	}

	return src.FindBumpByHash(&txID)
}

// mergeBeefTx copies one entry of src into dst, re-indexing its merkle path. Entries dst
// already holds in full are left untouched.
func mergeBeefTx(dst, src *sdkTx.Beef, txID chainhash.Hash, btx *sdkTx.BeefTx) error {
	existing, found := dst.Transactions[txID]
	if found && existing.DataFormat != sdkTx.TxIDOnly {
		return nil
	}

	if btx.DataFormat == sdkTx.TxIDOnly || btx.Transaction == nil {
		if !found {
			id := txID
			dst.MergeTxidOnly(&id)
		}
		return nil
	}

	bump := bumpFor(src, txID, btx)
	if bump == nil {
		dst.Transactions[txID] = &sdkTx.BeefTx{
			DataFormat:  sdkTx.RawTx,
			Transaction: btx.Transaction,
		}
		return nil
	}

	// merged bumps may be combined in place, never hand out the source's pointer
	bumpCopy, err := sdkTx.NewMerklePathFromBinary(bump.Bytes())
	if err != nil {
		return errors.Join(ErrBundleMerge, err)
	}

	dst.Transactions[txID] = &sdkTx.BeefTx{
		DataFormat:  sdkTx.RawTxAndBumpIndex,
		Transaction: btx.Transaction,
		BumpIndex:   dst.MergeBump(bumpCopy),
	}

	return nil
}

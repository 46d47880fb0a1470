package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bitcoin-sv/txlifecycle/internal/chaintracker"
	"github.com/bitcoin-sv/txlifecycle/internal/relay"
	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

const (
	// maxOutputScriptDefault is the longest locking script kept inline in an output row.
	maxOutputScriptDefault = uint64(500)

	sweepIntervalDefault  = 30 * time.Second
	sweepBatchSizeDefault = int64(100)
)

var (
	ErrStoreNil   = errors.New("store cannot be nil")
	ErrTrackerNil = errors.New("chain tracker cannot be nil")
	ErrRelaysNil  = errors.New("relays cannot be nil")

	ErrValidation           = errors.New("validation failed")
	ErrMissingArgs          = fmt.Errorf("%w: reference, txid and raw transaction are required", ErrValidation)
	ErrInvalidRawTx         = fmt.Errorf("%w: failed to parse raw transaction", ErrValidation)
	ErrTxIDMismatch         = fmt.Errorf("%w: hash of raw transaction does not match txid", ErrValidation)
	ErrTxNotFinal           = fmt.Errorf("%w: transaction is not final", ErrValidation)
	ErrScriptOffsets        = fmt.Errorf("%w: failed to parse script offsets", ErrValidation)
	ErrTransactionNotFound  = fmt.Errorf("%w: expected exactly one transaction for reference", ErrValidation)
	ErrTransactionStatus    = fmt.Errorf("%w: invalid transaction status", ErrValidation)
	ErrNotOutgoing          = fmt.Errorf("%w: transaction is not outgoing", ErrValidation)
	ErrMissingInputBeef     = fmt.Errorf("%w: transaction has no input beef", ErrValidation)
	ErrOutputScriptMismatch = fmt.Errorf("%w: output locking script does not match", ErrValidation)
	ErrOutputOutOfRange     = fmt.Errorf("%w: output vout out of range", ErrValidation)
	ErrCommissionMissing    = fmt.Errorf("%w: transaction does not pay the service fee", ErrValidation)

	ErrInternalInvariant = errors.New("internal invariant violated")
	ErrBundleInvalid     = fmt.Errorf("%w: proof bundle failed verification", ErrInternalInvariant)
	ErrRelayOmittedTx    = fmt.Errorf("%w: relay returned no result for txid", ErrInternalInvariant)
	ErrLockTimeCheck     = fmt.Errorf("%w: failed to check lock time", ErrInternalInvariant)

	ErrFailedToPublish = errors.New("failed to publish status event")
)

// MessageQueue receives status events after each reconciliation.
//
//go:generate moq -pkg mocks -out ./mocks/message_queue_mock.go . MessageQueue
type MessageQueue interface {
	Publish(ctx context.Context, topic string, data []byte) error
}

// Processor commits signed transactions and shares them with the network.
type Processor struct {
	store   store.Store
	tracker chaintracker.ChainTracker
	relays  *relay.MultiRelay
	logger  *slog.Logger
	now     func() time.Time

	maxAttempts        int
	maxOutputScript    uint64
	commissionSatoshis uint64
	lockedBy           string
	newBatchID         func() string

	mqClient    MessageQueue
	statusTopic string

	stats *processorStats

	sweepInterval  time.Duration
	sweepBatchSize int64

	waitGroup *sync.WaitGroup
	cancelAll context.CancelFunc
	ctx       context.Context

	tracingEnabled    bool
	tracingAttributes []attribute.KeyValue
}

type Option func(p *Processor)

func NewProcessor(s store.Store, tracker chaintracker.ChainTracker, relays *relay.MultiRelay, opts ...Option) (*Processor, error) {
	if s == nil {
		return nil, ErrStoreNil
	}

	if tracker == nil {
		return nil, ErrTrackerNil
	}

	if relays == nil {
		return nil, ErrRelaysNil
	}

	p := &Processor{
		store:           s,
		tracker:         tracker,
		relays:          relays,
		logger:          slog.Default(),
		now:             time.Now,
		maxAttempts:     txreq.DefaultMaxAttempts,
		maxOutputScript: maxOutputScriptDefault,
		lockedBy:        uuid.NewString(),
		newBatchID:      uuid.NewString,
		statusTopic:     StatusTopic,
		sweepInterval:   sweepIntervalDefault,
		sweepBatchSize:  sweepBatchSizeDefault,
		stats:           newProcessorStats(),
		waitGroup:       &sync.WaitGroup{},
	}

	for _, opt := range opts {
		opt(p)
	}

	p.logger = p.logger.With(slog.String("module", "lifecycle"))

	ctx, cancelAll := context.WithCancel(context.Background())
	p.cancelAll = cancelAll
	p.ctx = ctx

	return p, nil
}

// LockedBy is the name under which this processor claims requests.
func (p *Processor) LockedBy() string {
	return p.lockedBy
}

func (p *Processor) Shutdown() {
	p.logger.Info("Shutting down processor")

	if p.cancelAll != nil {
		p.cancelAll()
	}

	p.waitGroup.Wait()

	err := p.unlockRecords(context.Background())
	if err != nil {
		p.logger.Error("Failed to unlock requests", slog.String("err", err.Error()))
	}
}

func (p *Processor) unlockRecords(ctx context.Context) error {
	unlocked, err := p.store.SetUnlockedByName(ctx, p.lockedBy)
	if err != nil {
		return err
	}

	p.logger.Info("Unlocked requests", slog.Int64("number", unlocked), slog.String("lockedBy", p.lockedBy))

	return nil
}

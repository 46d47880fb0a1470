package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrPostFailed = errors.New("failed to post to relay")

// Outcome classifies what a relay reported for one txid.
type Outcome string

const (
	// OutcomeSuccess means the relay accepted the transaction.
	OutcomeSuccess Outcome = "success"
	// OutcomeAlreadyKnown means the relay had accepted the transaction before.
	OutcomeAlreadyKnown Outcome = "alreadyKnown"
	// OutcomeDoubleSpend means the transaction conflicts with an already settled spend.
	OutcomeDoubleSpend Outcome = "doubleSpend"
	// OutcomeRejected means the relay answered with an explicit error which is not a double spend.
	OutcomeRejected Outcome = "rejected"
	// OutcomeUnknown means no definitive answer, e.g. timeout or missing result.
	OutcomeUnknown Outcome = "unknown"
)

func (o Outcome) IsSuccess() bool {
	return o == OutcomeSuccess || o == OutcomeAlreadyKnown
}

// TxResult is the answer of one relay for one txid.
type TxResult struct {
	TxID         string
	Outcome      Outcome
	CompetingTxs []string
	BlockHash    string
	BlockHeight  uint32
	MerklePath   string
	Data         string
	Err          error
}

// PostResult holds everything one relay returned for one post. Err is set when the relay could not be reached.
type PostResult struct {
	Name    string
	Results []TxResult
	Err     error
}

func (p *PostResult) Result(txID string) (TxResult, bool) {
	if p == nil {
		return TxResult{}, false
	}

	for _, r := range p.Results {
		if r.TxID == txID {
			return r, true
		}
	}

	return TxResult{}, false
}

//go:generate moq -pkg mocks -out ./mocks/relay_mock.go . Relay
type Relay interface {
	Name() string
	PostBeef(ctx context.Context, beef []byte, txIDs []string) ([]TxResult, error)
}

// MultiRelay posts to all relays concurrently.
type MultiRelay struct {
	relays  []Relay
	logger  *slog.Logger
	timeout time.Duration
}

func WithLogger(logger *slog.Logger) func(*MultiRelay) {
	return func(m *MultiRelay) {
		m.logger = logger
	}
}

// WithTimeout bounds each relay call. Relays not answering in time yield an unknown outcome.
func WithTimeout(timeout time.Duration) func(*MultiRelay) {
	return func(m *MultiRelay) {
		m.timeout = timeout
	}
}

func NewMultiRelay(relays []Relay, opts ...func(*MultiRelay)) *MultiRelay {
	m := &MultiRelay{
		relays: relays,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.logger = m.logger.With(slog.String("module", "relay"))

	return m
}

func (m *MultiRelay) Len() int {
	return len(m.relays)
}

// Post sends beef to every relay and returns one result per relay in relay order.
func (m *MultiRelay) Post(ctx context.Context, beef []byte, txIDs []string) []*PostResult {
	results := make([]*PostResult, len(m.relays))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range m.relays {
		g.Go(func() error {
			postCtx := gctx
			if m.timeout > 0 {
				var cancel context.CancelFunc
				postCtx, cancel = context.WithTimeout(gctx, m.timeout)
				defer cancel()
			}

			txResults, err := r.PostBeef(postCtx, beef, txIDs)
			if err != nil {
				m.logger.Warn("Failed to post beef", slog.String("relay", r.Name()), slog.Int("txs", len(txIDs)), slog.String("err", err.Error()))
				results[i] = &PostResult{Name: r.Name(), Err: errors.Join(ErrPostFailed, err)}
				return nil
			}

			results[i] = &PostResult{Name: r.Name(), Results: txResults}
			return nil
		})
	}

	_ = g.Wait()

	return results
}

// Aggregate selects the authoritative result for txID: the first success, otherwise the first
// result any relay returned for it, otherwise unknown.
func Aggregate(results []*PostResult, txID string) TxResult {
	var first *TxResult

	for _, pr := range results {
		if pr == nil || pr.Err != nil {
			continue
		}

		r, found := pr.Result(txID)
		if !found {
			continue
		}

		if r.Outcome.IsSuccess() {
			return r
		}

		if first == nil {
			first = &r
		}
	}

	if first != nil {
		return *first
	}

	return TxResult{TxID: txID, Outcome: OutcomeUnknown}
}

// Omitted returns the names of relays which answered but returned nothing for txID.
func Omitted(results []*PostResult, txID string) []string {
	var names []string
	for _, pr := range results {
		if pr == nil || pr.Err != nil {
			continue
		}

		if _, found := pr.Result(txID); !found {
			names = append(names, pr.Name)
		}
	}

	return names
}

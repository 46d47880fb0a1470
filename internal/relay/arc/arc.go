package arc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/go-resty/resty/v2"

	"github.com/bitcoin-sv/txlifecycle/internal/beef"
	"github.com/bitcoin-sv/txlifecycle/internal/relay"
)

// ARC specific http status codes
const (
	StatusNotExtendedFormat             = 460
	StatusFeeTooLow                     = 465
	StatusCumulativeFeeValidationFailed = 473
)

var (
	ErrUnreachable   = errors.New("arc is unreachable")
	ErrUnauthorized  = errors.New("arc returned unauthorized")
	ErrInvalidBundle = errors.New("cannot broadcast proof bundle")
	ErrServer        = errors.New("arc returned server error")
)

type TXStatus string

const (
	Queued              TXStatus = "QUEUED"
	Received            TXStatus = "RECEIVED"
	Stored              TXStatus = "STORED"
	AnnouncedToNetwork  TXStatus = "ANNOUNCED_TO_NETWORK"
	RequestedByNetwork  TXStatus = "REQUESTED_BY_NETWORK"
	SentToNetwork       TXStatus = "SENT_TO_NETWORK"
	AcceptedByNetwork   TXStatus = "ACCEPTED_BY_NETWORK"
	SeenInOrphanMempool TXStatus = "SEEN_IN_ORPHAN_MEMPOOL"
	SeenOnNetwork       TXStatus = "SEEN_ON_NETWORK"
	DoubleSpend         TXStatus = "DOUBLE_SPEND_ATTEMPTED"
	Rejected            TXStatus = "REJECTED"
	Mined               TXStatus = "MINED"
	MinedInStaleBlock   TXStatus = "MINED_IN_STALE_BLOCK"
)

// TXInfo is the transaction status returned by ARC.
type TXInfo struct {
	BlockHash    string    `json:"blockHash"`
	BlockHeight  uint32    `json:"blockHeight"`
	CompetingTxs []string  `json:"competingTxs"`
	ExtraInfo    string    `json:"extraInfo"`
	MerklePath   string    `json:"merklePath"`
	Timestamp    time.Time `json:"timestamp"`
	TXStatus     TXStatus  `json:"txStatus"`
	TxID         string    `json:"txid"`
}

// APIError is the body ARC returns with 4xx and 5xx responses.
type APIError struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	TxID      string `json:"txid"`
	ExtraInfo string `json:"extraInfo"`
}

func (a *APIError) Error() string {
	if a.IsEmpty() {
		return "ARC error: empty (or not in json) response"
	}
	return fmt.Sprintf("ARC error: %s <txID: %s> %s", a.Title, a.TxID, a.Detail)
}

func (a *APIError) IsEmpty() bool {
	return a == nil || a.Status == 0
}

type broadcastRequestBody struct {
	// hex of raw tx, extended format or BEEF
	RawTx string `json:"rawTx"`
}

// Relay posts transactions to one ARC instance.
type Relay struct {
	name         string
	client       *resty.Client
	logger       *slog.Logger
	broadcastURL string
	queryTxURL   string
	waitFor      string
}

func WithLogger(logger *slog.Logger) func(*Relay) {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithToken(token string) func(*Relay) {
	return func(r *Relay) {
		if token != "" {
			r.client.SetAuthToken(token)
		}
	}
}

func WithDeploymentID(id string) func(*Relay) {
	return func(r *Relay) {
		if id != "" {
			r.client.SetHeader("XDeployment-ID", id)
		}
	}
}

func WithTimeout(timeout time.Duration) func(*Relay) {
	return func(r *Relay) {
		if timeout > 0 {
			r.client.SetTimeout(timeout)
		}
	}
}

// WithWaitFor makes ARC hold the response until the transaction reaches status.
func WithWaitFor(status TXStatus) func(*Relay) {
	return func(r *Relay) {
		r.waitFor = string(status)
	}
}

func WithClient(client *resty.Client) func(*Relay) {
	return func(r *Relay) {
		r.client = client
	}
}

func New(name string, url string, opts ...func(*Relay)) *Relay {
	r := &Relay{
		name:   name,
		client: resty.New(),
		logger: slog.Default(),

		broadcastURL: url + "/v1/txs",
		queryTxURL:   url + "/v1/tx/{txID}",
	}

	for _, opt := range opts {
		opt(r)
	}

	r.client.
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "txlifecycle")

	r.logger = r.logger.With(slog.String("module", "arc-relay"), slog.String("name", name))

	return r
}

func (r *Relay) Name() string {
	return r.name
}

// PostBeef broadcasts one BEEF per txid in a single batch call. Txids missing from the response
// are queried individually.
func (r *Relay) PostBeef(ctx context.Context, beefBytes []byte, txIDs []string) ([]relay.TxResult, error) {
	bundle, err := beef.NewBundleFromBytes(beefBytes)
	if err != nil {
		return nil, errors.Join(ErrInvalidBundle, err)
	}

	body := make([]broadcastRequestBody, 0, len(txIDs))
	for _, txID := range txIDs {
		hash, err := chainhash.NewHashFromHex(txID)
		if err != nil {
			return nil, errors.Join(ErrInvalidBundle, fmt.Errorf("invalid txid %s: %w", txID, err))
		}

		subject, err := bundle.SubjectTransaction(hash)
		if err != nil {
			return nil, errors.Join(ErrInvalidBundle, err)
		}

		beefHex, err := subject.BEEFHex()
		if err != nil {
			return nil, errors.Join(ErrInvalidBundle, fmt.Errorf("failed to serialize %s: %w", txID, err))
		}

		body = append(body, broadcastRequestBody{RawTx: beefHex})
	}

	infos, apiErr, err := r.broadcast(ctx, body)
	if err != nil {
		return nil, err
	}

	byTxID := make(map[string]*TXInfo, len(infos))
	for i := range infos {
		byTxID[infos[i].TxID] = &infos[i]
	}

	results := make([]relay.TxResult, 0, len(txIDs))
	for _, txID := range txIDs {
		if apiErr != nil {
			results = append(results, relay.TxResult{TxID: txID, Outcome: relay.OutcomeRejected, Err: apiErr, Data: apiErr.Error()})
			continue
		}

		info, found := byTxID[txID]
		if !found {
			results = append(results, r.queryResult(ctx, txID))
			continue
		}

		results = append(results, toTxResult(txID, info))
	}

	return results, nil
}

// broadcast returns an APIError for responses rejecting the whole request. Transport failures and
// server errors are returned as error.
func (r *Relay) broadcast(ctx context.Context, body []broadcastRequestBody) ([]TXInfo, *APIError, error) {
	var result []TXInfo
	arcErr := &APIError{}

	req := r.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(arcErr)

	if r.waitFor != "" {
		req.SetHeader("X-WaitFor", r.waitFor)
	}

	response, err := req.Post(r.broadcastURL)
	if err != nil {
		var netError net.Error
		if errors.As(err, &netError) {
			return nil, nil, errors.Join(ErrUnreachable, netError)
		}
		return nil, nil, fmt.Errorf("failed to send request to arc: %w", err)
	}

	switch code := response.StatusCode(); {
	case code == http.StatusOK:
		return result, nil, nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusNotFound:
		return nil, nil, errors.Join(ErrUnauthorized, arcErr)
	case code >= http.StatusInternalServerError:
		return nil, nil, errors.Join(ErrServer, fmt.Errorf("status %d: %w", code, arcErr))
	default:
		r.logger.Warn("ARC rejected broadcast", slog.Int("status", code), slog.String("err", arcErr.Error()))
		return nil, arcErr, nil
	}
}

func (r *Relay) queryResult(ctx context.Context, txID string) relay.TxResult {
	info, err := r.queryTransaction(ctx, txID)
	if err != nil {
		r.logger.Warn("Failed to query transaction", slog.String("txid", txID), slog.String("err", err.Error()))
		return relay.TxResult{TxID: txID, Outcome: relay.OutcomeUnknown, Err: err}
	}

	if info == nil || info.TxID != txID {
		return relay.TxResult{TxID: txID, Outcome: relay.OutcomeUnknown, Data: "not found"}
	}

	return toTxResult(txID, info)
}

// queryTransaction returns nil without error if ARC does not know the transaction.
func (r *Relay) queryTransaction(ctx context.Context, txID string) (*TXInfo, error) {
	result := &TXInfo{}
	arcErr := &APIError{}

	response, err := r.client.R().
		SetContext(ctx).
		SetResult(result).
		SetError(arcErr).
		SetPathParam("txID", txID).
		Get(r.queryTxURL)
	if err != nil {
		var netError net.Error
		if errors.As(err, &netError) {
			return nil, errors.Join(ErrUnreachable, netError)
		}
		return nil, fmt.Errorf("failed to send request to arc: %w", err)
	}

	switch response.StatusCode() {
	case http.StatusOK:
		return result, nil
	case http.StatusNotFound:
		if !arcErr.IsEmpty() {
			return nil, nil
		}
		return nil, errors.Join(ErrUnreachable, fmt.Errorf("url: %s", r.queryTxURL))
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, errors.Join(ErrUnauthorized, arcErr)
	default:
		return nil, fmt.Errorf("arc returns unexpected http status [%d %s]: %w", response.StatusCode(), response.Status(), arcErr)
	}
}

func toTxResult(txID string, info *TXInfo) relay.TxResult {
	result := relay.TxResult{
		TxID:         txID,
		CompetingTxs: info.CompetingTxs,
		BlockHash:    info.BlockHash,
		BlockHeight:  info.BlockHeight,
		MerklePath:   info.MerklePath,
	}

	switch info.TXStatus {
	case DoubleSpend:
		result.Outcome = relay.OutcomeDoubleSpend
	case Rejected:
		result.Outcome = relay.OutcomeRejected
		result.Err = fmt.Errorf("rejected: %s", info.ExtraInfo)
	case Mined, MinedInStaleBlock:
		result.Outcome = relay.OutcomeAlreadyKnown
	case Queued, Received, Stored, AnnouncedToNetwork, RequestedByNetwork, SentToNetwork, AcceptedByNetwork, SeenOnNetwork:
		result.Outcome = relay.OutcomeSuccess
	default:
		result.Outcome = relay.OutcomeUnknown
	}

	data, err := json.Marshal(info)
	if err != nil {
		result.Data = fmt.Sprintf("%+v", info)
	} else {
		result.Data = string(data)
	}

	return result
}

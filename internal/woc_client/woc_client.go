package woc_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/cenkalti/backoff/v4"
)

const (
	apiURLDefault     = "https://api.whatsonchain.com/v1/bsv"
	retriesDefault    = uint64(3)
	retryDelayDefault = 500 * time.Millisecond
	requestTimeout    = 10 * time.Second
)

var (
	ErrRequestFailed = errors.New("request to WhatsOnChain failed")
	ErrParseResponse = errors.New("failed to parse WhatsOnChain response")
)

// WocClient answers chain tracking questions from the WhatsOnChain API.
type WocClient struct {
	client        http.Client
	authorization string
	net           string
	apiURL        string
	retries       uint64
	retryDelay    time.Duration
	logger        *slog.Logger
}

func WithLogger(logger *slog.Logger) func(*WocClient) {
	return func(p *WocClient) {
		p.logger = logger
	}
}

func WithAuth(authorization string) func(*WocClient) {
	return func(p *WocClient) {
		p.authorization = authorization
	}
}

// WithAPIURL replaces the public endpoint, e.g. with a self-hosted mirror.
func WithAPIURL(apiURL string) func(*WocClient) {
	return func(p *WocClient) {
		p.apiURL = apiURL
	}
}

func WithRetries(retries uint64, delay time.Duration) func(*WocClient) {
	return func(p *WocClient) {
		p.retries = retries
		p.retryDelay = delay
	}
}

func New(mainnet bool, opts ...func(client *WocClient)) *WocClient {
	net := "test"
	if mainnet {
		net = "main"
	}

	w := &WocClient{
		client:     http.Client{Timeout: requestTimeout},
		net:        net,
		apiURL:     apiURLDefault,
		retries:    retriesDefault,
		retryDelay: retryDelayDefault,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.With(slog.String("module", "woc-client"))

	return w
}

type wocBlockHeader struct {
	Hash       string `json:"hash"`
	Height     uint32 `json:"height"`
	MerkleRoot string `json:"merkleroot"`
}

type wocChainInfo struct {
	Blocks        uint32 `json:"blocks"`
	BestBlockHash string `json:"bestblockhash"`
}

// IsValidRootForHeight compares root with the merkle root of the block at height. An unknown
// height is not an error, the root is just not valid yet.
func (w *WocClient) IsValidRootForHeight(ctx context.Context, root *chainhash.Hash, height uint32) (bool, error) {
	var header wocBlockHeader

	found, err := w.getWithRetries(ctx, fmt.Sprintf("block/%d/header", height), &header)
	if err != nil {
		return false, err
	}

	if !found {
		return false, nil
	}

	return header.MerkleRoot == root.String(), nil
}

func (w *WocClient) CurrentHeight(ctx context.Context) (uint32, error) {
	var info wocChainInfo

	found, err := w.getWithRetries(ctx, "chain/info", &info)
	if err != nil {
		return 0, err
	}

	if !found {
		return 0, errors.Join(ErrRequestFailed, errors.New("chain info not found"))
	}

	return info.Blocks, nil
}

func (w *WocClient) getWithRetries(ctx context.Context, endpoint string, target any) (bool, error) {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(w.retryDelay), w.retries)

	policyContext := backoff.WithContext(policy, ctx)

	operation := func() (bool, error) {
		return w.get(ctx, endpoint, target)
	}

	notify := func(err error, nextTry time.Duration) {
		w.logger.Warn("Failed to query WhatsOnChain", slog.String("endpoint", endpoint), slog.String("next try", nextTry.String()), slog.String("err", err.Error()))
	}

	return backoff.RetryNotifyWithData(operation, policyContext, notify)
}

func (w *WocClient) get(ctx context.Context, endpoint string, target any) (bool, error) {
	req, err := w.httpRequest(ctx, http.MethodGet, endpoint)
	if err != nil {
		return false, backoff.Permanent(err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return false, errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return false, errors.Join(ErrRequestFailed, fmt.Errorf("response status: %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		return false, backoff.Permanent(errors.Join(ErrRequestFailed, fmt.Errorf("response status: %s", resp.Status)))
	}

	err = json.NewDecoder(resp.Body).Decode(target)
	if err != nil {
		return false, backoff.Permanent(errors.Join(ErrParseResponse, err))
	}

	return true, nil
}

func (w *WocClient) httpRequest(ctx context.Context, method string, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s/%s/%s", w.apiURL, w.net, endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	if w.authorization != "" {
		req.Header.Set("Authorization", w.authorization)
	}

	return req, nil
}

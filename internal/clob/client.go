package clob

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	clierr "github.com/ggonzalez94/clob-bridge/internal/errors"
	"github.com/ggonzalez94/clob-bridge/internal/httpx"
	"github.com/ggonzalez94/clob-bridge/internal/signer"
)

const (
	PolygonChainID = 137

	ExchangeAddress        = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	NegRiskExchangeAddress = "0xC5d563A36AE78145C45a50134d48A1215220f80a"

	collateralDecimals = 6
)

// Client talks to the CLOB REST API. It holds no per-wallet state; wallet
// scoped calls go through a Session returned by Authenticate.
type Client struct {
	http    *httpx.Client
	baseURL string
	chainID int64
	now     func() time.Time
}

func New(httpClient *httpx.Client, baseURL string, chainID int64) *Client {
	if chainID == 0 {
		chainID = PolygonChainID
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		chainID: chainID,
		now:     time.Now,
	}
}

// Authenticate derives (or creates) API credentials for the signer and returns
// a session bound to sigType. When funder is nil the signer address funds orders.
func (c *Client) Authenticate(ctx context.Context, s signer.Signer, sigType SignatureType, funder *common.Address) (*Session, error) {
	creds, err := c.deriveAPIKey(ctx, s)
	if err != nil || creds.APIKey == "" {
		created, createErr := c.createAPIKey(ctx, s)
		if createErr != nil {
			if err != nil {
				return nil, err
			}
			return nil, createErr
		}
		creds = created
	}
	if creds.APIKey == "" || creds.Secret == "" || creds.Passphrase == "" {
		return nil, clierr.New(clierr.CodeAuth, "exchange returned incomplete API credentials")
	}
	maker := s.Address()
	if funder != nil {
		maker = *funder
	}
	return &Session{
		client:  c,
		signer:  s,
		sigType: sigType,
		maker:   maker,
		creds:   creds,
	}, nil
}

func (c *Client) deriveAPIKey(ctx context.Context, s signer.Signer) (APICredentials, error) {
	return c.apiKeyRequest(ctx, s, http.MethodGet, "/auth/derive-api-key")
}

func (c *Client) createAPIKey(ctx context.Context, s signer.Signer) (APICredentials, error) {
	return c.apiKeyRequest(ctx, s, http.MethodPost, "/auth/api-key")
}

func (c *Client) apiKeyRequest(ctx context.Context, s signer.Signer, method, path string) (APICredentials, error) {
	var creds APICredentials
	headers, err := l1Headers(s, c.chainID, c.now(), 0)
	if err != nil {
		return creds, clierr.Wrap(clierr.CodeAuth, "build auth headers", err)
	}
	if _, err := httpx.DoBodyJSON(ctx, c.http, method, c.baseURL+path, nil, headers, &creds); err != nil {
		return creds, err
	}
	return creds, nil
}

// Markets fetches one page of the public market listing. An empty cursor
// starts from the first page.
func (c *Client) Markets(ctx context.Context, cursor string) (*MarketsPage, error) {
	endpoint := c.baseURL + "/markets"
	if cursor != "" {
		params := url.Values{}
		params.Set("next_cursor", cursor)
		endpoint += "?" + params.Encode()
	}
	var page MarketsPage
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodGet, endpoint, nil, nil, &page); err != nil {
		return nil, err
	}
	if page.Count == 0 {
		page.Count = len(page.Data)
	}
	return &page, nil
}

func (c *Client) TickSize(ctx context.Context, tokenID *uint256.Int) (decimal.Decimal, error) {
	var resp struct {
		MinimumTickSize flexString `json:"minimum_tick_size"`
	}
	if err := c.getPublic(ctx, "/tick-size", tokenID, &resp); err != nil {
		return decimal.Zero, err
	}
	tick, err := decimal.NewFromString(string(resp.MinimumTickSize))
	if err != nil {
		return decimal.Zero, clierr.Wrap(clierr.CodeUnavailable, "parse tick size", err)
	}
	return tick, nil
}

func (c *Client) NegRisk(ctx context.Context, tokenID *uint256.Int) (bool, error) {
	var resp struct {
		NegRisk bool `json:"neg_risk"`
	}
	if err := c.getPublic(ctx, "/neg-risk", tokenID, &resp); err != nil {
		return false, err
	}
	return resp.NegRisk, nil
}

func (c *Client) FeeRateBps(ctx context.Context, tokenID *uint256.Int) (uint64, error) {
	var resp struct {
		BaseFee uint64 `json:"base_fee"`
	}
	if err := c.getPublic(ctx, "/fee-rate", tokenID, &resp); err != nil {
		return 0, err
	}
	return resp.BaseFee, nil
}

func (c *Client) Book(ctx context.Context, tokenID *uint256.Int) (*OrderBook, error) {
	var book OrderBook
	if err := c.getPublic(ctx, "/book", tokenID, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) getPublic(ctx context.Context, path string, tokenID *uint256.Int, out any) error {
	params := url.Values{}
	params.Set("token_id", tokenID.Dec())
	_, err := httpx.DoBodyJSON(ctx, c.http, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil, nil, out)
	return err
}

func encodeBody(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "encode request body", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

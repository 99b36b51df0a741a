package clob

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	clierr "github.com/ggonzalez94/clob-bridge/internal/errors"
	"github.com/ggonzalez94/clob-bridge/internal/httpx"
	"github.com/ggonzalez94/clob-bridge/internal/signer"
)

// Session is an authenticated, wallet-scoped handle. It is not safe to share
// between wallets or signature types.
type Session struct {
	client  *Client
	signer  signer.Signer
	sigType SignatureType
	maker   common.Address
	creds   APICredentials
}

func (s *Session) SignatureType() SignatureType { return s.sigType }

func (s *Session) Maker() common.Address { return s.maker }

func (s *Session) BalanceAllowance(ctx context.Context) (*BalanceAllowance, error) {
	const path = "/balance-allowance"
	params := url.Values{}
	params.Set("asset_type", "COLLATERAL")
	params.Set("signature_type", strconv.Itoa(int(s.sigType)))

	var wire balanceAllowanceWire
	if err := s.do(ctx, http.MethodGet, path, "?"+params.Encode(), nil, &wire); err != nil {
		return nil, err
	}
	out, err := wire.toUSDC()
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "decode balance", err)
	}
	return out, nil
}

func (s *Session) BuildLimitOrder(ctx context.Context, args LimitOrderArgs) (*OrderDescriptor, error) {
	if args.TokenID == nil {
		return nil, clierr.New(clierr.CodeUsage, "token id is required")
	}
	if args.Size.Sign() <= 0 {
		return nil, clierr.New(clierr.CodeUsage, "size must be positive")
	}
	tick, cfg, err := s.tick(ctx, args.TokenID)
	if err != nil {
		return nil, err
	}
	if err := validPrice(args.Price, tick); err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "invalid limit price", err)
	}
	makerAmt, takerAmt := limitAmounts(args.Side, args.Size, args.Price, cfg)
	return s.descriptor(ctx, args.TokenID, args.Side, makerAmt, takerAmt, OrderTypeGTC, args.Price.Round(cfg.price))
}

func (s *Session) BuildMarketOrder(ctx context.Context, args MarketOrderArgs) (*OrderDescriptor, error) {
	if args.TokenID == nil {
		return nil, clierr.New(clierr.CodeUsage, "token id is required")
	}
	if args.Amount.Sign() <= 0 {
		return nil, clierr.New(clierr.CodeUsage, "amount must be positive")
	}
	if !args.Amount.Equal(args.Amount.Truncate(collateralDecimals)) {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("USDC amount %s has more than %d decimal places", args.Amount, collateralDecimals))
	}
	orderType := args.OrderType
	if orderType == "" {
		orderType = OrderTypeFOK
	}
	tick, cfg, err := s.tick(ctx, args.TokenID)
	if err != nil {
		return nil, err
	}
	book, err := s.client.Book(ctx, args.TokenID)
	if err != nil {
		return nil, err
	}
	price, err := fillPrice(book, args.Side, args.Amount, orderType)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeRejected, "no fill price", err)
	}
	if err := validPrice(price, tick); err != nil {
		return nil, clierr.Wrap(clierr.CodeRejected, "invalid fill price", err)
	}
	makerAmt, takerAmt := marketAmounts(args.Side, args.Amount, price, cfg)
	return s.descriptor(ctx, args.TokenID, args.Side, makerAmt, takerAmt, orderType, price.Round(cfg.price))
}

func (s *Session) tick(ctx context.Context, tokenID *uint256.Int) (decimal.Decimal, roundConfig, error) {
	tick, err := s.client.TickSize(ctx, tokenID)
	if err != nil {
		return decimal.Zero, roundConfig{}, err
	}
	cfg, err := roundConfigFor(tick)
	if err != nil {
		return decimal.Zero, roundConfig{}, clierr.Wrap(clierr.CodeUnavailable, "tick size", err)
	}
	return tick, cfg, nil
}

func (s *Session) descriptor(ctx context.Context, tokenID *uint256.Int, side Side, makerAmt, takerAmt decimal.Decimal, orderType OrderType, price decimal.Decimal) (*OrderDescriptor, error) {
	makerUnits, err := toUnits(makerAmt)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "maker amount", err)
	}
	takerUnits, err := toUnits(takerAmt)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "taker amount", err)
	}
	negRisk, err := s.client.NegRisk(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	feeBps, err := s.client.FeeRateBps(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	exchange := ExchangeAddress
	if negRisk {
		exchange = NegRiskExchangeAddress
	}
	return &OrderDescriptor{
		Salt:          int64(float64(s.client.now().Unix()) * rand.Float64()),
		Maker:         s.maker.Hex(),
		Signer:        s.signer.Address().Hex(),
		Taker:         common.Address{}.Hex(),
		TokenID:       tokenID,
		MakerAmount:   makerUnits,
		TakerAmount:   takerUnits,
		FeeRateBps:    feeBps,
		Side:          side,
		SignatureType: s.sigType,
		OrderType:     orderType,
		Exchange:      exchange,
		Price:         price,
	}, nil
}

func (s *Session) Sign(d *OrderDescriptor) (*SignedOrder, error) {
	sig, err := s.signer.SignTypedData(orderTypedData(s.client.chainID, d))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeAuth, "sign order", err)
	}
	return &SignedOrder{
		Salt:          d.Salt,
		Maker:         d.Maker,
		Signer:        d.Signer,
		Taker:         d.Taker,
		TokenID:       d.TokenID.Dec(),
		MakerAmount:   d.MakerAmount.Dec(),
		TakerAmount:   d.TakerAmount.Dec(),
		Expiration:    strconv.FormatUint(d.Expiration, 10),
		Nonce:         strconv.FormatUint(d.Nonce, 10),
		FeeRateBps:    strconv.FormatUint(d.FeeRateBps, 10),
		Side:          d.Side,
		SignatureType: int(d.SignatureType),
		Signature:     hexutil.Encode(sig),
		orderType:     d.OrderType,
	}, nil
}

func (s *Session) PostOrder(ctx context.Context, order *SignedOrder) (*PostOrderResponse, error) {
	orderType := order.orderType
	if orderType == "" {
		orderType = OrderTypeGTC
	}
	body, err := encodeBody(postOrderRequest{Order: order, Owner: s.creds.APIKey, OrderType: orderType})
	if err != nil {
		return nil, err
	}
	var resp PostOrderResponse
	if err := s.do(ctx, http.MethodPost, "/order", "", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.ErrorMsg != "" {
		msg := resp.ErrorMsg
		if msg == "" {
			msg = "exchange did not accept the order"
		}
		return &resp, clierr.New(clierr.CodeRejected, msg)
	}
	return &resp, nil
}

func (s *Session) CancelOrder(ctx context.Context, orderID string) (*CancelResponse, error) {
	body, err := encodeBody(map[string]string{"orderID": orderID})
	if err != nil {
		return nil, err
	}
	var resp CancelResponse
	if err := s.do(ctx, http.MethodDelete, "/order", "", body, &resp); err != nil {
		return nil, err
	}
	if reason, ok := resp.NotCanceled[orderID]; ok {
		return &resp, clierr.New(clierr.CodeRejected, fmt.Sprintf("order %s not cancelled: %s", orderID, reason))
	}
	return &resp, nil
}

func (s *Session) do(ctx context.Context, method, path, query string, body []byte, out any) error {
	headers, err := l2Headers(s.signer.Address().Hex(), s.creds, s.client.now(), method, path, body)
	if err != nil {
		return clierr.Wrap(clierr.CodeAuth, "sign request", err)
	}
	_, err = httpx.DoBodyJSON(ctx, s.client.http, method, s.client.baseURL+path+query, body, headers, out)
	return err
}

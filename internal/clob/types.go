package clob

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SignatureType selects how order signatures are authorized on-chain.
type SignatureType int

const (
	SignatureEOA        SignatureType = 0
	SignatureProxy      SignatureType = 1
	SignatureGnosisSafe SignatureType = 2
)

func (s SignatureType) String() string {
	switch s {
	case SignatureEOA:
		return "EOA"
	case SignatureProxy:
		return "Proxy"
	case SignatureGnosisSafe:
		return "GnosisSafe"
	default:
		return fmt.Sprintf("SignatureType(%d)", int(s))
	}
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) wire() int {
	if s == SideSell {
		return 1
	}
	return 0
}

type OrderType string

const (
	OrderTypeGTC OrderType = "GTC"
	OrderTypeFOK OrderType = "FOK"
)

type APICredentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// BalanceAllowance is the collateral balance and per-spender allowances in USDC.
type BalanceAllowance struct {
	Balance    decimal.Decimal            `json:"balance"`
	Allowances map[string]decimal.Decimal `json:"allowances,omitempty"`
}

type balanceAllowanceWire struct {
	Balance    flexString            `json:"balance"`
	Allowance  flexString            `json:"allowance"`
	Allowances map[string]flexString `json:"allowances"`
}

func (w balanceAllowanceWire) toUSDC() (*BalanceAllowance, error) {
	balance, err := unitsToUSDC(string(w.Balance))
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	out := &BalanceAllowance{Balance: balance}
	if len(w.Allowances) > 0 {
		out.Allowances = make(map[string]decimal.Decimal, len(w.Allowances))
		for spender, raw := range w.Allowances {
			v, err := unitsToUSDC(string(raw))
			if err != nil {
				return nil, fmt.Errorf("parse allowance for %s: %w", spender, err)
			}
			out.Allowances[spender] = v
		}
	} else if w.Allowance != "" {
		v, err := unitsToUSDC(string(w.Allowance))
		if err != nil {
			return nil, fmt.Errorf("parse allowance: %w", err)
		}
		out.Allowances = map[string]decimal.Decimal{"exchange": v}
	}
	return out, nil
}

func unitsToUSDC(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	return v.Shift(-collateralDecimals), nil
}

// MarketsPage is one page of the public market listing. Entries are kept raw.
type MarketsPage struct {
	Data       []json.RawMessage `json:"data"`
	NextCursor string            `json:"next_cursor"`
	Limit      int               `json:"limit"`
	Count      int               `json:"count"`
}

type BookLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

type OrderBook struct {
	Market       string      `json:"market"`
	AssetID      string      `json:"asset_id"`
	Bids         []BookLevel `json:"bids"`
	Asks         []BookLevel `json:"asks"`
	MinOrderSize flexString  `json:"min_order_size"`
	TickSize     flexString  `json:"tick_size"`
	NegRisk      bool        `json:"neg_risk"`
}

// SignedOrder is the exchange wire form of a signed order.
type SignedOrder struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          Side   `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`

	orderType OrderType
}

type postOrderRequest struct {
	Order     *SignedOrder `json:"order"`
	Owner     string       `json:"owner"`
	OrderType OrderType    `json:"orderType"`
}

type PostOrderResponse struct {
	Success           bool     `json:"success"`
	ErrorMsg          string   `json:"errorMsg,omitempty"`
	OrderID           string   `json:"orderID"`
	Status            string   `json:"status,omitempty"`
	MakingAmount      string   `json:"makingAmount,omitempty"`
	TakingAmount      string   `json:"takingAmount,omitempty"`
	TransactionHashes []string `json:"transactionsHashes,omitempty"`
}

type CancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// flexString decodes a JSON string or number into its textual form.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = flexString(n.String())
	return nil
}

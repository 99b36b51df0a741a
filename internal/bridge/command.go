package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/ggonzalez94/clob-bridge/internal/clob"
	clierr "github.com/ggonzalez94/clob-bridge/internal/errors"
)

const (
	CmdAuth    = "auth"
	CmdProbe   = "probe"
	CmdBalance = "balance"
	CmdOrder   = "order"
	CmdCancel  = "cancel"
	CmdMarkets = "markets"
	CmdHistory = "history"
	CmdExit    = "exit"
	CmdQuit    = "quit"
)

var defaultOrderAmount = decimal.NewFromInt(10)

// Command is one validated input line. The concrete types below are the only
// implementations.
type Command interface {
	Name() string
}

// WalletOverrides are the per-command replacements for the startup defaults.
type WalletOverrides struct {
	SignatureType *int
	FunderAddress *string
}

type AuthCommand struct{ WalletOverrides }

type ProbeCommand struct {
	FunderAddress *string
}

type BalanceCommand struct{ WalletOverrides }

type OrderCommand struct {
	WalletOverrides
	TokenID *uint256.Int
	Side    clob.Side
	Amount  decimal.Decimal
	// Price is nil for market orders.
	Price *decimal.Decimal
}

type CancelCommand struct {
	WalletOverrides
	OrderID string
}

type MarketsCommand struct{}

type HistoryCommand struct {
	Limit int
}

type ExitCommand struct {
	Alias string
}

func (AuthCommand) Name() string    { return CmdAuth }
func (ProbeCommand) Name() string   { return CmdProbe }
func (BalanceCommand) Name() string { return CmdBalance }
func (OrderCommand) Name() string   { return CmdOrder }
func (CancelCommand) Name() string  { return CmdCancel }
func (MarketsCommand) Name() string { return CmdMarkets }
func (HistoryCommand) Name() string { return CmdHistory }
func (c ExitCommand) Name() string  { return c.Alias }

func knownCommand(name string) bool {
	switch name {
	case CmdAuth, CmdProbe, CmdBalance, CmdOrder, CmdCancel, CmdMarkets, CmdHistory, CmdExit, CmdQuit:
		return true
	}
	return false
}

type wireCommand struct {
	Cmd           *string         `json:"cmd"`
	TokenID       *string         `json:"token_id"`
	Side          *string         `json:"side"`
	Amount        json.RawMessage `json:"amount"`
	Price         json.RawMessage `json:"price"`
	OrderID       *string         `json:"order_id"`
	SignatureType *int            `json:"signature_type"`
	FunderAddress *string         `json:"funder_address"`
	Limit         *int            `json:"limit"`
}

func decodeLine(line []byte) (wireCommand, error) {
	var w wireCommand
	if err := json.Unmarshal(line, &w); err != nil {
		return w, clierr.New(clierr.CodeParse, "Invalid JSON: "+err.Error())
	}
	if w.Cmd == nil {
		return w, clierr.New(clierr.CodeParse, "Invalid JSON: missing field `cmd`")
	}
	return w, nil
}

func (w wireCommand) name() string {
	if w.Cmd == nil {
		return ""
	}
	return *w.Cmd
}

func (w wireCommand) overrides() WalletOverrides {
	return WalletOverrides{SignatureType: w.SignatureType, FunderAddress: nonEmpty(w.FunderAddress)}
}

// command validates the fields the named command needs. Failures are
// user-facing messages and never involve the network.
func (w wireCommand) command() (Command, error) {
	switch name := w.name(); name {
	case CmdAuth:
		return AuthCommand{w.overrides()}, nil
	case CmdProbe:
		return ProbeCommand{FunderAddress: nonEmpty(w.FunderAddress)}, nil
	case CmdBalance:
		return BalanceCommand{w.overrides()}, nil
	case CmdOrder:
		return w.orderCommand()
	case CmdCancel:
		if w.OrderID == nil {
			return nil, clierr.New(clierr.CodeUsage, "Missing order_id")
		}
		return CancelCommand{WalletOverrides: w.overrides(), OrderID: *w.OrderID}, nil
	case CmdMarkets:
		return MarketsCommand{}, nil
	case CmdHistory:
		limit := 0
		if w.Limit != nil {
			limit = *w.Limit
		}
		return HistoryCommand{Limit: limit}, nil
	case CmdExit, CmdQuit:
		return ExitCommand{Alias: name}, nil
	default:
		return nil, clierr.New(clierr.CodeUnsupported, "Unknown command: "+name)
	}
}

func (w wireCommand) orderCommand() (Command, error) {
	if w.TokenID == nil {
		return nil, clierr.New(clierr.CodeUsage, "Missing token_id")
	}
	cmd := OrderCommand{WalletOverrides: w.overrides(), Side: clob.SideBuy, Amount: defaultOrderAmount}
	if w.Side != nil && !strings.EqualFold(strings.TrimSpace(*w.Side), "buy") {
		cmd.Side = clob.SideSell
	}

	amount, ok, err := decimalField(w.Amount)
	if err != nil {
		return nil, clierr.New(clierr.CodeUsage, "Order failed: Invalid amount")
	}
	if ok {
		cmd.Amount = amount
	}
	price, ok, err := decimalField(w.Price)
	if err != nil {
		return nil, clierr.New(clierr.CodeUsage, "Order failed: Invalid price")
	}
	if ok {
		cmd.Price = &price
	}
	tokenID, err := uint256.FromDecimal(strings.TrimSpace(*w.TokenID))
	if err != nil {
		return nil, clierr.New(clierr.CodeUsage, "Order failed: Invalid token_id - must be a valid U256")
	}
	cmd.TokenID = tokenID
	return cmd, nil
}

// decimalField accepts a JSON number or a numeric string. ok is false when the
// field is absent or null.
func decimalField(raw json.RawMessage) (decimal.Decimal, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return decimal.Zero, false, nil
	}
	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return decimal.Zero, false, err
		}
	}
	v, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("not a decimal: %q", text)
	}
	return v, true, nil
}

func nonEmpty(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

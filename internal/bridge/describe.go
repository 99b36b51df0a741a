package bridge

import (
	"strconv"

	"github.com/ggonzalez94/clob-bridge/internal/journal"
	"github.com/ggonzalez94/clob-bridge/internal/schema"
)

var walletFields = []schema.Field{
	{Name: "signature_type", Type: "integer", Usage: "0 EOA, 1 Proxy, 2 GnosisSafe; overrides the startup default"},
	{Name: "funder_address", Type: "string", Usage: "address holding the funds; overrides the startup default"},
}

// Describe lists the line commands the dispatcher accepts.
func Describe() []schema.LineCommand {
	return []schema.LineCommand{
		{Name: CmdAuth, Short: "Authenticate and report balance with an auth story", Authenticated: true, Fields: walletFields},
		{
			Name:          CmdProbe,
			Short:         "Try EOA, GnosisSafe then Proxy and report the first mode that works",
			Authenticated: true,
			Fields:        []schema.Field{walletFields[1]},
		},
		{Name: CmdBalance, Short: "Collateral balance and allowances in USDC", Authenticated: true, Fields: walletFields},
		{
			Name:          CmdOrder,
			Short:         "Sign and submit a limit order, or a fill-or-kill market order when price is absent",
			Authenticated: true,
			Fields: append([]schema.Field{
				{Name: "token_id", Type: "string", Required: true, Usage: "outcome token id (decimal uint256)"},
				{Name: "side", Type: "string", Default: "buy", Usage: "buy, anything else sells"},
				{Name: "amount", Type: "number", Default: defaultOrderAmount.String(), Usage: "shares for limit orders, USDC for market buys"},
				{Name: "price", Type: "number", Usage: "limit price in (0,1); omit for a market order"},
			}, walletFields...),
		},
		{
			Name:          CmdCancel,
			Short:         "Cancel a resting order",
			Authenticated: true,
			Fields: append([]schema.Field{
				{Name: "order_id", Type: "string", Required: true, Usage: "exchange order id"},
			}, walletFields...),
		},
		{Name: CmdMarkets, Short: "Count one page of markets"},
		{
			Name:  CmdHistory,
			Short: "Recent order and cancel requests from the local journal",
			Fields: []schema.Field{
				{Name: "limit", Type: "integer", Default: strconv.Itoa(journal.DefaultListLimit), Usage: "entries to return, newest first"},
			},
		},
		{Name: CmdExit, Aliases: []string{CmdQuit}, Short: "Stop reading input and exit cleanly"},
	}
}

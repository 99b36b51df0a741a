package bridge

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ggonzalez94/clob-bridge/internal/clob"
	"github.com/ggonzalez94/clob-bridge/internal/signer"
)

// Exchange is the remote order book as seen by the dispatcher.
type Exchange interface {
	Authenticate(ctx context.Context, mode clob.SignatureType, funder *common.Address) (Session, error)
	Markets(ctx context.Context, cursor string) (*clob.MarketsPage, error)
}

// Session is one authenticated, wallet-scoped handle. Sessions are never
// reused across commands.
type Session interface {
	BalanceAllowance(ctx context.Context) (*clob.BalanceAllowance, error)
	BuildLimitOrder(ctx context.Context, args clob.LimitOrderArgs) (*clob.OrderDescriptor, error)
	BuildMarketOrder(ctx context.Context, args clob.MarketOrderArgs) (*clob.OrderDescriptor, error)
	Sign(desc *clob.OrderDescriptor) (*clob.SignedOrder, error)
	PostOrder(ctx context.Context, order *clob.SignedOrder) (*clob.PostOrderResponse, error)
	CancelOrder(ctx context.Context, orderID string) (*clob.CancelResponse, error)
}

type clobExchange struct {
	client *clob.Client
	signer signer.Signer
}

// NewExchange binds the CLOB client to the process wallet.
func NewExchange(client *clob.Client, s signer.Signer) Exchange {
	return &clobExchange{client: client, signer: s}
}

func (e *clobExchange) Authenticate(ctx context.Context, mode clob.SignatureType, funder *common.Address) (Session, error) {
	sess, err := e.client.Authenticate(ctx, e.signer, mode, funder)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (e *clobExchange) Markets(ctx context.Context, cursor string) (*clob.MarketsPage, error) {
	return e.client.Markets(ctx, cursor)
}

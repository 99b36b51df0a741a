package bridge

import (
	"context"

	"github.com/ggonzalez94/clob-bridge/internal/clob"
	"github.com/ggonzalez94/clob-bridge/internal/model"
)

const (
	orderKindLimit  = "limit"
	orderKindMarket = "market"
)

type orderData struct {
	OrderType string                  `json:"order_type"`
	Response  *clob.PostOrderResponse `json:"response"`
}

type cancelData struct {
	Cancelled bool   `json:"cancelled"`
	OrderID   string `json:"order_id"`
}

func (c OrderCommand) kind() string {
	if c.Price != nil {
		return orderKindLimit
	}
	return orderKindMarket
}

func (d *Dispatcher) handleOrder(ctx context.Context, c OrderCommand) model.Response {
	mode, funder := d.wallet(c.WalletOverrides)
	ev := d.log.Info().
		Str("token_id", c.TokenID.Dec()).
		Str("side", string(c.Side)).
		Str("amount", c.Amount.String()).
		Str("order_type", c.kind())
	if c.Price != nil {
		ev = ev.Str("price", c.Price.String())
	}
	ev.Msg("placing order")

	resp, err := d.submitOrder(ctx, c, mode, funder)
	d.journalOrder(c, mode, resp, err)
	if err != nil {
		d.log.Error().Err(err).Msg("order failed")
		return model.Failure("Order failed: " + err.Error())
	}
	d.log.Info().Str("order_id", resp.OrderID).Msg("order placed")
	return model.Success(orderData{OrderType: c.kind(), Response: resp})
}

// submitOrder runs build session, construct, sign and submit. Nothing reaches
// the exchange's order endpoint unless every earlier step succeeded.
func (d *Dispatcher) submitOrder(ctx context.Context, c OrderCommand, mode clob.SignatureType, funder *string) (*clob.PostOrderResponse, error) {
	sess, err := buildSession(ctx, d.exchange, mode, funder)
	if err != nil {
		return nil, err
	}
	var desc *clob.OrderDescriptor
	if c.Price != nil {
		desc, err = sess.BuildLimitOrder(ctx, clob.LimitOrderArgs{
			TokenID: c.TokenID,
			Size:    c.Amount,
			Price:   *c.Price,
			Side:    c.Side,
		})
	} else {
		desc, err = sess.BuildMarketOrder(ctx, clob.MarketOrderArgs{
			TokenID:   c.TokenID,
			Amount:    c.Amount,
			Side:      c.Side,
			OrderType: clob.OrderTypeFOK,
		})
	}
	if err != nil {
		return nil, err
	}
	signed, err := sess.Sign(desc)
	if err != nil {
		return nil, err
	}
	return sess.PostOrder(ctx, signed)
}

func (d *Dispatcher) handleCancel(ctx context.Context, c CancelCommand) model.Response {
	mode, funder := d.wallet(c.WalletOverrides)
	d.log.Info().Str("order_id", c.OrderID).Msg("cancelling order")

	err := d.cancelOrder(ctx, c.OrderID, mode, funder)
	entry := model.JournalEntry{
		Command:         CmdCancel,
		Status:          model.JournalStatusCancelled,
		SignatureType:   mode.String(),
		ExchangeOrderID: c.OrderID,
	}
	if err != nil {
		entry.Status = model.JournalStatusFailed
		entry.Error = err.Error()
	}
	d.record(entry)
	if err != nil {
		d.log.Error().Err(err).Msg("cancel failed")
		return model.Failure("Cancel failed: " + err.Error())
	}
	return model.Success(cancelData{Cancelled: true, OrderID: c.OrderID})
}

func (d *Dispatcher) cancelOrder(ctx context.Context, orderID string, mode clob.SignatureType, funder *string) error {
	sess, err := buildSession(ctx, d.exchange, mode, funder)
	if err != nil {
		return err
	}
	_, err = sess.CancelOrder(ctx, orderID)
	return err
}

func (d *Dispatcher) journalOrder(c OrderCommand, mode clob.SignatureType, resp *clob.PostOrderResponse, err error) {
	entry := model.JournalEntry{
		Command:       CmdOrder,
		Status:        model.JournalStatusSubmitted,
		TokenID:       c.TokenID.Dec(),
		Side:          string(c.Side),
		OrderType:     c.kind(),
		Amount:        c.Amount.String(),
		SignatureType: mode.String(),
	}
	if c.Price != nil {
		entry.Price = c.Price.String()
	}
	if resp != nil {
		entry.ExchangeOrderID = resp.OrderID
	}
	if err != nil {
		entry.Status = model.JournalStatusFailed
		entry.Error = err.Error()
	}
	d.record(entry)
}

// record is best effort: a journal failure is logged and never changes the
// response.
func (d *Dispatcher) record(entry model.JournalEntry) {
	if d.opts.Journal == nil {
		return
	}
	entry.RunID = d.opts.RunID
	if _, err := d.opts.Journal.Record(entry); err != nil {
		d.log.Warn().Err(err).Str("command", entry.Command).Msg("journal write failed")
	}
}

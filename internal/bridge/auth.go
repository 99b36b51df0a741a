package bridge

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ggonzalez94/clob-bridge/internal/model"
)

type authData struct {
	Authenticated bool                       `json:"authenticated"`
	Balance       string                     `json:"balance,omitempty"`
	Allowances    map[string]decimal.Decimal `json:"allowances,omitempty"`
	BalanceError  string                     `json:"balance_error,omitempty"`
}

type balanceData struct {
	Balance    string                     `json:"balance"`
	Allowances map[string]decimal.Decimal `json:"allowances"`
}

func (d *Dispatcher) handleAuth(ctx context.Context, c AuthCommand) model.Response {
	mode, funder := d.wallet(c.WalletOverrides)
	story := d.newStory(mode, funder)
	d.log.Info().Str("signature_type", mode.String()).Interface("funder", funder).Msg("attempting authentication")

	sess, err := buildSession(ctx, d.exchange, mode, funder)
	if err != nil {
		d.log.Error().Err(err).Msg("authentication failed")
		detail := err.Error()
		story.AuthStatus = model.AuthStatusFailed
		story.ErrorDetails = &detail
		return model.FromAuthStory(story, nil)
	}
	d.log.Info().Msg("authentication successful")
	story.AuthStatus = model.AuthStatusSuccess

	bal, err := sess.BalanceAllowance(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to get balance after auth")
		return model.FromAuthStory(story, authData{Authenticated: true, BalanceError: err.Error()})
	}
	balance := bal.Balance.String()
	story.BalanceUSDC = &balance
	return model.FromAuthStory(story, authData{Authenticated: true, Balance: balance, Allowances: bal.Allowances})
}

func (d *Dispatcher) handleBalance(ctx context.Context, c BalanceCommand) model.Response {
	mode, funder := d.wallet(c.WalletOverrides)
	sess, err := buildSession(ctx, d.exchange, mode, funder)
	if err == nil {
		var bal *balanceResult
		bal, err = queryBalance(ctx, sess)
		if err == nil {
			return model.Success(balanceData{Balance: bal.balance, Allowances: bal.allowances})
		}
	}
	d.log.Error().Err(err).Str("signature_type", mode.String()).Msg("balance query failed")
	return model.Failure("Failed to get balance: " + err.Error())
}

type balanceResult struct {
	balance    string
	allowances map[string]decimal.Decimal
}

func queryBalance(ctx context.Context, sess Session) (*balanceResult, error) {
	bal, err := sess.BalanceAllowance(ctx)
	if err != nil {
		return nil, err
	}
	allowances := bal.Allowances
	if allowances == nil {
		allowances = map[string]decimal.Decimal{}
	}
	return &balanceResult{balance: bal.Balance.String(), allowances: allowances}, nil
}

package bridge

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ggonzalez94/clob-bridge/internal/clob"
	"github.com/ggonzalez94/clob-bridge/internal/model"
)

const (
	probeFailedMessage  = "All authentication methods failed"
	probeRecommendation = "Visit polymarket.com, connect your wallet, and make at least one trade. Then retry."
)

// probeOrder is fixed so that the first working mode is deterministic.
var probeOrder = []clob.SignatureType{clob.SignatureEOA, clob.SignatureGnosisSafe, clob.SignatureProxy}

type probeAttempt struct {
	mode    clob.SignatureType
	story   model.AuthStory
	balance *balanceResult
	err     error
}

func (a probeAttempt) result() model.ProbeResult {
	r := model.ProbeResult{SignatureType: a.mode.String(), Success: a.err == nil}
	if a.err != nil {
		r.Error = a.err.Error()
	} else {
		r.Balance = a.balance.balance
	}
	return r
}

type probeSuccess struct {
	WorkingConfig model.WorkingConfig        `json:"working_config"`
	Balance       string                     `json:"balance"`
	Allowances    map[string]decimal.Decimal `json:"allowances"`
	ProbeResults  []model.ProbeResult        `json:"probe_results"`
}

type probeFailure struct {
	ProbeResults   []model.ProbeResult `json:"probe_results"`
	Recommendation string              `json:"recommendation"`
}

// probe tries each mode in order and stops at the first one whose session
// builds and answers a balance query. The trail holds every attempt made,
// including the winner as its last element.
func (d *Dispatcher) probe(ctx context.Context, funder *string) (winner *probeAttempt, trail []probeAttempt) {
	for _, mode := range probeOrder {
		attempt := d.probeMode(ctx, mode, funder)
		trail = append(trail, attempt)
		if attempt.err == nil {
			return &trail[len(trail)-1], trail
		}
	}
	return nil, trail
}

func (d *Dispatcher) probeMode(ctx context.Context, mode clob.SignatureType, funder *string) probeAttempt {
	attempt := probeAttempt{mode: mode, story: d.newStory(mode, funder)}
	sess, err := buildSession(ctx, d.exchange, mode, funder)
	if err == nil {
		attempt.balance, err = queryBalance(ctx, sess)
	}
	if err != nil {
		detail := err.Error()
		attempt.err = err
		attempt.story.AuthStatus = model.AuthStatusFailed
		attempt.story.ErrorDetails = &detail
		d.log.Debug().Str("signature_type", mode.String()).Err(err).Msg("auth probe failed")
		return attempt
	}
	balance := attempt.balance.balance
	attempt.story.AuthStatus = model.AuthStatusSuccess
	attempt.story.BalanceUSDC = &balance
	d.log.Info().Str("signature_type", mode.String()).Str("balance", balance).Msg("auth probe succeeded")
	return attempt
}

func (d *Dispatcher) handleProbe(ctx context.Context, c ProbeCommand) model.Response {
	funder := d.funder(c.FunderAddress)
	d.log.Info().Msg("running authentication probe")

	winner, trail := d.probe(ctx, funder)
	results := make([]model.ProbeResult, 0, len(trail))
	for _, attempt := range trail {
		results = append(results, attempt.result())
	}
	if winner == nil {
		msg := probeFailedMessage
		return model.Response{
			Success: false,
			Data:    probeFailure{ProbeResults: results, Recommendation: probeRecommendation},
			Error:   &msg,
		}
	}
	return model.FromAuthStory(winner.story, probeSuccess{
		WorkingConfig: model.WorkingConfig{SignatureType: winner.mode.String(), FunderAddress: funder},
		Balance:       winner.balance.balance,
		Allowances:    winner.balance.allowances,
		ProbeResults:  results,
	})
}

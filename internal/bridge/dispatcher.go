package bridge

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ggonzalez94/clob-bridge/internal/cache"
	"github.com/ggonzalez94/clob-bridge/internal/clob"
	clierr "github.com/ggonzalez94/clob-bridge/internal/errors"
	"github.com/ggonzalez94/clob-bridge/internal/model"
	"github.com/ggonzalez94/clob-bridge/internal/out"
	"github.com/ggonzalez94/clob-bridge/internal/policy"
)

// Journal records order and cancel requests. A nil Journal disables history.
type Journal interface {
	Record(entry model.JournalEntry) (model.JournalEntry, error)
	List(limit int) ([]model.JournalEntry, error)
}

// ListingCache holds public listings between commands. A nil cache disables it.
type ListingCache interface {
	Get(key string) (cache.Entry, bool, error)
	Set(key string, value []byte, ttl time.Duration) error
}

// Options is the immutable process-wide configuration handed to the dispatcher.
type Options struct {
	RunID                string
	SignerAddress        string
	DefaultSignatureType *int
	DefaultFunder        *string
	Policy               policy.Allowlist
	Journal              Journal
	Cache                ListingCache
	CacheScope           string
	MarketsTTL           time.Duration
}

type Dispatcher struct {
	exchange Exchange
	emitter  *out.Emitter
	opts     Options
	log      zerolog.Logger
}

func NewDispatcher(exchange Exchange, emitter *out.Emitter, opts Options, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		exchange: exchange,
		emitter:  emitter,
		opts:     opts,
		log:      log.With().Str("run_id", opts.RunID).Logger(),
	}
}

// Dispatch handles one raw input line and writes at most one response. stop is
// true after exit/quit. err is only set when the response could not be written.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) (stop bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false, nil
	}
	resp, stop := d.handle(ctx, []byte(trimmed))
	return stop, d.emitter.Emit(resp)
}

func (d *Dispatcher) handle(ctx context.Context, line []byte) (model.Response, bool) {
	wire, err := decodeLine(line)
	if err != nil {
		return d.fail(err), false
	}
	if knownCommand(wire.name()) {
		if err := d.opts.Policy.Check(wire.name()); err != nil {
			return d.fail(err), false
		}
	}
	cmd, err := wire.command()
	if err != nil {
		return d.fail(err), false
	}

	switch c := cmd.(type) {
	case AuthCommand:
		return d.handleAuth(ctx, c), false
	case ProbeCommand:
		return d.handleProbe(ctx, c), false
	case BalanceCommand:
		return d.handleBalance(ctx, c), false
	case OrderCommand:
		return d.handleOrder(ctx, c), false
	case CancelCommand:
		return d.handleCancel(ctx, c), false
	case MarketsCommand:
		return d.handleMarkets(ctx), false
	case HistoryCommand:
		return d.handleHistory(c), false
	case ExitCommand:
		d.log.Info().Str("cmd", c.Name()).Msg("exit command received, shutting down")
		return model.Success(map[string]string{"status": "exiting"}), true
	default:
		return d.fail(clierr.New(clierr.CodeInternal, "unhandled command "+cmd.Name())), false
	}
}

func (d *Dispatcher) fail(err error) model.Response {
	d.log.Warn().Str("error_type", clierr.TypeName(err)).Err(err).Msg("command rejected")
	return model.Failure(err.Error())
}

func (d *Dispatcher) wallet(o WalletOverrides) (clob.SignatureType, *string) {
	return ResolveSignatureType(o.SignatureType, d.opts.DefaultSignatureType), d.funder(o.FunderAddress)
}

func (d *Dispatcher) funder(override *string) *string {
	if override != nil {
		return override
	}
	return d.opts.DefaultFunder
}

func (d *Dispatcher) newStory(mode clob.SignatureType, funder *string) model.AuthStory {
	return model.AuthStory{
		RunID:         d.opts.RunID,
		SignerAddress: d.opts.SignerAddress,
		FunderAddress: funder,
		SignatureType: mode.String(),
		AuthStatus:    model.AuthStatusPending,
	}
}

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/ggonzalez94/clob-bridge/internal/clob"
	"github.com/ggonzalez94/clob-bridge/internal/logx"
	"github.com/ggonzalez94/clob-bridge/internal/model"
	"github.com/ggonzalez94/clob-bridge/internal/out"
)

const testSignerAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

type fakeExchange struct {
	authErr     map[clob.SignatureType]error
	balanceErr  map[clob.SignatureType]error
	postErr     error
	cancelErr   error
	marketsErr  error
	marketsData int

	authCalls    []clob.SignatureType
	funders      []*common.Address
	marketsCalls int
	limitArgs    []clob.LimitOrderArgs
	marketArgs   []clob.MarketOrderArgs
	posted       int
	cancelled    []string
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		authErr:     map[clob.SignatureType]error{},
		balanceErr:  map[clob.SignatureType]error{},
		marketsData: 3,
	}
}

func (f *fakeExchange) Authenticate(_ context.Context, mode clob.SignatureType, funder *common.Address) (Session, error) {
	f.authCalls = append(f.authCalls, mode)
	f.funders = append(f.funders, funder)
	if err := f.authErr[mode]; err != nil {
		return nil, err
	}
	return &fakeSession{ex: f, mode: mode}, nil
}

func (f *fakeExchange) Markets(context.Context, string) (*clob.MarketsPage, error) {
	f.marketsCalls++
	if f.marketsErr != nil {
		return nil, f.marketsErr
	}
	page := &clob.MarketsPage{NextCursor: "LTE="}
	for i := 0; i < f.marketsData; i++ {
		page.Data = append(page.Data, json.RawMessage(`{}`))
	}
	return page, nil
}

type fakeSession struct {
	ex   *fakeExchange
	mode clob.SignatureType
}

func (s *fakeSession) BalanceAllowance(context.Context) (*clob.BalanceAllowance, error) {
	if err := s.ex.balanceErr[s.mode]; err != nil {
		return nil, err
	}
	return &clob.BalanceAllowance{
		Balance:    decimal.RequireFromString("42.5"),
		Allowances: map[string]decimal.Decimal{clob.ExchangeAddress: decimal.NewFromInt(1000)},
	}, nil
}

func (s *fakeSession) BuildLimitOrder(_ context.Context, args clob.LimitOrderArgs) (*clob.OrderDescriptor, error) {
	s.ex.limitArgs = append(s.ex.limitArgs, args)
	return &clob.OrderDescriptor{TokenID: args.TokenID, Side: args.Side, OrderType: clob.OrderTypeGTC}, nil
}

func (s *fakeSession) BuildMarketOrder(_ context.Context, args clob.MarketOrderArgs) (*clob.OrderDescriptor, error) {
	s.ex.marketArgs = append(s.ex.marketArgs, args)
	return &clob.OrderDescriptor{TokenID: args.TokenID, Side: args.Side, OrderType: args.OrderType}, nil
}

func (s *fakeSession) Sign(desc *clob.OrderDescriptor) (*clob.SignedOrder, error) {
	return &clob.SignedOrder{TokenID: desc.TokenID.Dec(), Side: desc.Side, Signature: "0xsig"}, nil
}

func (s *fakeSession) PostOrder(context.Context, *clob.SignedOrder) (*clob.PostOrderResponse, error) {
	if s.ex.postErr != nil {
		return nil, s.ex.postErr
	}
	s.ex.posted++
	return &clob.PostOrderResponse{Success: true, OrderID: "0xorder", Status: "matched"}, nil
}

func (s *fakeSession) CancelOrder(_ context.Context, orderID string) (*clob.CancelResponse, error) {
	if s.ex.cancelErr != nil {
		return nil, s.ex.cancelErr
	}
	s.ex.cancelled = append(s.ex.cancelled, orderID)
	return &clob.CancelResponse{Canceled: []string{orderID}}, nil
}

type fakeJournal struct {
	entries []model.JournalEntry
	failing bool
}

func (j *fakeJournal) Record(entry model.JournalEntry) (model.JournalEntry, error) {
	if j.failing {
		return entry, errors.New("disk full")
	}
	j.entries = append(j.entries, entry)
	return entry, nil
}

func (j *fakeJournal) List(limit int) ([]model.JournalEntry, error) {
	if limit <= 0 || limit > len(j.entries) {
		limit = len(j.entries)
	}
	out := make([]model.JournalEntry, 0, limit)
	for i := len(j.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.entries[i])
	}
	return out, nil
}

type harness struct {
	ex  *fakeExchange
	buf *bytes.Buffer
	d   *Dispatcher
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	if opts.RunID == "" {
		opts.RunID = "run_1700000000000_deadbeef"
	}
	if opts.SignerAddress == "" {
		opts.SignerAddress = testSignerAddress
	}
	ex := newFakeExchange()
	buf := &bytes.Buffer{}
	return &harness{ex: ex, buf: buf, d: NewDispatcher(ex, out.NewEmitter(buf), opts, logx.Nop())}
}

// run feeds input through Serve and returns the decoded response lines.
func (h *harness) run(t *testing.T, input string) []map[string]any {
	t.Helper()
	h.buf.Reset()
	if err := h.d.Serve(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	return decodeLines(t, h.buf.String())
}

func decodeLines(t *testing.T, raw string) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimRight(raw, "\n"), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("output line is not JSON: %q: %v", line, err)
		}
		success, _ := m["success"].(bool)
		_, hasErr := m["error"]
		if success == hasErr {
			t.Fatalf("success and error must be mutually exclusive: %q", line)
		}
		lines = append(lines, m)
	}
	return lines
}

func mustUint(t *testing.T, v string) *uint256.Int {
	t.Helper()
	n, err := uint256.FromDecimal(v)
	if err != nil {
		t.Fatalf("parse uint256: %v", err)
	}
	return n
}

func dataOf(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", resp)
	}
	return data
}

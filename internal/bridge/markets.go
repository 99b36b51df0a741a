package bridge

import (
	"context"
	"encoding/json"

	"github.com/ggonzalez94/clob-bridge/internal/model"
)

const marketsMessage = "Markets retrieved successfully. Use Polymarket API directly for full market data."

type marketsData struct {
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor,omitempty"`
	Message    string `json:"message"`
}

type historyData struct {
	Entries []model.JournalEntry `json:"entries"`
	Count   int                  `json:"count"`
}

func (d *Dispatcher) handleMarkets(ctx context.Context) model.Response {
	key := "markets:" + d.opts.CacheScope
	if data, ok := d.cachedMarkets(key); ok {
		return model.Success(data)
	}

	page, err := d.exchange.Markets(ctx, "")
	if err != nil {
		d.log.Error().Err(err).Msg("market listing failed")
		return model.Failure("Failed to get markets: " + err.Error())
	}
	data := marketsData{Count: len(page.Data), NextCursor: page.NextCursor, Message: marketsMessage}
	if d.opts.Cache != nil {
		if buf, err := json.Marshal(data); err == nil {
			if err := d.opts.Cache.Set(key, buf, d.opts.MarketsTTL); err != nil {
				d.log.Warn().Err(err).Msg("markets cache write failed")
			}
		}
	}
	return model.Success(data)
}

func (d *Dispatcher) cachedMarkets(key string) (marketsData, bool) {
	var data marketsData
	if d.opts.Cache == nil {
		return data, false
	}
	entry, ok, err := d.opts.Cache.Get(key)
	if err != nil {
		d.log.Warn().Err(err).Msg("markets cache read failed")
		return data, false
	}
	if !ok || !entry.Fresh {
		return data, false
	}
	if err := json.Unmarshal(entry.Value, &data); err != nil {
		return data, false
	}
	d.log.Debug().Dur("age", entry.Age).Msg("markets served from cache")
	return data, true
}

func (d *Dispatcher) handleHistory(c HistoryCommand) model.Response {
	if d.opts.Journal == nil {
		return model.Failure("Journal disabled")
	}
	entries, err := d.opts.Journal.List(c.Limit)
	if err != nil {
		d.log.Error().Err(err).Msg("journal read failed")
		return model.Failure("Failed to read journal: " + err.Error())
	}
	return model.Success(historyData{Entries: entries, Count: len(entries)})
}

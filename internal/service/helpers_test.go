package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"calltracker/config"
	"calltracker/internal/dto"
	"calltracker/internal/model"
	"calltracker/pkg/cache"
	"calltracker/pkg/kv"
	"calltracker/pkg/logger"
	"calltracker/pkg/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.Analysis{
			NeutralThreshold: 0.05,
			ConfidenceFloor:  0.35,
			FeedSize:         100,
			HistorySize:      100,
			MarketContextTTL: time.Minute,
		},
		Scheduler: config.Scheduler{
			RefreshInterval: time.Minute,
			MaxConcurrency:  4,
			TimeoutDuration: time.Minute,
		},
		Equities: config.EquitiesConfig{
			BarWindow: 24 * time.Hour,
		},
	}
}

func newTestStore(cfg *config.Config) (AnalysisStore, kv.Store) {
	kvStore := kv.NewMemory()
	return NewAnalysisStore(cfg, logger.NewNop(), kvStore), kvStore
}

func testAnalysis(tweetID, username, symbol string, assetType model.AssetType, entry, current float64) *model.StoredAnalysis {
	performance := Performance(entry, current, model.ActionBuy)
	return &model.StoredAnalysis{
		TweetID:      tweetID,
		Username:     username,
		Author:       username,
		Avatar:       "https://pbs.twimg.com/" + username + ".jpg",
		Symbol:       symbol,
		AssetType:    assetType,
		Sentiment:    model.SentimentBullish,
		Action:       model.ActionBuy,
		EntryPrice:   entry,
		CurrentPrice: current,
		Performance:  *performance,
		IsWin:        *performance > 0.05,
		Timestamp:    utils.EpochMs(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Confidence:   0.9,
		Text:         fmt.Sprintf("$%s to the moon", symbol),
		URL:          "https://x.com/" + username + "/status/" + tweetID,
	}
}

type fakeEquitiesRepo struct {
	quote    *dto.FinnhubQuote
	quoteErr error
	bars     []dto.IntradayBar
	barsErr  error
}

func (f *fakeEquitiesRepo) GetQuote(_ context.Context, _ string) (*dto.FinnhubQuote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakeEquitiesRepo) GetIntradayBars(_ context.Context, _ string, _, _ time.Time) ([]dto.IntradayBar, error) {
	if f.barsErr != nil {
		return nil, f.barsErr
	}
	return f.bars, nil
}

type fakeCoinGeckoRepo struct {
	spot map[string]float64
	hist map[string]float64
	err  error
}

func (f *fakeCoinGeckoRepo) GetSpotPrice(_ context.Context, coinID string) (*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if price, ok := f.spot[coinID]; ok {
		return &price, nil
	}
	return nil, nil
}

func (f *fakeCoinGeckoRepo) GetHistoricalPrice(_ context.Context, coinID string, _ time.Time) (*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if price, ok := f.hist[coinID]; ok {
		return &price, nil
	}
	return nil, nil
}

type fakeGeckoTerminalRepo struct {
	pool    *dto.GeckoTerminalPool
	candles [][]float64
	err     error
}

func (f *fakeGeckoTerminalRepo) GetTopPool(_ context.Context, _, _ string) (*dto.GeckoTerminalPool, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pool, nil
}

func (f *fakeGeckoTerminalRepo) GetPoolOHLCV(_ context.Context, _, _ string, _ time.Time, _ int) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

type fakeDexScreenerRepo struct {
	pairs []dto.DexScreenerPair
	err   error
}

func (f *fakeDexScreenerRepo) SearchPairs(_ context.Context, _ string) ([]dto.DexScreenerPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pairs, nil
}

type fakeTwitterRepo struct {
	post *model.Post
	err  error
}

func (f *fakeTwitterRepo) FetchPost(_ context.Context, _ string) (*model.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.post, nil
}

type fakeExtractionRepo struct {
	raw *dto.RawCall
	err error
}

func (f *fakeExtractionRepo) CallFromText(_ context.Context, _ string, _ time.Time, _ *model.MarketContext) (*dto.RawCall, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

// fakeResolver returns canned answers regardless of the query. now and
// at let tests distinguish the current lookup from the historical one.
type fakeResolver struct {
	classify model.AssetType
	now      *float64
	at       *float64
	// bySymbol, when set, wins over now for current lookups.
	bySymbol map[string]*float64
	calls    atomic.Int64
}

func (f *fakeResolver) Classify(_ context.Context, _ string) (model.AssetType, error) {
	return f.classify, nil
}

func (f *fakeResolver) Reclassify(_ context.Context, _ string, _ model.AssetType) error {
	return nil
}

func (f *fakeResolver) ResolvePrice(_ context.Context, q PriceQuery) (*float64, error) {
	f.calls.Add(1)
	if q.At != nil {
		return f.at, nil
	}
	if f.bySymbol != nil {
		return f.bySymbol[q.Symbol], nil
	}
	return f.now, nil
}

func (f *fakeResolver) MarketContext(_ context.Context) (*model.MarketContext, error) {
	return &model.MarketContext{BTCPriceUSD: 100000, AsOf: time.Now().UTC()}, nil
}

func newTestResolver(kvStore kv.Store, equities *fakeEquitiesRepo, coinGecko *fakeCoinGeckoRepo, geckoTerminal *fakeGeckoTerminalRepo, dexScreener *fakeDexScreenerRepo) PriceResolver {
	cfg := testConfig()
	return NewPriceResolver(cfg, logger.NewNop(), kvStore,
		cache.NewCache(time.Minute, time.Minute),
		equities, coinGecko, geckoTerminal, dexScreener)
}

func floatPtr(v float64) *float64 { return &v }

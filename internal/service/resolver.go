package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"calltracker/config"
	"calltracker/internal/dto"
	"calltracker/internal/model"
	"calltracker/internal/repository"
	"calltracker/pkg/cache"
	"calltracker/pkg/kv"
	"calltracker/pkg/logger"
	"calltracker/pkg/utils"
)

// Contract addresses shorter than this are treated as absent: nothing
// on any supported chain is that short, and tickers occasionally end up
// pasted into the field.
const minContractAddressLen = 20

const defaultChain = "solana"

const cacheKeyMarketContext = "market_context"

// PriceQuery describes one price lookup. At == nil means "now".
type PriceQuery struct {
	Symbol          string
	AssetType       model.AssetType
	ContractAddress string
	Chain           string
	At              *time.Time
}

type PriceResolver interface {
	// Classify determines the asset class of a symbol. Overrides
	// recorded via Reclassify win over the static table; unknown
	// symbols default to STOCK.
	Classify(ctx context.Context, symbol string) (model.AssetType, error)
	// Reclassify records a classification override and migrates all
	// ticker index entries and tracked-ticker membership from the old
	// TickerKey to the new one in a single batch.
	Reclassify(ctx context.Context, symbol string, newType model.AssetType) error
	// ResolvePrice returns the USD price for the query, or nil when no
	// provider can resolve it. Provider failures never propagate past
	// this boundary; only context cancellation does.
	ResolvePrice(ctx context.Context, q PriceQuery) (*float64, error)
	// MarketContext returns a snapshot of major-asset spot prices,
	// memoized for the configured TTL.
	MarketContext(ctx context.Context) (*model.MarketContext, error)
}

type priceResolver struct {
	cfg           *config.Config
	log           *logger.Logger
	kvStore       kv.Store
	cache         cache.Cache
	equities      repository.EquitiesRepository
	coinGecko     repository.CoinGeckoRepository
	geckoTerminal repository.GeckoTerminalRepository
	dexScreener   repository.DexScreenerRepository
}

func NewPriceResolver(
	cfg *config.Config,
	log *logger.Logger,
	kvStore kv.Store,
	inmemoryCache cache.Cache,
	equities repository.EquitiesRepository,
	coinGecko repository.CoinGeckoRepository,
	geckoTerminal repository.GeckoTerminalRepository,
	dexScreener repository.DexScreenerRepository,
) PriceResolver {
	return &priceResolver{
		cfg:           cfg,
		log:           log,
		kvStore:       kvStore,
		cache:         inmemoryCache,
		equities:      equities,
		coinGecko:     coinGecko,
		geckoTerminal: geckoTerminal,
		dexScreener:   dexScreener,
	}
}

func (r *priceResolver) Classify(ctx context.Context, symbol string) (model.AssetType, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	overrides, err := r.kvStore.HGetAll(ctx, keyTickerClass)
	if err != nil {
		return "", err
	}
	if override, ok := overrides[symbol]; ok {
		return model.AssetType(override), nil
	}

	if _, ok := coingeckoIDs[symbol]; ok {
		return model.AssetTypeCrypto, nil
	}
	if _, ok := knownCryptoSymbols[symbol]; ok {
		return model.AssetTypeCrypto, nil
	}
	return model.AssetTypeStock, nil
}

func (r *priceResolver) Reclassify(ctx context.Context, symbol string, newType model.AssetType) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	// The static class table evolves, so the classifier's current
	// answer says nothing about which namespace the index recorded
	// entries under. Migrate whatever actually sits under the opposite
	// key and record the override regardless.
	oldType := model.AssetTypeCrypto
	if newType == model.AssetTypeCrypto {
		oldType = model.AssetTypeStock
	}

	oldKey := model.TickerKeyFor(oldType, symbol, "")
	newKey := model.TickerKeyFor(newType, symbol, "")

	refs, err := r.kvStore.SMembers(ctx, keyTickerRefs(oldKey))
	if err != nil {
		return err
	}
	tracked, err := r.kvStore.SMembers(ctx, keyTrackedTickers)
	if err != nil {
		return err
	}
	wasTracked := utils.ContainsString(tracked, string(oldKey))

	// Override, index entries and tracked membership move together;
	// stale dual entries under both keys are the failure mode this
	// batch exists to prevent.
	return r.kvStore.Pipelined(ctx, func(p kv.Pipeline) error {
		p.HSet(keyTickerClass, map[string]string{symbol: string(newType)})
		if len(refs) > 0 {
			p.SAdd(keyTickerRefs(newKey), refs...)
			p.Del(keyTickerRefs(oldKey))
		}
		if wasTracked {
			p.SRem(keyTrackedTickers, string(oldKey))
			p.SAdd(keyTrackedTickers, string(newKey))
		}
		return nil
	})
}

func (r *priceResolver) ResolvePrice(ctx context.Context, q PriceQuery) (*float64, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if q.AssetType == model.AssetTypeStock {
		return r.resolveStockPrice(ctx, q)
	}
	return r.resolveCryptoPrice(ctx, q)
}

func (r *priceResolver) resolveStockPrice(ctx context.Context, q PriceQuery) (*float64, error) {
	if q.At == nil {
		quote, err := r.equities.GetQuote(ctx, q.Symbol)
		if err != nil {
			r.log.WarnContext(ctx, "Failed to resolve stock quote",
				logger.StringField("symbol", q.Symbol),
				logger.ErrorField(err))
			return nil, ctx.Err()
		}
		return &quote.Current, nil
	}

	// Fetch a window of intraday bars around the target time and take
	// the closest one; the target may fall in a market-closed period.
	from := q.At.Add(-r.cfg.Equities.BarWindow)
	to := q.At.Add(r.cfg.Equities.BarWindow)
	bars, err := r.equities.GetIntradayBars(ctx, q.Symbol, from, to)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to resolve historical stock price",
			logger.StringField("symbol", q.Symbol),
			logger.ErrorField(err))
		return nil, ctx.Err()
	}

	atMs := utils.EpochMs(*q.At)
	var best *dto.IntradayBar
	for i := range bars {
		if best == nil || utils.AbsDeltaMs(bars[i].TimestampMs, atMs) < utils.AbsDeltaMs(best.TimestampMs, atMs) {
			best = &bars[i]
		}
	}
	if best == nil {
		return nil, nil
	}
	return &best.Close, nil
}

// resolveCryptoPrice walks the crypto fallback chain. Each step is only
// attempted when the prior one yields nothing.
func (r *priceResolver) resolveCryptoPrice(ctx context.Context, q PriceQuery) (*float64, error) {
	if len(q.ContractAddress) >= minContractAddressLen {
		price, err := r.resolveByContract(ctx, q)
		if err != nil {
			return nil, err
		}
		if price != nil {
			return price, nil
		}
	}

	if coinID, ok := coingeckoIDs[strings.ToUpper(q.Symbol)]; ok {
		price, err := r.resolveByCoinID(ctx, coinID, q.At)
		if err != nil {
			return nil, err
		}
		if price != nil {
			return price, nil
		}
	}

	return r.resolveByDexSearch(ctx, q.Symbol)
}

func (r *priceResolver) resolveByContract(ctx context.Context, q PriceQuery) (*float64, error) {
	network := q.Chain
	if network == "" {
		network = defaultChain
	}

	pool, err := r.geckoTerminal.GetTopPool(ctx, network, q.ContractAddress)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to resolve pool for contract",
			logger.StringField("contract_address", q.ContractAddress),
			logger.StringField("network", network),
			logger.ErrorField(err))
		return nil, ctx.Err()
	}
	if pool == nil {
		return nil, nil
	}

	if q.At == nil {
		price, err := strconv.ParseFloat(pool.Attributes.BaseTokenPriceUSD, 64)
		if err != nil || price == 0 {
			return nil, nil
		}
		return &price, nil
	}

	// Reconstruct the historical price from the hourly candle closest
	// to the target time.
	before := q.At.Add(time.Hour)
	candles, err := r.geckoTerminal.GetPoolOHLCV(ctx, network, pool.Attributes.Address, before, 168)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to resolve pool ohlcv",
			logger.StringField("pool_address", pool.Attributes.Address),
			logger.ErrorField(err))
		return nil, ctx.Err()
	}

	atMs := utils.EpochMs(*q.At)
	var best *float64
	var bestDelta int64
	for _, candle := range candles {
		if len(candle) < 5 {
			continue
		}
		tsMs := int64(candle[0]) * 1000
		closePrice := candle[4]
		if closePrice == 0 {
			continue
		}
		delta := utils.AbsDeltaMs(tsMs, atMs)
		if best == nil || delta < bestDelta {
			price := closePrice
			best = &price
			bestDelta = delta
		}
	}
	return best, nil
}

func (r *priceResolver) resolveByCoinID(ctx context.Context, coinID string, at *time.Time) (*float64, error) {
	var (
		price *float64
		err   error
	)
	if at == nil {
		price, err = r.coinGecko.GetSpotPrice(ctx, coinID)
	} else {
		price, err = r.coinGecko.GetHistoricalPrice(ctx, coinID, *at)
	}
	if err != nil {
		r.log.WarnContext(ctx, "Failed to resolve coingecko price",
			logger.StringField("coin_id", coinID),
			logger.ErrorField(err))
		return nil, ctx.Err()
	}
	return price, nil
}

// resolveByDexSearch is the last resort: free-text pair search, exact
// symbol match, greatest liquidity wins. It only knows current prices.
func (r *priceResolver) resolveByDexSearch(ctx context.Context, symbol string) (*float64, error) {
	pairs, err := r.dexScreener.SearchPairs(ctx, symbol)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to search dex pairs",
			logger.StringField("symbol", symbol),
			logger.ErrorField(err))
		return nil, ctx.Err()
	}

	var best *float64
	bestLiquidity := 0.0
	for _, pair := range pairs {
		if !strings.EqualFold(pair.BaseToken.Symbol, symbol) {
			continue
		}
		price, err := strconv.ParseFloat(pair.PriceUSD, 64)
		if err != nil || price == 0 {
			continue
		}
		if best == nil || pair.Liquidity.USD > bestLiquidity {
			p := price
			best = &p
			bestLiquidity = pair.Liquidity.USD
		}
	}
	return best, nil
}

func (r *priceResolver) MarketContext(ctx context.Context) (*model.MarketContext, error) {
	if snapshot, ok := cache.GetTyped[*model.MarketContext](r.cache, cacheKeyMarketContext); ok {
		return snapshot, nil
	}

	snapshot := &model.MarketContext{AsOf: time.Now().UTC()}
	for coinID, target := range map[string]*float64{
		"bitcoin":  &snapshot.BTCPriceUSD,
		"ethereum": &snapshot.ETHPriceUSD,
		"solana":   &snapshot.SOLPriceUSD,
	} {
		price, err := r.coinGecko.GetSpotPrice(ctx, coinID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if price != nil {
			*target = *price
		}
	}

	r.cache.Set(cacheKeyMarketContext, snapshot, r.cfg.Analysis.MarketContextTTL)
	return snapshot, nil
}

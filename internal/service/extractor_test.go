package service

import (
	"context"
	"testing"
	"time"

	"calltracker/internal/dto"
	"calltracker/internal/model"
	"calltracker/pkg/kv"
	"calltracker/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(extraction *fakeExtractionRepo) CallExtractor {
	resolver := newTestResolver(kv.NewMemory(), &fakeEquitiesRepo{}, &fakeCoinGeckoRepo{}, &fakeGeckoTerminalRepo{}, &fakeDexScreenerRepo{})
	return NewCallExtractor(testConfig(), logger.NewNop(), extraction, resolver)
}

func TestCallExtractor_Extract(t *testing.T) {
	ctx := context.Background()
	postedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no call means nil without error", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{HasCall: false}})

		call, err := extractor.Extract(ctx, "gm everyone", postedAt, ExtractOptions{})
		require.NoError(t, err)
		assert.Nil(t, call)
	})

	t.Run("plain bullish call", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{
			HasCall:    true,
			Symbol:     "btc",
			Action:     "buy",
			Sentiment:  "bullish",
			Confidence: 0.8,
		}})

		call, err := extractor.Extract(ctx, "$BTC breakout loading", postedAt, ExtractOptions{})
		require.NoError(t, err)
		require.NotNil(t, call)
		assert.Equal(t, "BTC", call.Symbol)
		assert.Equal(t, model.AssetTypeCrypto, call.AssetType)
		assert.Equal(t, model.ActionBuy, call.Action)
		assert.Equal(t, model.SentimentBullish, call.Sentiment)
		assert.Equal(t, 0.8, call.ConfidenceScore)
	})

	t.Run("action defaults off sentiment", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{
			HasCall:    true,
			Symbol:     "ETH",
			Sentiment:  "BEARISH",
			Confidence: 0.7,
		}})

		call, err := extractor.Extract(ctx, "eth looks heavy here", postedAt, ExtractOptions{})
		require.NoError(t, err)
		require.NotNil(t, call)
		assert.Equal(t, model.ActionSell, call.Action)
	})

	t.Run("sentiment defaults off action", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{
			HasCall:    true,
			Symbol:     "SOL",
			Action:     "SELL",
			Confidence: 0.7,
		}})

		call, err := extractor.Extract(ctx, "dumping my sol", postedAt, ExtractOptions{})
		require.NoError(t, err)
		require.NotNil(t, call)
		assert.Equal(t, model.SentimentBearish, call.Sentiment)
	})

	t.Run("proxy ticker maps to underlying asset", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{
			HasCall:    true,
			Symbol:     "MSTR",
			Action:     "BUY",
			Sentiment:  "BULLISH",
			Confidence: 0.9,
		}})

		call, err := extractor.Extract(ctx, "MSTR is a leveraged bitcoin bet", postedAt, ExtractOptions{})
		require.NoError(t, err)
		require.NotNil(t, call)
		assert.Equal(t, "BTC", call.Symbol)
		assert.Equal(t, model.AssetTypeCrypto, call.AssetType)
	})

	t.Run("contract address forces crypto", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{
			HasCall:         true,
			Symbol:          "UNKNOWNCOIN",
			ContractAddress: "So11111111111111111111111111111111111111112",
			Chain:           "solana",
			Action:          "BUY",
			Confidence:      0.6,
		}})

		call, err := extractor.Extract(ctx, "aping this one", postedAt, ExtractOptions{})
		require.NoError(t, err)
		require.NotNil(t, call)
		assert.Equal(t, model.AssetTypeCrypto, call.AssetType)
		assert.Equal(t, "So11111111111111111111111111111111111111112", call.ContractAddress)
		assert.Equal(t, "solana", call.Chain)
	})

	t.Run("short address fragment is discarded", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{
			HasCall:         true,
			Symbol:          "AAPL",
			ContractAddress: "0x1234",
			Action:          "BUY",
			Confidence:      0.6,
		}})

		call, err := extractor.Extract(ctx, "buying apple", postedAt, ExtractOptions{})
		require.NoError(t, err)
		require.NotNil(t, call)
		assert.Equal(t, model.AssetTypeStock, call.AssetType)
		assert.Empty(t, call.ContractAddress)
	})

	t.Run("symbol override forces a call even without one", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{
			HasCall:    false,
			Confidence: 0.1,
		}})

		call, err := extractor.Extract(ctx, "interesting chart", postedAt, ExtractOptions{
			SymbolOverride: "doge",
			ActionOverride: model.ActionSell,
		})
		require.NoError(t, err)
		require.NotNil(t, call)
		assert.Equal(t, "DOGE", call.Symbol)
		assert.Equal(t, model.ActionSell, call.Action)
		assert.Equal(t, model.SentimentBearish, call.Sentiment)
		assert.Equal(t, 1.0, call.ConfidenceScore, "operator override is authoritative")
	})

	t.Run("override skips proxy mapping", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{
			HasCall:    true,
			Symbol:     "MSTR",
			Action:     "BUY",
			Confidence: 0.9,
		}})

		call, err := extractor.Extract(ctx, "MSTR earnings play", postedAt, ExtractOptions{SymbolOverride: "MSTR"})
		require.NoError(t, err)
		require.NotNil(t, call)
		assert.Equal(t, "MSTR", call.Symbol, "forced symbol is taken literally")
		assert.Equal(t, model.AssetTypeStock, call.AssetType)
	})

	t.Run("confidence clamped into unit range", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{
			HasCall:    true,
			Symbol:     "BTC",
			Action:     "BUY",
			Confidence: 1.7,
		}})

		call, err := extractor.Extract(ctx, "btc 200k eoy", postedAt, ExtractOptions{})
		require.NoError(t, err)
		require.NotNil(t, call)
		assert.Equal(t, 1.0, call.ConfidenceScore)
	})

	t.Run("warning flags pass through", func(t *testing.T) {
		extractor := newTestExtractor(&fakeExtractionRepo{raw: &dto.RawCall{
			HasCall:      true,
			Symbol:       "BTC",
			Action:       "BUY",
			Confidence:   0.8,
			IsSarcasm:    true,
			WarningFlags: []string{model.WarningQuestion},
		}})

		call, err := extractor.Extract(ctx, "btc to 1 million??", postedAt, ExtractOptions{})
		require.NoError(t, err)
		require.NotNil(t, call)
		assert.True(t, call.IsSarcasm)
		assert.True(t, call.HasWarning(model.WarningQuestion))
	})
}

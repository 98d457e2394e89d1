package service

import (
	"context"
	"testing"
	"time"

	"calltracker/internal/dto"
	"calltracker/internal/model"
	"calltracker/pkg/logger"
	"calltracker/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	call *model.Call
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _ time.Time, _ ExtractOptions) (*model.Call, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.call, nil
}

func testPost() *model.Post {
	return &model.Post{
		ID:          "555",
		Text:        "$BTC sending it to 150k",
		Username:    "CryptoCaller",
		DisplayName: "Crypto Caller",
		Avatar:      "https://pbs.twimg.com/cc.jpg",
		PostedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func bullishCall() *model.Call {
	return &model.Call{
		Symbol:          "BTC",
		AssetType:       model.AssetTypeCrypto,
		Action:          model.ActionBuy,
		Sentiment:       model.SentimentBullish,
		ConfidenceScore: 0.9,
	}
}

func newTestAnalyzer(twitter *fakeTwitterRepo, extractor CallExtractor, resolver PriceResolver) (Analyzer, AnalysisStore) {
	cfg := testConfig()
	store, _ := newTestStore(cfg)
	return NewAnalyzer(cfg, logger.NewNop(), twitter, extractor, resolver, store), store
}

func TestAnalyzer_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path stores record and profile", func(t *testing.T) {
		resolver := &fakeResolver{now: floatPtr(110000), at: floatPtr(100000)}
		analyzer, store := newTestAnalyzer(&fakeTwitterRepo{post: testPost()}, &fakeExtractor{call: bullishCall()}, resolver)

		record, err := analyzer.Analyze(ctx, &dto.AnalyzeRequest{TweetID: "555"})
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "555", record.TweetID)
		assert.Equal(t, 100000.0, record.EntryPrice)
		assert.Equal(t, 110000.0, record.CurrentPrice)
		assert.InDelta(t, 10.0, record.Performance, 1e-9)
		assert.True(t, record.IsWin)
		assert.Equal(t, "https://x.com/CryptoCaller/status/555", record.URL)
		assert.Equal(t, utils.EpochMs(testPost().PostedAt), record.Timestamp)

		stored, err := store.GetAnalysis(ctx, "555")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, *record, *stored)

		profile, err := store.GetUserProfile(ctx, "cryptocaller")
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.Equal(t, 1, profile.TotalAnalyses)
		assert.Equal(t, 1, profile.Wins)
	})

	t.Run("missing post", func(t *testing.T) {
		analyzer, _ := newTestAnalyzer(&fakeTwitterRepo{post: nil}, &fakeExtractor{call: bullishCall()}, &fakeResolver{})

		_, err := analyzer.Analyze(ctx, &dto.AnalyzeRequest{TweetID: "gone"})
		assert.ErrorIs(t, err, ErrFetchFailed)
	})

	t.Run("fetch error", func(t *testing.T) {
		analyzer, _ := newTestAnalyzer(&fakeTwitterRepo{err: assert.AnError}, &fakeExtractor{call: bullishCall()}, &fakeResolver{})

		_, err := analyzer.Analyze(ctx, &dto.AnalyzeRequest{TweetID: "555"})
		assert.ErrorIs(t, err, ErrFetchFailed)
	})

	t.Run("no call in post", func(t *testing.T) {
		analyzer, _ := newTestAnalyzer(&fakeTwitterRepo{post: testPost()}, &fakeExtractor{call: nil}, &fakeResolver{})

		_, err := analyzer.Analyze(ctx, &dto.AnalyzeRequest{TweetID: "555"})
		assert.ErrorIs(t, err, ErrNoCallFound)
	})

	t.Run("sarcastic call is gated", func(t *testing.T) {
		call := bullishCall()
		call.IsSarcasm = true
		analyzer, _ := newTestAnalyzer(&fakeTwitterRepo{post: testPost()}, &fakeExtractor{call: call}, &fakeResolver{})

		_, err := analyzer.Analyze(ctx, &dto.AnalyzeRequest{TweetID: "555"})
		assert.ErrorIs(t, err, ErrNoCallFound)
	})

	t.Run("question flag is gated", func(t *testing.T) {
		call := bullishCall()
		call.WarningFlags = []string{model.WarningQuestion}
		analyzer, _ := newTestAnalyzer(&fakeTwitterRepo{post: testPost()}, &fakeExtractor{call: call}, &fakeResolver{})

		_, err := analyzer.Analyze(ctx, &dto.AnalyzeRequest{TweetID: "555"})
		assert.ErrorIs(t, err, ErrNoCallFound)
	})

	t.Run("low confidence is gated", func(t *testing.T) {
		call := bullishCall()
		call.ConfidenceScore = 0.1
		analyzer, _ := newTestAnalyzer(&fakeTwitterRepo{post: testPost()}, &fakeExtractor{call: call}, &fakeResolver{})

		_, err := analyzer.Analyze(ctx, &dto.AnalyzeRequest{TweetID: "555"})
		assert.ErrorIs(t, err, ErrNoCallFound)
	})

	t.Run("override bypasses gating", func(t *testing.T) {
		call := bullishCall()
		call.ConfidenceScore = 1
		call.IsSarcasm = true
		resolver := &fakeResolver{now: floatPtr(110000), at: floatPtr(100000)}
		analyzer, _ := newTestAnalyzer(&fakeTwitterRepo{post: testPost()}, &fakeExtractor{call: call}, resolver)

		record, err := analyzer.Analyze(ctx, &dto.AnalyzeRequest{TweetID: "555", SymbolOverride: "BTC"})
		require.NoError(t, err)
		assert.NotNil(t, record)
	})

	t.Run("unresolvable entry price", func(t *testing.T) {
		resolver := &fakeResolver{now: floatPtr(110000), at: nil}
		analyzer, _ := newTestAnalyzer(&fakeTwitterRepo{post: testPost()}, &fakeExtractor{call: bullishCall()}, resolver)

		_, err := analyzer.Analyze(ctx, &dto.AnalyzeRequest{TweetID: "555"})
		assert.ErrorIs(t, err, ErrPriceUnresolved)
	})

	t.Run("unresolvable current price", func(t *testing.T) {
		resolver := &fakeResolver{now: nil, at: floatPtr(100000)}
		analyzer, _ := newTestAnalyzer(&fakeTwitterRepo{post: testPost()}, &fakeExtractor{call: bullishCall()}, resolver)

		_, err := analyzer.Analyze(ctx, &dto.AnalyzeRequest{TweetID: "555"})
		assert.ErrorIs(t, err, ErrPriceUnresolved)
	})
}

package service

import (
	"context"
	"testing"

	"calltracker/internal/model"
	"calltracker/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRefreshFixture(t *testing.T, store AnalysisStore) {
	t.Helper()
	ctx := context.Background()
	records := []*model.StoredAnalysis{
		testAnalysis("r1", "trader_a", "BTC", model.AssetTypeCrypto, 100, 110),
		testAnalysis("r2", "trader_b", "BTC", model.AssetTypeCrypto, 200, 210),
		testAnalysis("r3", "trader_a", "AAPL", model.AssetTypeStock, 300, 290),
	}
	for _, rec := range records {
		require.NoError(t, store.AddAnalysis(ctx, rec))
		require.NoError(t, store.UpdateUserProfile(ctx, rec))
	}
}

func TestRefresher_RefreshAll(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	t.Run("updates every referencing record once", func(t *testing.T) {
		store, _ := newTestStore(cfg)
		seedRefreshFixture(t, store)
		resolver := &fakeResolver{now: floatPtr(150)}
		refresher := NewRefresher(cfg, logger.NewNop(), resolver, store)

		summary, err := refresher.RefreshAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Tickers)
		assert.Equal(t, 3, summary.Updated)
		assert.Equal(t, 0, summary.Skipped)
		assert.Equal(t, 0, summary.Errors)
		assert.Equal(t, int64(2), resolver.calls.Load(), "one price lookup per ticker")

		for _, id := range []string{"r1", "r2", "r3"} {
			rec, err := store.GetAnalysis(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, 150.0, rec.CurrentPrice)
		}

		// Entry 100 -> 150 is +50%, entry 300 -> 150 is -50%.
		r1, _ := store.GetAnalysis(ctx, "r1")
		assert.InDelta(t, 50.0, r1.Performance, 1e-9)
		r3, _ := store.GetAnalysis(ctx, "r3")
		assert.InDelta(t, -50.0, r3.Performance, 1e-9)

		// Profiles were recomputed from the refreshed records.
		profile, err := store.GetUserProfile(ctx, "trader_a")
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.Equal(t, 2, profile.TotalAnalyses)
		assert.Equal(t, 1, profile.Wins)
		assert.Equal(t, 1, profile.Losses)
	})

	t.Run("only the resolved ticker's records change", func(t *testing.T) {
		store, _ := newTestStore(cfg)
		seedRefreshFixture(t, store)
		resolver := &fakeResolver{bySymbol: map[string]*float64{"BTC": floatPtr(150)}}
		refresher := NewRefresher(cfg, logger.NewNop(), resolver, store)

		before, err := store.GetAnalysis(ctx, "r3")
		require.NoError(t, err)

		summary, err := refresher.RefreshAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Updated)
		assert.Equal(t, 1, summary.Skipped)

		after, err := store.GetAnalysis(ctx, "r3")
		require.NoError(t, err)
		assert.Equal(t, before, after, "AAPL record must be byte-identical")

		r1, err := store.GetAnalysis(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, 150.0, r1.CurrentPrice)
	})

	t.Run("unresolvable ticker is skipped untouched", func(t *testing.T) {
		store, _ := newTestStore(cfg)
		seedRefreshFixture(t, store)
		resolver := &fakeResolver{now: nil}
		refresher := NewRefresher(cfg, logger.NewNop(), resolver, store)

		summary, err := refresher.RefreshAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Updated)
		assert.Equal(t, 3, summary.Skipped)
		assert.Equal(t, 0, summary.Errors)

		rec, err := store.GetAnalysis(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, 110.0, rec.CurrentPrice, "skipped record keeps its last price")
	})

	t.Run("repeated runs converge", func(t *testing.T) {
		store, _ := newTestStore(cfg)
		seedRefreshFixture(t, store)
		resolver := &fakeResolver{now: floatPtr(150)}
		refresher := NewRefresher(cfg, logger.NewNop(), resolver, store)

		_, err := refresher.RefreshAll(ctx)
		require.NoError(t, err)
		firstFeed, err := store.GetRecentFeed(ctx, 10)
		require.NoError(t, err)
		firstProfile, err := store.GetUserProfile(ctx, "trader_a")
		require.NoError(t, err)

		summary, err := refresher.RefreshAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Updated)

		secondFeed, err := store.GetRecentFeed(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, firstFeed, secondFeed, "second run must not reorder or change anything")
		secondProfile, err := store.GetUserProfile(ctx, "trader_a")
		require.NoError(t, err)
		assert.Equal(t, firstProfile, secondProfile)
	})

	t.Run("dangling ref is dropped", func(t *testing.T) {
		store, kvStore := newTestStore(cfg)
		seedRefreshFixture(t, store)
		require.NoError(t, kvStore.SAdd(context.Background(), keyTickerRefs("CRYPTO:BTC"), "ghost:404"))

		resolver := &fakeResolver{now: floatPtr(150)}
		refresher := NewRefresher(cfg, logger.NewNop(), resolver, store)

		summary, err := refresher.RefreshAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Updated)

		refs, err := store.GetTickerRefs(ctx, "CRYPTO:BTC")
		require.NoError(t, err)
		for _, ref := range refs {
			assert.NotEqual(t, "404", ref.TweetID)
		}
	})

	t.Run("empty index is a quiet noop", func(t *testing.T) {
		store, _ := newTestStore(cfg)
		refresher := NewRefresher(cfg, logger.NewNop(), &fakeResolver{now: floatPtr(1)}, store)

		summary, err := refresher.RefreshAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Tickers)
		assert.Equal(t, 0, summary.Updated)
	})
}

func TestRefresher_QueryForFollowsKeyNamespace(t *testing.T) {
	r := &refresher{}

	tests := []struct {
		name         string
		key          model.TickerKey
		record       *model.StoredAnalysis
		wantType     model.AssetType
		wantContract string
	}{
		{
			name:     "crypto key overrides stale stock class",
			key:      model.CryptoTickerKey("FOO"),
			record:   testAnalysis("q1", "trader_a", "FOO", model.AssetTypeStock, 100, 100),
			wantType: model.AssetTypeCrypto,
		},
		{
			name:     "stock key overrides stale crypto class",
			key:      model.StockTickerKey("MSTR"),
			record:   testAnalysis("q2", "trader_a", "MSTR", model.AssetTypeCrypto, 100, 100),
			wantType: model.AssetTypeStock,
		},
		{
			name:         "contract key carries the address and prices as crypto",
			key:          model.ContractTickerKey("So11111111111111111111111111111111111111112"),
			record:       testAnalysis("q3", "trader_a", "SOL", model.AssetTypeStock, 100, 100),
			wantType:     model.AssetTypeCrypto,
			wantContract: "So11111111111111111111111111111111111111112",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := r.queryFor(tt.key, tt.record)
			assert.Equal(t, tt.wantType, q.AssetType)
			assert.Equal(t, tt.record.Symbol, q.Symbol)
			if tt.wantContract != "" {
				assert.Equal(t, tt.wantContract, q.ContractAddress)
			}
		})
	}
}

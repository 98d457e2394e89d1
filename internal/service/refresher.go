package service

import (
	"context"
	"sync"

	"calltracker/config"
	"calltracker/internal/dto"
	"calltracker/internal/model"
	"calltracker/pkg/logger"
	"calltracker/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// Refresher re-resolves current prices for every tracked ticker and
// rewrites the affected records in place. One price lookup per ticker,
// regardless of how many records reference it.
type Refresher interface {
	RefreshAll(ctx context.Context) (*dto.RefreshSummary, error)
}

type refresher struct {
	cfg      *config.Config
	log      *logger.Logger
	resolver PriceResolver
	store    AnalysisStore
}

func NewRefresher(cfg *config.Config, log *logger.Logger, resolver PriceResolver, store AnalysisStore) Refresher {
	return &refresher{
		cfg:      cfg,
		log:      log,
		resolver: resolver,
		store:    store,
	}
}

func (r *refresher) RefreshAll(ctx context.Context) (*dto.RefreshSummary, error) {
	tickers, err := r.store.ListTrackedTickers(ctx)
	if err != nil {
		return nil, err
	}

	summary := &dto.RefreshSummary{Tickers: len(tickers)}
	var mu sync.Mutex
	touchedUsers := map[string]struct{}{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Scheduler.MaxConcurrency)

	for _, key := range tickers {
		g.Go(func() error {
			if !utils.ShouldContinue(gctx) {
				return gctx.Err()
			}

			updated, skipped, errored, users := r.refreshTicker(gctx, key)

			mu.Lock()
			summary.Updated += updated
			summary.Skipped += skipped
			summary.Errors += errored
			for user := range users {
				touchedUsers[user] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	// Profiles are recomputed once per user, after all of the user's
	// records have settled.
	for user := range touchedUsers {
		if _, err := r.store.RecalculateUserProfile(ctx, user); err != nil {
			r.log.ErrorContext(ctx, "Failed to recompute profile after refresh",
				logger.StringField("username", user),
				logger.ErrorField(err))
			mu.Lock()
			summary.Errors++
			mu.Unlock()
		}
	}

	r.log.InfoContext(ctx, "Refresh run finished",
		logger.IntField("tickers", summary.Tickers),
		logger.IntField("updated", summary.Updated),
		logger.IntField("skipped", summary.Skipped),
		logger.IntField("errors", summary.Errors))
	return summary, nil
}

// refreshTicker updates every record referencing one ticker. Returns
// per-record counts and the set of usernames whose histories changed.
func (r *refresher) refreshTicker(ctx context.Context, key model.TickerKey) (updated, skipped, errored int, users map[string]struct{}) {
	users = map[string]struct{}{}

	refs, err := r.store.GetTickerRefs(ctx, key)
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to load ticker refs",
			logger.StringField("ticker_key", string(key)),
			logger.ErrorField(err))
		errored++
		return
	}
	if len(refs) == 0 {
		return
	}

	records := make([]*model.StoredAnalysis, 0, len(refs))
	for _, ref := range refs {
		record, err := r.store.GetAnalysis(ctx, ref.TweetID)
		if err != nil {
			errored++
			continue
		}
		if record == nil {
			// Dangling ref: the record was removed but the index entry
			// survived. Clean it up instead of carrying it forever.
			if err := r.store.RemoveTickerRef(ctx, key, ref); err != nil {
				r.log.ErrorContext(ctx, "Failed to drop dangling ticker ref",
					logger.StringField("ticker_key", string(key)),
					logger.StringField("ref", ref.String()),
					logger.ErrorField(err))
				errored++
			}
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return
	}

	price, err := r.resolver.ResolvePrice(ctx, r.queryFor(key, records[0]))
	if err != nil {
		errored += len(records)
		return
	}
	if price == nil {
		// Unresolvable tickers keep their last known prices. The next
		// run retries them.
		skipped += len(records)
		return
	}

	for _, record := range records {
		record.CurrentPrice = *price
		if performance := Performance(record.EntryPrice, *price, record.Action); performance != nil {
			record.Performance = *performance
			record.IsWin = ClassifyOutcome(*performance, r.cfg.Analysis.NeutralThreshold) == OutcomeWin
		}
		if err := r.store.ReplaceAnalysis(ctx, record); err != nil {
			r.log.ErrorContext(ctx, "Failed to rewrite record during refresh",
				logger.StringField("tweet_id", record.TweetID),
				logger.ErrorField(err))
			errored++
			continue
		}
		updated++
		users[utils.NormalizeUsername(record.Username)] = struct{}{}
	}
	return
}

// queryFor builds the single price lookup for a ticker. The asset
// class comes from the key's namespace, not the stored record: after a
// reclassification the migrated records still carry the class they
// were written with. Contract keys carry the address in the key
// itself; the loaded record supplies the chain and, for the symbol
// namespaces, the contract hint if one was extracted originally.
func (r *refresher) queryFor(key model.TickerKey, record *model.StoredAnalysis) PriceQuery {
	q := PriceQuery{
		Symbol:          record.Symbol,
		AssetType:       record.AssetType,
		ContractAddress: record.ContractAddress,
		Chain:           record.Chain,
	}
	switch namespace, value, ok := key.Parse(); {
	case ok && namespace == model.NamespaceContract:
		q.AssetType = model.AssetTypeCrypto
		q.ContractAddress = value
	case ok && namespace == model.NamespaceCrypto:
		q.AssetType = model.AssetTypeCrypto
	case ok && namespace == model.NamespaceStock:
		q.AssetType = model.AssetTypeStock
	}
	return q
}

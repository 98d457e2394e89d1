package service

import (
	"calltracker/config"
	"calltracker/internal/repository"
	"calltracker/pkg/cache"
	"calltracker/pkg/kv"
	"calltracker/pkg/logger"
)

type Service struct {
	PriceResolver PriceResolver
	CallExtractor CallExtractor
	AnalysisStore AnalysisStore
	Analyzer      Analyzer
	Refresher     Refresher
	Scheduler     Scheduler
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	kvStore kv.Store,
	inmemoryCache cache.Cache,
	repo *repository.Repository,
) *Service {
	resolver := NewPriceResolver(cfg, log, kvStore, inmemoryCache,
		repo.EquitiesRepo, repo.CoinGeckoRepo, repo.GeckoTerminalRepo, repo.DexScreenerRepo)
	extractor := NewCallExtractor(cfg, log, repo.ExtractionRepo, resolver)
	store := NewAnalysisStore(cfg, log, kvStore)
	analyzer := NewAnalyzer(cfg, log, repo.TwitterRepo, extractor, resolver, store)
	refresher := NewRefresher(cfg, log, resolver, store)
	sched := NewScheduler(cfg, log, refresher)

	return &Service{
		PriceResolver: resolver,
		CallExtractor: extractor,
		AnalysisStore: store,
		Analyzer:      analyzer,
		Refresher:     refresher,
		Scheduler:     sched,
	}
}

package service

import (
	"context"
	"errors"
	"fmt"

	"calltracker/config"
	"calltracker/internal/dto"
	"calltracker/internal/model"
	"calltracker/internal/repository"
	"calltracker/pkg/logger"
	"calltracker/pkg/utils"
)

var (
	// ErrFetchFailed marks a post that could not be retrieved, either
	// because the source API failed or because the post does not exist.
	ErrFetchFailed = errors.New("failed to fetch source post")
	// ErrNoCallFound marks a post that carries no actionable call, which
	// includes sarcasm, questions and low-confidence extractions.
	ErrNoCallFound = errors.New("no actionable call found")
	// ErrPriceUnresolved marks a call whose entry or current price could
	// not be resolved by any provider.
	ErrPriceUnresolved = errors.New("unable to resolve prices")
)

// Analyzer runs the full end-to-end pipeline for one post: fetch,
// extract, resolve prices, score and persist.
type Analyzer interface {
	Analyze(ctx context.Context, req *dto.AnalyzeRequest) (*model.StoredAnalysis, error)
}

type analyzer struct {
	cfg       *config.Config
	log       *logger.Logger
	twitter   repository.TwitterRepository
	extractor CallExtractor
	resolver  PriceResolver
	store     AnalysisStore
}

func NewAnalyzer(
	cfg *config.Config,
	log *logger.Logger,
	twitter repository.TwitterRepository,
	extractor CallExtractor,
	resolver PriceResolver,
	store AnalysisStore,
) Analyzer {
	return &analyzer{
		cfg:       cfg,
		log:       log,
		twitter:   twitter,
		extractor: extractor,
		resolver:  resolver,
		store:     store,
	}
}

func (a *analyzer) Analyze(ctx context.Context, req *dto.AnalyzeRequest) (*model.StoredAnalysis, error) {
	post, err := a.twitter.FetchPost(ctx, req.TweetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post %s not found", ErrFetchFailed, req.TweetID)
	}

	// Market context is advisory input to extraction; losing it does
	// not abort the pipeline.
	market, err := a.resolver.MarketContext(ctx)
	if err != nil {
		a.log.WarnContext(ctx, "Proceeding without market context", logger.ErrorField(err))
		market = nil
	}

	forced := req.SymbolOverride != ""
	call, err := a.extractor.Extract(ctx, post.Text, post.PostedAt, ExtractOptions{
		SymbolOverride: req.SymbolOverride,
		ActionOverride: model.Action(req.ActionOverride),
		Market:         market,
	})
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, ErrNoCallFound
	}
	if !forced {
		if reason := gateReason(a.cfg, call); reason != "" {
			a.log.InfoContext(ctx, "Skipping post",
				logger.StringField("tweet_id", post.ID),
				logger.StringField("reason", reason))
			return nil, fmt.Errorf("%w: %s", ErrNoCallFound, reason)
		}
	}

	query := PriceQuery{
		Symbol:          call.Symbol,
		AssetType:       call.AssetType,
		ContractAddress: call.ContractAddress,
		Chain:           call.Chain,
	}

	entryQuery := query
	entryQuery.At = &post.PostedAt
	entryPrice, err := a.resolver.ResolvePrice(ctx, entryQuery)
	if err != nil {
		return nil, err
	}
	if entryPrice == nil {
		return nil, fmt.Errorf("%w: no entry price for %s", ErrPriceUnresolved, call.Symbol)
	}

	currentPrice, err := a.resolver.ResolvePrice(ctx, query)
	if err != nil {
		return nil, err
	}
	if currentPrice == nil {
		return nil, fmt.Errorf("%w: no current price for %s", ErrPriceUnresolved, call.Symbol)
	}

	performance := Performance(*entryPrice, *currentPrice, call.Action)
	if performance == nil {
		return nil, fmt.Errorf("%w: zero entry price for %s", ErrPriceUnresolved, call.Symbol)
	}

	record := &model.StoredAnalysis{
		TweetID:         post.ID,
		Username:        post.Username,
		Author:          post.DisplayName,
		Avatar:          post.Avatar,
		Symbol:          call.Symbol,
		AssetType:       call.AssetType,
		ContractAddress: call.ContractAddress,
		Chain:           call.Chain,
		Sentiment:       call.Sentiment,
		Action:          call.Action,
		EntryPrice:      *entryPrice,
		CurrentPrice:    *currentPrice,
		Performance:     *performance,
		IsWin:           ClassifyOutcome(*performance, a.cfg.Analysis.NeutralThreshold) == OutcomeWin,
		Timestamp:       utils.EpochMs(post.PostedAt),
		Confidence:      call.ConfidenceScore,
		Timeframe:       call.Timeframe,
		Reasoning:       call.Reasoning,
		Text:            post.Text,
		URL:             fmt.Sprintf("https://x.com/%s/status/%s", post.Username, post.ID),
	}

	if err := a.store.AddAnalysis(ctx, record); err != nil {
		return nil, err
	}
	if err := a.store.UpdateUserProfile(ctx, record); err != nil {
		return nil, err
	}

	a.log.InfoContext(ctx, "Analysis stored",
		logger.StringField("tweet_id", record.TweetID),
		logger.StringField("username", record.Username),
		logger.StringField("ticker_key", string(record.TickerKey())),
		logger.Float64Field("performance", record.Performance))
	return record, nil
}

// gateReason decides whether an extracted call is actionable. An empty
// string means it passes.
func gateReason(cfg *config.Config, call *model.Call) string {
	switch {
	case call.IsSarcasm:
		return "post is sarcastic or joking"
	case call.HasWarning(model.WarningQuestion):
		return "post is a question or poll, not a call"
	case call.HasWarning(model.WarningDirectionless):
		return "post states no direction"
	case call.ConfidenceScore < cfg.Analysis.ConfidenceFloor:
		return fmt.Sprintf("confidence %.2f below floor %.2f", call.ConfidenceScore, cfg.Analysis.ConfidenceFloor)
	}
	return ""
}

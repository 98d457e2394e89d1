package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"calltracker/config"
	"calltracker/internal/dto"
	"calltracker/pkg/httpclient"
	"calltracker/pkg/logger"

	"golang.org/x/time/rate"
)

type DexScreenerRepository interface {
	SearchPairs(ctx context.Context, query string) ([]dto.DexScreenerPair, error)
}

type dexScreenerRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewDexScreenerRepository(cfg *config.Config, log *logger.Logger) DexScreenerRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.DexScreener.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &dexScreenerRepository{
		httpClient:     httpclient.New(log, cfg.DexScreener.BaseURL, cfg.DexScreener.Timeout, ""),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *dexScreenerRepository) SearchPairs(ctx context.Context, query string) ([]dto.DexScreenerPair, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{
		"q": query,
	}

	var search dto.DexScreenerSearch
	resp, err := r.httpClient.Get(ctx, "/latest/dex/search", queryParams, nil, &search)
	if err != nil {
		return nil, fmt.Errorf("failed to search pairs for %q: %w", query, err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "DexScreener API returned Non-OK status for search",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("query", query),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("dexscreener api returned status: %d", resp.StatusCode)
	}

	return search.Pairs, nil
}

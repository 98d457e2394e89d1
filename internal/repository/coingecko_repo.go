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

type CoinGeckoRepository interface {
	// GetSpotPrice returns the current USD price for a coin id, or nil
	// when the aggregator does not know the coin.
	GetSpotPrice(ctx context.Context, coinID string) (*float64, error)
	// GetHistoricalPrice returns the USD price for a coin id on the
	// day of `at`, or nil when no history exists for that date.
	GetHistoricalPrice(ctx context.Context, coinID string, at time.Time) (*float64, error)
}

type coinGeckoRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewCoinGeckoRepository(cfg *config.Config, log *logger.Logger) CoinGeckoRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.CoinGecko.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &coinGeckoRepository{
		httpClient:     httpclient.New(log, cfg.CoinGecko.BaseURL, cfg.CoinGecko.Timeout, ""),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *coinGeckoRepository) GetSpotPrice(ctx context.Context, coinID string) (*float64, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{
		"ids":           coinID,
		"vs_currencies": "usd",
	}

	var prices dto.CoinGeckoSimplePrice
	resp, err := r.httpClient.Get(ctx, "/simple/price", queryParams, r.authHeaders(), &prices)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spot price for %s: %w", coinID, err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "CoinGecko API returned Non-OK status for spot price",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("coin_id", coinID),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("coingecko api returned status: %d", resp.StatusCode)
	}

	usd, ok := prices[coinID]["usd"]
	if !ok || usd == 0 {
		return nil, nil
	}
	return &usd, nil
}

func (r *coinGeckoRepository) GetHistoricalPrice(ctx context.Context, coinID string, at time.Time) (*float64, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{
		"date":         at.UTC().Format("02-01-2006"),
		"localization": "false",
	}

	var history dto.CoinGeckoHistory
	resp, err := r.httpClient.Get(ctx, fmt.Sprintf("/coins/%s/history", coinID), queryParams, r.authHeaders(), &history)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", coinID, err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "CoinGecko API returned Non-OK status for history",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("coin_id", coinID),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("coingecko api returned status: %d", resp.StatusCode)
	}

	if history.MarketData == nil {
		return nil, nil
	}
	usd, ok := history.MarketData.CurrentPrice["usd"]
	if !ok || usd == 0 {
		return nil, nil
	}
	return &usd, nil
}

func (r *coinGeckoRepository) authHeaders() map[string]string {
	if r.cfg.CoinGecko.APIKey == "" {
		return nil
	}
	return map[string]string{
		"x-cg-demo-api-key": r.cfg.CoinGecko.APIKey,
	}
}

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

type EquitiesRepository interface {
	GetQuote(ctx context.Context, symbol string) (*dto.FinnhubQuote, error)
	GetIntradayBars(ctx context.Context, symbol string, from, to time.Time) ([]dto.IntradayBar, error)
}

type equitiesRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewEquitiesRepository(cfg *config.Config, log *logger.Logger) EquitiesRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.Equities.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &equitiesRepository{
		httpClient:     httpclient.New(log, cfg.Equities.BaseURL, cfg.Equities.Timeout, ""),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *equitiesRepository) GetQuote(ctx context.Context, symbol string) (*dto.FinnhubQuote, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{
		"symbol": symbol,
	}

	var quote dto.FinnhubQuote
	resp, err := r.httpClient.Get(ctx, "/quote", queryParams, r.authHeaders(), &quote)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Equities API returned Non-OK status for quote",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("symbol", symbol),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("equities api returned status: %d", resp.StatusCode)
	}

	// A quote of 0 with no timestamp means the symbol is unknown.
	if quote.Current == 0 && quote.Timestamp == 0 {
		return nil, fmt.Errorf("no quote data for symbol: %s", symbol)
	}

	return &quote, nil
}

func (r *equitiesRepository) GetIntradayBars(ctx context.Context, symbol string, from, to time.Time) ([]dto.IntradayBar, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{
		"symbol":     symbol,
		"resolution": r.cfg.Equities.BarResolution,
		"from":       fmt.Sprintf("%d", from.UTC().Unix()),
		"to":         fmt.Sprintf("%d", to.UTC().Unix()),
	}

	var candles dto.FinnhubCandles
	resp, err := r.httpClient.Get(ctx, "/stock/candle", queryParams, r.authHeaders(), &candles)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles for %s: %w", symbol, err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Equities API returned Non-OK status for candles",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("symbol", symbol),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("equities api returned status: %d", resp.StatusCode)
	}

	if candles.Status != "ok" {
		return nil, fmt.Errorf("no candle data for symbol %s: status %s", symbol, candles.Status)
	}

	bars := make([]dto.IntradayBar, 0, len(candles.Timestamps))
	for i, ts := range candles.Timestamps {
		if i >= len(candles.Open) || i >= len(candles.High) || i >= len(candles.Low) || i >= len(candles.Close) {
			continue
		}
		bar := dto.IntradayBar{
			TimestampMs: ts * 1000,
			Open:        candles.Open[i],
			High:        candles.High[i],
			Low:         candles.Low[i],
			Close:       candles.Close[i],
		}
		if i < len(candles.Volume) {
			bar.Volume = candles.Volume[i]
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no valid bars for symbol: %s", symbol)
	}

	return bars, nil
}

func (r *equitiesRepository) authHeaders() map[string]string {
	return map[string]string{
		"X-Finnhub-Token": r.cfg.Equities.APIKey,
	}
}

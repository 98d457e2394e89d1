package repository

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"calltracker/config"
	"calltracker/internal/dto"
	"calltracker/pkg/httpclient"
	"calltracker/pkg/logger"

	"golang.org/x/time/rate"
)

type GeckoTerminalRepository interface {
	// GetTopPool returns the highest-liquidity pool for a token on a
	// network, or nil when the token has no pools.
	GetTopPool(ctx context.Context, network, tokenAddress string) (*dto.GeckoTerminalPool, error)
	// GetPoolOHLCV returns hourly candles ending at or before `before`,
	// each entry [unixSeconds, open, high, low, close, volume].
	GetPoolOHLCV(ctx context.Context, network, poolAddress string, before time.Time, limit int) ([][]float64, error)
}

type geckoTerminalRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewGeckoTerminalRepository(cfg *config.Config, log *logger.Logger) GeckoTerminalRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.GeckoTerminal.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &geckoTerminalRepository{
		httpClient:     httpclient.New(log, cfg.GeckoTerminal.BaseURL, cfg.GeckoTerminal.Timeout, ""),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *geckoTerminalRepository) GetTopPool(ctx context.Context, network, tokenAddress string) (*dto.GeckoTerminalPool, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/networks/%s/tokens/%s/pools", network, tokenAddress)
	queryParams := map[string]string{
		"page": "1",
	}

	var pools dto.GeckoTerminalPools
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &pools)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools for token %s: %w", tokenAddress, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "GeckoTerminal API returned Non-OK status for pools",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("token_address", tokenAddress),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("geckoterminal api returned status: %d", resp.StatusCode)
	}

	var top *dto.GeckoTerminalPool
	topLiquidity := 0.0
	for i := range pools.Data {
		pool := &pools.Data[i]
		liquidity, err := strconv.ParseFloat(pool.Attributes.ReserveInUSD, 64)
		if err != nil {
			continue
		}
		if top == nil || liquidity > topLiquidity {
			top = pool
			topLiquidity = liquidity
		}
	}

	return top, nil
}

func (r *geckoTerminalRepository) GetPoolOHLCV(ctx context.Context, network, poolAddress string, before time.Time, limit int) ([][]float64, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/networks/%s/pools/%s/ohlcv/hour", network, poolAddress)
	queryParams := map[string]string{
		"before_timestamp": strconv.FormatInt(before.UTC().Unix(), 10),
		"limit":            strconv.Itoa(limit),
	}

	var ohlcv dto.GeckoTerminalOHLCV
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &ohlcv)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ohlcv for pool %s: %w", poolAddress, err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "GeckoTerminal API returned Non-OK status for ohlcv",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("pool_address", poolAddress),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("geckoterminal api returned status: %d", resp.StatusCode)
	}

	return ohlcv.Data.Attributes.OHLCVList, nil
}

package repository

import (
	"calltracker/config"
	"calltracker/pkg/logger"
)

type Repository struct {
	TwitterRepo       TwitterRepository
	ExtractionRepo    ExtractionRepository
	EquitiesRepo      EquitiesRepository
	CoinGeckoRepo     CoinGeckoRepository
	GeckoTerminalRepo GeckoTerminalRepository
	DexScreenerRepo   DexScreenerRepository
}

func NewRepository(cfg *config.Config, log *logger.Logger) (*Repository, error) {
	extractionRepo, err := NewGeminiExtractionRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return &Repository{
		TwitterRepo:       NewTwitterRepository(cfg, log),
		ExtractionRepo:    extractionRepo,
		EquitiesRepo:      NewEquitiesRepository(cfg, log),
		CoinGeckoRepo:     NewCoinGeckoRepository(cfg, log),
		GeckoTerminalRepo: NewGeckoTerminalRepository(cfg, log),
		DexScreenerRepo:   NewDexScreenerRepository(cfg, log),
	}, nil
}

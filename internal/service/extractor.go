package service

import (
	"context"
	"strings"
	"time"

	"calltracker/config"
	"calltracker/internal/model"
	"calltracker/internal/repository"
	"calltracker/pkg/logger"
)

// ExtractOptions carries the deterministic inputs of one extraction.
// Overrides, when set, win over whatever the extraction model inferred;
// correction tooling uses them to force a result without re-deriving
// sentiment from scratch.
type ExtractOptions struct {
	SymbolOverride string
	ActionOverride model.Action
	Market         *model.MarketContext
}

type CallExtractor interface {
	// Extract turns free text into a structured Call. A nil Call with a
	// nil error means no actionable call was identified, which is a
	// normal outcome, not an error.
	Extract(ctx context.Context, text string, postedAt time.Time, opts ExtractOptions) (*model.Call, error)
}

type callExtractor struct {
	cfg        *config.Config
	log        *logger.Logger
	extraction repository.ExtractionRepository
	resolver   PriceResolver
}

func NewCallExtractor(cfg *config.Config, log *logger.Logger, extraction repository.ExtractionRepository, resolver PriceResolver) CallExtractor {
	return &callExtractor{
		cfg:        cfg,
		log:        log,
		extraction: extraction,
		resolver:   resolver,
	}
}

func (e *callExtractor) Extract(ctx context.Context, text string, postedAt time.Time, opts ExtractOptions) (*model.Call, error) {
	raw, err := e.extraction.CallFromText(ctx, text, postedAt, opts.Market)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	forced := opts.SymbolOverride != ""
	if !raw.HasCall && !forced {
		return nil, nil
	}

	symbol := strings.ToUpper(strings.TrimSpace(raw.Symbol))
	if forced {
		symbol = strings.ToUpper(strings.TrimSpace(opts.SymbolOverride))
	}
	if symbol == "" {
		return nil, nil
	}

	contractAddress := raw.ContractAddress
	chain := raw.Chain
	if forced {
		// A forced symbol invalidates whatever address the model read
		// out of the post.
		contractAddress = ""
		chain = ""
	}

	// Proxy rules map holding companies to the asset they hold. They
	// apply only to inferred symbols: forcing a symbol means the caller
	// wants exactly that symbol.
	if underlying, ok := proxyRules[symbol]; ok && !forced {
		symbol = underlying
		contractAddress = ""
		chain = ""
	}

	assetType := model.AssetTypeStock
	if len(contractAddress) >= minContractAddressLen {
		assetType = model.AssetTypeCrypto
	} else {
		contractAddress = ""
		chain = ""
		assetType, err = e.resolver.Classify(ctx, symbol)
		if err != nil {
			return nil, err
		}
	}

	action := model.Action(strings.ToUpper(raw.Action))
	if opts.ActionOverride != "" {
		action = opts.ActionOverride
	}
	sentiment := model.Sentiment(strings.ToUpper(raw.Sentiment))

	// Direction fields default off each other when the model only
	// produced one of them.
	if action != model.ActionBuy && action != model.ActionSell {
		if sentiment == model.SentimentBearish {
			action = model.ActionSell
		} else {
			action = model.ActionBuy
		}
	}
	if sentiment != model.SentimentBullish && sentiment != model.SentimentBearish {
		if action == model.ActionSell {
			sentiment = model.SentimentBearish
		} else {
			sentiment = model.SentimentBullish
		}
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if forced {
		confidence = 1
	}

	return &model.Call{
		Symbol:          symbol,
		AssetType:       assetType,
		ContractAddress: contractAddress,
		Chain:           chain,
		Action:          action,
		Sentiment:       sentiment,
		ConfidenceScore: confidence,
		Timeframe:       raw.Timeframe,
		IsSarcasm:       raw.IsSarcasm,
		WarningFlags:    raw.WarningFlags,
		Reasoning:       raw.Reasoning,
	}, nil
}

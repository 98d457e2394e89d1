package dto

import "calltracker/internal/model"

type AnalyzeRequest struct {
	TweetID        string `json:"tweet_id" validate:"required"`
	SymbolOverride string `json:"symbol_override,omitempty"`
	ActionOverride string `json:"action_override,omitempty" validate:"omitempty,oneof=BUY SELL"`
}

type ReclassifyRequest struct {
	AssetType string `json:"asset_type" validate:"required,oneof=CRYPTO STOCK"`
}

// RefreshSummary reports the outcome of one batch refresh run.
type RefreshSummary struct {
	Tickers int `json:"tickers"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

type TickerProfilesPage struct {
	Items []model.TickerProfile `json:"items"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
	Total int                   `json:"total"`
}

type UserDetail struct {
	Profile model.UserProfile      `json:"profile"`
	History []model.StoredAnalysis `json:"history"`
}

package service

import (
	"calltracker/internal/model"
	"calltracker/pkg/utils"
)

// KV key layout. Every component that touches the store goes through
// these builders so the layout has one source of truth.
const (
	keyRecentFeed     = "feed:recent"
	keyAllUsers       = "users:all"
	keyTrackedTickers = "tickers:tracked"
	keyTickerClass    = "tickers:class"
)

func keyAnalysis(tweetID string) string {
	return "analysis:" + tweetID
}

func keyUserHistory(username string) string {
	return "user:" + utils.NormalizeUsername(username) + ":history"
}

func keyUserProfile(username string) string {
	return "user:" + utils.NormalizeUsername(username) + ":profile"
}

func keyTickerRefs(k model.TickerKey) string {
	return "ticker:" + string(k) + ":refs"
}

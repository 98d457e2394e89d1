package model

import "time"

// Post is the raw source text as returned by the tweet-fetch collaborator.
type Post struct {
	ID          string
	Text        string
	Username    string
	DisplayName string
	Avatar      string
	PostedAt    time.Time
}

// MarketContext is a snapshot of major-asset spot prices handed to the
// extractor so proxy rules resolve deterministically.
type MarketContext struct {
	BTCPriceUSD float64
	ETHPriceUSD float64
	SOLPriceUSD float64
	AsOf        time.Time
}

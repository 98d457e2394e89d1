package model

// StoredAnalysis is the canonical persisted record for one verified
// call, keyed by the source tweet id. The batch refresher rewrites
// CurrentPrice/Performance/IsWin in place; correction tooling may
// rewrite any field, followed by a mandatory profile recompute.
type StoredAnalysis struct {
	TweetID         string    `json:"tweet_id" validate:"required"`
	Username        string    `json:"username" validate:"required"`
	Author          string    `json:"author"`
	Avatar          string    `json:"avatar"`
	Symbol          string    `json:"symbol" validate:"required"`
	AssetType       AssetType `json:"asset_type" validate:"required,oneof=CRYPTO STOCK"`
	ContractAddress string    `json:"contract_address,omitempty"`
	Chain           string    `json:"chain,omitempty"`
	Sentiment       Sentiment `json:"sentiment" validate:"required,oneof=BULLISH BEARISH"`
	Action          Action    `json:"action" validate:"required,oneof=BUY SELL"`
	EntryPrice      float64   `json:"entry_price" validate:"gt=0"`
	CurrentPrice    float64   `json:"current_price" validate:"gt=0"`
	Performance     float64   `json:"performance"`
	IsWin           bool      `json:"is_win"`
	// Timestamp is the source post time in UTC epoch milliseconds.
	Timestamp  int64   `json:"timestamp" validate:"gt=0"`
	Confidence float64 `json:"confidence"`
	Timeframe  string  `json:"timeframe,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Text       string  `json:"text"`
	URL        string  `json:"url"`
}

func (a *StoredAnalysis) TickerKey() TickerKey {
	return TickerKeyFor(a.AssetType, a.Symbol, a.ContractAddress)
}

func (a *StoredAnalysis) Ref() AnalysisRef {
	return AnalysisRef{Username: a.Username, TweetID: a.TweetID}
}

// UserProfile is a materialized aggregate over one user's history. It is
// always recomputed wholly from the history, never patched incrementally.
type UserProfile struct {
	Username      string  `json:"username"`
	Avatar        string  `json:"avatar"`
	TotalAnalyses int     `json:"total_analyses"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Neutral       int     `json:"neutral"`
	WinRate       float64 `json:"win_rate"`
	LastAnalyzed  int64   `json:"last_analyzed"`
}

// TickerProfile is a per-asset aggregate derived from the ticker index.
type TickerProfile struct {
	Key        TickerKey `json:"key"`
	Symbol     string    `json:"symbol"`
	AssetType  AssetType `json:"asset_type"`
	CallCount  int       `json:"call_count"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	Neutral    int       `json:"neutral"`
	WinRate    float64   `json:"win_rate"`
	LastCallAt int64     `json:"last_call_at"`
}

package model

type AssetType string

const (
	AssetTypeCrypto AssetType = "CRYPTO"
	AssetTypeStock  AssetType = "STOCK"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

type Sentiment string

const (
	SentimentBullish Sentiment = "BULLISH"
	SentimentBearish Sentiment = "BEARISH"
)

// Warning flags the extractor can attach to a call. The pipeline treats
// some of them as reasons not to persist.
const (
	WarningQuestion      = "QUESTION_OR_POLL"
	WarningDirectionless = "DIRECTIONLESS"
	WarningAmbiguous     = "AMBIGUOUS_TICKER"
	WarningOldNews       = "QUOTED_OLD_NEWS"
)

// Call is the structured prediction extracted from one post. It is
// produced fresh per extraction and never mutated.
type Call struct {
	Symbol          string    `json:"symbol"`
	AssetType       AssetType `json:"asset_type"`
	ContractAddress string    `json:"contract_address,omitempty"`
	Chain           string    `json:"chain,omitempty"`
	Action          Action    `json:"action"`
	Sentiment       Sentiment `json:"sentiment"`
	ConfidenceScore float64   `json:"confidence_score"`
	Timeframe       string    `json:"timeframe,omitempty"`
	IsSarcasm       bool      `json:"is_sarcasm"`
	WarningFlags    []string  `json:"warning_flags,omitempty"`
	Reasoning       string    `json:"reasoning,omitempty"`
}

func (c *Call) HasWarning(flag string) bool {
	for _, f := range c.WarningFlags {
		if f == flag {
			return true
		}
	}
	return false
}

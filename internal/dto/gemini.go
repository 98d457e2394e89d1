package dto

type GeminiAPIRequest struct {
	Contents []GeminiContent `json:"contents"`
}

type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiAPIResponse struct {
	Candidates []struct {
		Content struct {
			Parts []GeminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// RawCall is the JSON payload the extraction model returns. The wrapper
// in internal/service interprets it; nothing else reads this shape.
type RawCall struct {
	HasCall         bool     `json:"has_call"`
	Symbol          string   `json:"symbol"`
	AssetType       string   `json:"asset_type"`
	ContractAddress string   `json:"contract_address"`
	Chain           string   `json:"chain"`
	Action          string   `json:"action"`
	Sentiment       string   `json:"sentiment"`
	Confidence      float64  `json:"confidence"`
	Timeframe       string   `json:"timeframe"`
	IsSarcasm       bool     `json:"is_sarcasm"`
	WarningFlags    []string `json:"warning_flags"`
	Reasoning       string   `json:"reasoning"`
}

package dto

// DexScreenerSearch is the /latest/dex/search response.
type DexScreenerSearch struct {
	Pairs []DexScreenerPair `json:"pairs"`
}

type DexScreenerPair struct {
	ChainID   string `json:"chainId"`
	DexID     string `json:"dexId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  string `json:"priceUsd"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

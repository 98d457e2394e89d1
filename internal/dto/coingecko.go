package dto

// CoinGeckoSimplePrice is the /simple/price response:
// coin id -> currency -> price.
type CoinGeckoSimplePrice map[string]map[string]float64

// CoinGeckoHistory is the /coins/{id}/history response, trimmed to the
// fields we read.
type CoinGeckoHistory struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	MarketData *struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

package dto

// GeckoTerminalPools is the /networks/{network}/tokens/{address}/pools
// response. Numeric attributes arrive as strings.
type GeckoTerminalPools struct {
	Data []GeckoTerminalPool `json:"data"`
}

type GeckoTerminalPool struct {
	ID         string `json:"id"`
	Attributes struct {
		Address           string `json:"address"`
		Name              string `json:"name"`
		BaseTokenPriceUSD string `json:"base_token_price_usd"`
		ReserveInUSD      string `json:"reserve_in_usd"`
	} `json:"attributes"`
}

// GeckoTerminalOHLCV is the pool OHLCV response. Each entry is
// [unixSeconds, open, high, low, close, volume].
type GeckoTerminalOHLCV struct {
	Data struct {
		Attributes struct {
			OHLCVList [][]float64 `json:"ohlcv_list"`
		} `json:"attributes"`
	} `json:"data"`
}

package dto

// FinnhubQuote is the /quote response: current price plus the day's
// OHLC and previous close.
type FinnhubQuote struct {
	Current       float64 `json:"c"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// FinnhubCandles is the /stock/candle response, column-oriented.
// Status is "ok" or "no_data"; timestamps are unix seconds.
type FinnhubCandles struct {
	Close      []float64 `json:"c"`
	High       []float64 `json:"h"`
	Low        []float64 `json:"l"`
	Open       []float64 `json:"o"`
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Volume     []float64 `json:"v"`
}

// IntradayBar is one normalized bar with its time in UTC epoch ms.
type IntradayBar struct {
	TimestampMs int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

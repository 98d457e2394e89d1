package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickerKeyFor(t *testing.T) {
	tests := []struct {
		name            string
		assetType       AssetType
		symbol          string
		contractAddress string
		want            TickerKey
	}{
		{name: "crypto symbol", assetType: AssetTypeCrypto, symbol: "btc", want: "CRYPTO:BTC"},
		{name: "stock symbol", assetType: AssetTypeStock, symbol: "aapl", want: "STOCK:AAPL"},
		{
			name:            "contract address wins over symbol",
			assetType:       AssetTypeCrypto,
			symbol:          "WIF",
			contractAddress: "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm",
			want:            "CA:EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TickerKeyFor(tt.assetType, tt.symbol, tt.contractAddress))
		})
	}
}

func TestTickerKeyParse(t *testing.T) {
	ns, value, ok := TickerKey("CRYPTO:BTC").Parse()
	assert.True(t, ok)
	assert.Equal(t, NamespaceCrypto, ns)
	assert.Equal(t, "BTC", value)

	// Contract addresses keep their case.
	ns, value, ok = TickerKey("CA:abcDEF1234567890abcdef1234").Parse()
	assert.True(t, ok)
	assert.Equal(t, NamespaceContract, ns)
	assert.Equal(t, "abcDEF1234567890abcdef1234", value)

	_, _, ok = TickerKey("BOND:XYZ").Parse()
	assert.False(t, ok)
	_, _, ok = TickerKey("plain").Parse()
	assert.False(t, ok)
}

func TestAnalysisRefRoundTrip(t *testing.T) {
	ref := AnalysisRef{Username: "trader_a", TweetID: "123"}
	assert.Equal(t, "trader_a:123", ref.String())

	parsed, ok := ParseAnalysisRef("trader_a:123")
	assert.True(t, ok)
	assert.Equal(t, ref, parsed)

	_, ok = ParseAnalysisRef("noseparator")
	assert.False(t, ok)
}

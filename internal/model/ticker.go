package model

import (
	"fmt"
	"strings"
)

// TickerKey is the canonical identifier for a priceable asset,
// namespaced by asset class or by on-chain contract address:
// CRYPTO:<SYMBOL> | STOCK:<SYMBOL> | CA:<contractAddress>.
type TickerKey string

const (
	NamespaceCrypto   = "CRYPTO"
	NamespaceStock    = "STOCK"
	NamespaceContract = "CA"
)

func CryptoTickerKey(symbol string) TickerKey {
	return TickerKey("CRYPTO:" + strings.ToUpper(symbol))
}

func StockTickerKey(symbol string) TickerKey {
	return TickerKey("STOCK:" + strings.ToUpper(symbol))
}

func ContractTickerKey(contractAddress string) TickerKey {
	return TickerKey("CA:" + contractAddress)
}

func TickerKeyFor(assetType AssetType, symbol, contractAddress string) TickerKey {
	if contractAddress != "" {
		return ContractTickerKey(contractAddress)
	}
	if assetType == AssetTypeCrypto {
		return CryptoTickerKey(symbol)
	}
	return StockTickerKey(symbol)
}

// Parse splits a TickerKey into its namespace and value. Unknown shapes
// report ok=false.
func (k TickerKey) Parse() (namespace, value string, ok bool) {
	parts := strings.SplitN(string(k), ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", false
	}
	switch parts[0] {
	case NamespaceCrypto, NamespaceStock, NamespaceContract:
		return parts[0], parts[1], true
	}
	return "", "", false
}

// AnalysisRef identifies one stored analysis inside a ticker index set.
type AnalysisRef struct {
	Username string
	TweetID  string
}

func (r AnalysisRef) String() string {
	return fmt.Sprintf("%s:%s", r.Username, r.TweetID)
}

func ParseAnalysisRef(s string) (AnalysisRef, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return AnalysisRef{}, false
	}
	return AnalysisRef{Username: parts[0], TweetID: parts[1]}, true
}

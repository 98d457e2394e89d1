package service

// coingeckoIDs maps crypto ticker symbols to their canonical CoinGecko
// coin id. The table doubles as the known-crypto set for classification.
// It is an evolving table, not a heuristic: symbols that get classified
// wrong are fixed through Reclassify, which records an override.
var coingeckoIDs = map[string]string{
	"BTC":    "bitcoin",
	"ETH":    "ethereum",
	"SOL":    "solana",
	"BNB":    "binancecoin",
	"XRP":    "ripple",
	"ADA":    "cardano",
	"DOGE":   "dogecoin",
	"AVAX":   "avalanche-2",
	"DOT":    "polkadot",
	"LINK":   "chainlink",
	"LTC":    "litecoin",
	"TRX":    "tron",
	"UNI":    "uniswap",
	"ATOM":   "cosmos",
	"NEAR":   "near",
	"APT":    "aptos",
	"ARB":    "arbitrum",
	"OP":     "optimism",
	"SUI":    "sui",
	"TON":    "the-open-network",
	"SHIB":   "shiba-inu",
	"PEPE":   "pepe",
	"WIF":    "dogwifcoin",
	"BONK":   "bonk",
	"HYPE":   "hyperliquid",
	"AAVE":   "aave",
	"MKR":    "maker",
	"INJ":    "injective-protocol",
	"SEI":    "sei-network",
	"TAO":    "bittensor",
	"RENDER": "render-token",
	"FET":    "fetch-ai",
	"JUP":    "jupiter-exchange-solana",
	"PYTH":   "pyth-network",
	"ONDO":   "ondo-finance",
	"ENA":    "ethena",
	"XLM":    "stellar",
	"HBAR":   "hedera-hashgraph",
	"ALGO":   "algorand",
	"FIL":    "filecoin",
	"ETC":    "ethereum-classic",
	"BCH":    "bitcoin-cash",
	"XMR":    "monero",
	"POL":    "polygon-ecosystem-token",
}

// knownCryptoSymbols covers tickers that classify as CRYPTO even though
// they have no CoinGecko id mapping; pricing for these falls through to
// the DEX search step.
var knownCryptoSymbols = map[string]struct{}{
	"FARTCOIN": {},
	"POPCAT":   {},
	"MOODENG":  {},
	"PNUT":     {},
	"TRUMP":    {},
	"MOG":      {},
	"TURBO":    {},
	"BRETT":    {},
}

// proxyRules maps equities whose core business is holding a crypto
// asset to the underlying asset they should be priced against.
var proxyRules = map[string]string{
	"MSTR": "BTC",
	"CEP":  "BTC",
	"SBET": "ETH",
	"BMNR": "ETH",
	"DFDV": "SOL",
	"UPXI": "SOL",
}

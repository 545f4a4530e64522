package wizard

// Catalog lists the suggested options shown as toggle chips on each step.
// Users may add custom entries beyond these.
type Catalog struct {
	Sectors    []string `json:"sectors"`
	Narratives []string `json:"narratives"`
	Watchlist  []string `json:"watchlist"`
}

// DefaultCatalog returns the built-in suggestions
func DefaultCatalog() Catalog {
	return Catalog{
		Sectors: []string{
			"DeFi",
			"Layer 1",
			"Layer 2",
			"AI",
			"Gaming",
			"NFTs",
			"Infrastructure",
			"Stablecoins",
			"Memecoins",
			"Real World Assets",
			"DePIN",
			"Privacy",
		},
		Narratives: []string{
			"ETF Flows",
			"Restaking",
			"Regulation",
			"Bitcoin Halving",
			"Modular Blockchains",
			"AI Agents",
			"Tokenization",
			"Airdrops",
			"Institutional Adoption",
			"Cross-chain Interoperability",
		},
		Watchlist: []string{
			"BTC",
			"ETH",
			"SOL",
			"BNB",
			"XRP",
			"ADA",
			"AVAX",
			"LINK",
			"DOT",
			"ARB",
		},
	}
}

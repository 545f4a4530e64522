package models

// Trending is the public trending-search payload: coins, NFT collections
// and categories. Empty sections are empty slices, never nil.
type Trending struct {
	Coins      []TrendingCoin     `json:"coins"`
	NFTs       []TrendingNFT      `json:"nfts"`
	Categories []TrendingCategory `json:"categories"`
}

// Clone returns a copy that shares no slices with t
func (t Trending) Clone() Trending {
	return Trending{
		Coins:      append([]TrendingCoin{}, t.Coins...),
		NFTs:       append([]TrendingNFT{}, t.NFTs...),
		Categories: append([]TrendingCategory{}, t.Categories...),
	}
}

// TrendingCoin is one entry of the public trending-search list
type TrendingCoin struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Symbol        string   `json:"symbol"`
	Slug          string   `json:"slug,omitempty"`
	MarketCapRank int      `json:"marketCapRank"`
	Thumb         string   `json:"thumb"`
	Score         int      `json:"score"`
	PriceBTC      float64  `json:"priceBtc"`
	PriceUSD      *float64 `json:"priceUsd,omitempty"`
	Change24hPct  *float64 `json:"change24hPct,omitempty"`
	MarketCap     string   `json:"marketCap,omitempty"`
	Sparkline     string   `json:"sparkline,omitempty"`
}

// TrendingNFT is a trending NFT collection with its floor price
type TrendingNFT struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Symbol               string  `json:"symbol"`
	Thumb                string  `json:"thumb"`
	NativeCurrencySymbol string  `json:"nativeCurrencySymbol"`
	FloorPrice           float64 `json:"floorPrice"`
	FloorChange24hPct    float64 `json:"floorChange24hPct"`
}

// TrendingCategory is a trending coin category
type TrendingCategory struct {
	ID                int     `json:"id"`
	Name              string  `json:"name"`
	Slug              string  `json:"slug"`
	CoinsCount        int     `json:"coinsCount"`
	MarketCapChange1h float64 `json:"marketCapChange1hPct"`
}

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cryptobrief/internal/circuitbreaker"
	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/models"
)

const coinGeckoProvider = "coingecko"

// CoinGeckoClient reads the public trending-search list
type CoinGeckoClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
}

// NewCoinGeckoClient creates a client. An empty apiKey uses keyless public
// access. requestsPerMinute paces outbound calls; <= 0 disables pacing.
func NewCoinGeckoClient(apiKey, baseURL string, requestsPerMinute int) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com"
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return &CoinGeckoClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
	}
}

// WithBreaker guards every call with cb
func (c *CoinGeckoClient) WithBreaker(cb *circuitbreaker.CircuitBreaker) *CoinGeckoClient {
	c.breaker = cb
	return c
}

type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID            string  `json:"id"`
			Name          string  `json:"name"`
			Symbol        string  `json:"symbol"`
			Slug          string  `json:"slug"`
			MarketCapRank int     `json:"market_cap_rank"`
			Thumb         string  `json:"thumb"`
			Score         int     `json:"score"`
			PriceBTC      float64 `json:"price_btc"`
			Data          *struct {
				Price                    *float64           `json:"price"`
				PriceChangePercentage24h map[string]float64 `json:"price_change_percentage_24h"`
				MarketCap                string             `json:"market_cap"`
				Sparkline                string             `json:"sparkline"`
			} `json:"data"`
		} `json:"item"`
	} `json:"coins"`
	NFTs []struct {
		ID                   string  `json:"id"`
		Name                 string  `json:"name"`
		Symbol               string  `json:"symbol"`
		Thumb                string  `json:"thumb"`
		NativeCurrencySymbol string  `json:"native_currency_symbol"`
		FloorPrice           float64 `json:"floor_price_in_native_currency"`
		FloorChange24h       float64 `json:"floor_price_24h_percentage_change"`
	} `json:"nfts"`
	Categories []struct {
		ID                int     `json:"id"`
		Name              string  `json:"name"`
		Slug              string  `json:"slug"`
		CoinsCount        int     `json:"coins_count"`
		MarketCapChange1h float64 `json:"market_cap_1h_change"`
	} `json:"categories"`
}

// Trending fetches the trending coins, NFTs and categories. Errors are
// returned without retry.
func (c *CoinGeckoClient) Trending(ctx context.Context) (models.Trending, error) {
	if c.breaker == nil {
		return c.fetchTrending(ctx)
	}

	var trending models.Trending
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		trending, err = c.fetchTrending(ctx)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return models.Trending{}, apperrors.NewServiceUnavailableError(coinGeckoProvider)
	}
	return trending, err
}

func (c *CoinGeckoClient) fetchTrending(ctx context.Context) (models.Trending, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Trending{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/search/trending", nil)
	if err != nil {
		return models.Trending{}, apperrors.NewInternalError("failed to build trending request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Trending{}, apperrors.NewUpstreamFailureError(coinGeckoProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return models.Trending{}, apperrors.NewUpstreamStatusError(coinGeckoProvider, resp.StatusCode, string(body))
	}

	var payload trendingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Trending{}, apperrors.NewMalformedResponseError(coinGeckoProvider, err)
	}

	trending := models.Trending{
		Coins:      make([]models.TrendingCoin, 0, len(payload.Coins)),
		NFTs:       make([]models.TrendingNFT, 0, len(payload.NFTs)),
		Categories: make([]models.TrendingCategory, 0, len(payload.Categories)),
	}
	for _, entry := range payload.Coins {
		item := entry.Item
		coin := models.TrendingCoin{
			ID:            item.ID,
			Name:          item.Name,
			Symbol:        item.Symbol,
			Slug:          item.Slug,
			MarketCapRank: item.MarketCapRank,
			Thumb:         item.Thumb,
			Score:         item.Score,
			PriceBTC:      item.PriceBTC,
		}
		if item.Data != nil {
			coin.PriceUSD = item.Data.Price
			if pct, ok := item.Data.PriceChangePercentage24h["usd"]; ok {
				coin.Change24hPct = &pct
			}
			coin.MarketCap = item.Data.MarketCap
			coin.Sparkline = item.Data.Sparkline
		}
		trending.Coins = append(trending.Coins, coin)
	}
	for _, nft := range payload.NFTs {
		trending.NFTs = append(trending.NFTs, models.TrendingNFT{
			ID:                   nft.ID,
			Name:                 nft.Name,
			Symbol:               nft.Symbol,
			Thumb:                nft.Thumb,
			NativeCurrencySymbol: nft.NativeCurrencySymbol,
			FloorPrice:           nft.FloorPrice,
			FloorChange24hPct:    nft.FloorChange24h,
		})
	}
	for _, cat := range payload.Categories {
		trending.Categories = append(trending.Categories, models.TrendingCategory{
			ID:                cat.ID,
			Name:              cat.Name,
			Slug:              cat.Slug,
			CoinsCount:        cat.CoinsCount,
			MarketCapChange1h: cat.MarketCapChange1h,
		})
	}
	return trending, nil
}

// Package dashboard coordinates the per-session dashboard: the daily brief
// fetch, the tabbed feed section with its lazily loaded trending data, and
// the settings and upgrade modals.
package dashboard

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc"

	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/types"
)

// BriefSource resolves the newest daily brief
type BriefSource interface {
	LatestPDF(ctx context.Context) (*models.WorkspaceFile, error)
}

// TrendingSource fetches the trending market list
type TrendingSource interface {
	Trending(ctx context.Context) (models.Trending, error)
}

// User-facing load failure prefixes
const (
	briefErrorPrefix    = "Could not load today's brief: "
	trendingErrorPrefix = "Could not load trending data: "
)

// BriefState is the daily brief load state
type BriefState struct {
	Status types.LoadStatus `json:"status"`
	URL    string           `json:"pdfUrl,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Empty-section texts of the trending tab
const (
	NoTrendingCoins      = "No trending coins found."
	NoTrendingNFTs       = "No trending NFTs found."
	NoTrendingCategories = "No trending categories found."
)

// TrendingState is the trending tab load state. Once ready, each empty
// section carries its placeholder text in Empty.
type TrendingState struct {
	Status     types.LoadStatus          `json:"status"`
	Coins      []models.TrendingCoin     `json:"coins,omitempty"`
	NFTs       []models.TrendingNFT      `json:"nfts,omitempty"`
	Categories []models.TrendingCategory `json:"categories,omitempty"`
	Empty      map[string]string         `json:"empty,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

func readyTrending(t models.Trending) TrendingState {
	state := TrendingState{
		Status:     types.StatusReady,
		Coins:      t.Coins,
		NFTs:       t.NFTs,
		Categories: t.Categories,
		Empty:      map[string]string{},
	}
	if len(t.Coins) == 0 {
		state.Empty["coins"] = NoTrendingCoins
	}
	if len(t.NFTs) == 0 {
		state.Empty["nfts"] = NoTrendingNFTs
	}
	if len(t.Categories) == 0 {
		state.Empty["categories"] = NoTrendingCategories
	}
	return state
}

// FeedTabs is the display order of the feed section tabs
var FeedTabs = []types.FeedTab{types.TabWatchlist, types.TabSector, types.TabNarrative, types.TabTrending}

// Coordinator owns the asynchronous loads of one session's dashboard.
// Fetches outlive tab switches; Close drops any result that arrives later.
type Coordinator struct {
	ctx      context.Context
	cancel   context.CancelFunc
	briefs   BriefSource
	trending TrendingSource
	logger   *logging.Logger
	wg       conc.WaitGroup

	mu     sync.Mutex
	brief  BriefState
	trend  TrendingState
	tab    types.FeedTab
	closed bool
}

// NewCoordinator creates a coordinator whose fetches run under parent
func NewCoordinator(parent context.Context, briefs BriefSource, trending TrendingSource, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{
		ctx:      ctx,
		cancel:   cancel,
		briefs:   briefs,
		trending: trending,
		logger:   logger,
		brief:    BriefState{Status: types.StatusIdle},
		trend:    TrendingState{Status: types.StatusIdle},
		tab:      types.TabWatchlist,
	}
}

// Mount starts the brief fetch. Only the first call per session fetches;
// it reports whether a fetch was started.
func (c *Coordinator) Mount() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.brief.Status != types.StatusIdle {
		return false
	}
	c.startBriefLocked()
	return true
}

// ReloadBrief retries the brief after a failed or empty load
func (c *Coordinator) ReloadBrief() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	switch c.brief.Status {
	case types.StatusError, types.StatusNotFound:
		c.startBriefLocked()
		return true
	default:
		return false
	}
}

func (c *Coordinator) startBriefLocked() {
	c.brief = BriefState{Status: types.StatusLoading}
	c.wg.Go(c.fetchBrief)
}

func (c *Coordinator) fetchBrief() {
	file, err := c.briefs.LatestPDF(c.ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	switch {
	case err == nil:
		c.brief = BriefState{Status: types.StatusReady, URL: file.FullURL}
	case apperrors.IsNotFound(err):
		c.brief = BriefState{Status: types.StatusNotFound, Error: apperrors.Categorize(err).Message}
	default:
		c.logger.WithError(err).Warn("Daily brief fetch failed")
		c.brief = BriefState{Status: types.StatusError, Error: briefErrorPrefix + apperrors.Categorize(err).Message}
	}
}

// SelectTab switches the active tab. The first trending selection starts the
// market fetch; after a failed fetch, selecting the tab again retries.
func (c *Coordinator) SelectTab(tier types.AccountTier, tab types.FeedTab) error {
	if !tier.CanViewFeeds() {
		return apperrors.NewTierRequiredError("Personalized feeds", tier)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	c.tab = tab
	if tab == types.TabTrending && tier.CanViewTrending() {
		switch c.trend.Status {
		case types.StatusIdle, types.StatusError:
			c.trend = TrendingState{Status: types.StatusLoading}
			c.wg.Go(c.fetchTrending)
		}
	}
	return nil
}

func (c *Coordinator) fetchTrending() {
	trending, err := c.trending.Trending(c.ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if err != nil {
		c.logger.WithError(err).Warn("Trending fetch failed")
		c.trend = TrendingState{Status: types.StatusError, Error: trendingErrorPrefix + apperrors.Categorize(err).Message}
		return
	}
	c.trend = readyTrending(trending.Clone())
}

// Brief returns the brief load state
func (c *Coordinator) Brief() BriefState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brief
}

// ActiveTab returns the selected tab
func (c *Coordinator) ActiveTab() types.FeedTab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

// Trending returns the trending load state
func (c *Coordinator) Trending() TrendingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.trend
	t.Coins = append([]models.TrendingCoin(nil), c.trend.Coins...)
	t.NFTs = append([]models.TrendingNFT(nil), c.trend.NFTs...)
	t.Categories = append([]models.TrendingCategory(nil), c.trend.Categories...)
	if c.trend.Empty != nil {
		t.Empty = make(map[string]string, len(c.trend.Empty))
		for k, v := range c.trend.Empty {
			t.Empty[k] = v
		}
	}
	return t
}

// FeedSection is the tabbed personalized content, present for paid tiers only
type FeedSection struct {
	Tabs      []types.FeedTab `json:"tabs"`
	ActiveTab types.FeedTab   `json:"activeTab"`
	HTML      *string         `json:"html,omitempty"`
	Empty     bool            `json:"empty"`
	Trending  *TrendingState  `json:"trending,omitempty"`
}

// Upsell replaces the feed section for the basic tier
type Upsell struct {
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Upgrade types.AccountTier `json:"upgradeTo"`
}

// View is the renderable dashboard
type View struct {
	Brief  BriefState   `json:"brief"`
	Feed   *FeedSection `json:"feed,omitempty"`
	Upsell *Upsell      `json:"upsell,omitempty"`
}

// View renders the dashboard for tier. Feed content is only rendered when the
// tier unlocks it, whatever feeds holds.
func (c *Coordinator) View(tier types.AccountTier, feeds models.NewsFeeds) View {
	view := View{Brief: c.Brief()}

	if !tier.CanViewFeeds() {
		view.Upsell = &Upsell{
			Title:   "Unlock your personalized feed",
			Message: "Upgrade to Pro for watchlist, sector and narrative news plus live trending markets.",
			Upgrade: types.TierPro,
		}
		return view
	}

	tab := c.ActiveTab()
	section := &FeedSection{Tabs: FeedTabs, ActiveTab: tab}
	if tab == types.TabTrending {
		trending := c.Trending()
		section.Trending = &trending
	} else {
		section.HTML, section.Empty = c.renderTab(feeds.ForTab(tab))
	}
	view.Feed = section
	return view
}

func (c *Coordinator) renderTab(src *string) (*string, bool) {
	if src == nil || *src == "" {
		return nil, true
	}
	html, err := RenderMarkdown(*src)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to render feed markdown")
		return nil, true
	}
	return &html, false
}

// Wait blocks until in-flight fetches have finished
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels outstanding fetches and drops their results
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

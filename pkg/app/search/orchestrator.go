package search

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snapstyle/snapstyle-backend/pkg/common"
	"github.com/snapstyle/snapstyle-backend/pkg/domain"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/cache"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/prometheus"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/providers"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/shopping"
	"github.com/snapstyle/snapstyle-backend/pkg/quota"
)

const (
	// minInterCallDelay protects the shared provider rate limit. It is
	// enforced globally, so concurrent passes serialize at the provider
	// boundary.
	minInterCallDelay = time.Second

	// resultFloor triggers the exact-mode fallback query.
	resultFloor = 5

	// referenceResultCount caps the alternatives-mode brand reference
	// query, which only seeds similarity comparison.
	referenceResultCount = 5

	fallbackResultCount = 15
	altResultPadding    = 10
	exactResultPadding  = 15

	// unknownPrice stands in for products whose price could not be
	// extracted. The ranking treats it as unknown, not as cheapest.
	unknownPrice = 0.01
)

//go:generate mockery --name=Orchestrator --dir=. --output=./mocks --filename=orchestrator_mock.go --case=underscore --with-expecter

// Orchestrator turns one item description plus the caller's tier into a
// ranked, deduplicated, capped product list, spending at most two metered
// provider calls per pass.
type Orchestrator interface {
	Search(ctx context.Context, description *domain.ItemDescription, gender, tier, mode string) []domain.Product
	SearchQuery(ctx context.Context, query string, description *domain.ItemDescription, exactMatch bool, resultCount int) []domain.Product
}

type orchestrator struct {
	searcher shopping.Searcher
	tracker  *quota.Tracker
	cache    *cache.TTLMap
	logger   *logrus.Logger

	now   func() time.Time
	sleep func(time.Duration)

	randMu sync.Mutex
	rand   *rand.Rand

	// pacingMu guards lastCall, the timestamp of the most recent outbound
	// provider call across all passes.
	pacingMu sync.Mutex
	lastCall time.Time
}

// OrchestratorOpts injects time, sleep and randomness for tests. All
// fields are optional.
type OrchestratorOpts struct {
	TimeProvider func() time.Time
	Sleep        func(time.Duration)
	Rand         *rand.Rand
}

func NewOrchestrator(
	searcher shopping.Searcher,
	tracker *quota.Tracker,
	searchCache *cache.TTLMap,
	logger *logrus.Logger,
	opts *OrchestratorOpts,
) Orchestrator {
	o := &orchestrator{
		searcher: searcher,
		tracker:  tracker,
		cache:    searchCache,
		logger:   logger,
		now:      time.Now,
		sleep:    time.Sleep,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if opts != nil {
		if opts.TimeProvider != nil {
			o.now = opts.TimeProvider
		}
		if opts.Sleep != nil {
			o.sleep = opts.Sleep
		}
		if opts.Rand != nil {
			o.rand = opts.Rand
		}
	}
	return o
}

// Search runs one orchestration pass. It never returns an error: provider
// failures and an exhausted budget both surface as an empty (or shorter)
// list, which is a valid result for the caller.
func (o *orchestrator) Search(ctx context.Context, description *domain.ItemDescription, gender, tier, mode string) []domain.Product {
	limits := domain.LimitsForTier(tier)
	prefix := genderPrefix(gender)

	var products []domain.Product
	if mode == providers.ModeExact {
		products = o.searchExact(ctx, description, prefix, limits)
	} else {
		products = o.searchAlternatives(ctx, description, prefix, limits)
	}

	if mode == providers.ModeExact {
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].SimilarityPercentage > products[j].SimilarityPercentage
		})
	} else {
		// Cheapest first, unknown prices last. Stable, so provider order
		// breaks ties.
		sort.SliceStable(products, func(i, j int) bool {
			pi, pj := products[i].Price, products[j].Price
			if pi <= unknownPrice {
				return false
			}
			if pj <= unknownPrice {
				return true
			}
			return pi < pj
		})
	}

	if len(products) > limits.MaxTotal {
		products = products[:limits.MaxTotal]
	}

	o.logger.WithFields(logrus.Fields{
		"tier":    tier,
		"mode":    mode,
		"results": len(products),
	}).Debug("orchestration pass complete")
	return products
}

// searchExact issues the primary brand query, then at most one style
// fallback when results come back thin.
func (o *orchestrator) searchExact(ctx context.Context, description *domain.ItemDescription, prefix string, limits domain.TierLimits) []domain.Product {
	primary := buildExactQuery(description, prefix)
	products := o.SearchQuery(ctx, primary, description, true, limits.ExactLimit+exactResultPadding)

	if len(products) >= resultFloor {
		return products
	}

	fallback := buildStyleQuery(description, prefix)
	extra := o.SearchQuery(ctx, fallback, description, true, fallbackResultCount)
	return mergeByID(products, extra)
}

// searchAlternatives optionally seeds with a small brand reference query,
// then issues exactly one alternatives query.
func (o *orchestrator) searchAlternatives(ctx context.Context, description *domain.ItemDescription, prefix string, limits domain.TierLimits) []domain.Product {
	var products []domain.Product
	if description.Brand != "" {
		reference := buildExactQuery(description, prefix)
		products = o.SearchQuery(ctx, reference, description, true, referenceResultCount)
	}

	altQuery := buildAlternativeQuery(description, prefix)
	if limits.IncludeBudget {
		altQuery += " affordable"
	}
	alternatives := o.SearchQuery(ctx, altQuery, description, false, limits.AltLimit+altResultPadding)
	return mergeByID(products, alternatives)
}

// mergeByID appends extra onto base, dropping ids already seen.
// First-seen wins; relative provider order is preserved.
func mergeByID(base, extra []domain.Product) []domain.Product {
	seen := make(map[string]struct{}, len(base))
	for _, p := range base {
		seen[p.ID] = struct{}{}
	}
	for _, p := range extra {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		base = append(base, p)
	}
	return base
}

// SearchQuery executes one provider query through the cache, the quota
// gate and the pacing delay, in that order. A quota miss yields an empty
// uncached result; any provider failure yields an empty result that is
// cached to suppress immediate retries.
func (o *orchestrator) SearchQuery(ctx context.Context, query string, description *domain.ItemDescription, exactMatch bool, resultCount int) []domain.Product {
	query = TruncateQuery(query)
	cacheKey := searchCacheKey(query, resultCount, exactMatch)

	if cached, ok := o.cache.Get(cacheKey); ok {
		prometheus.SearchCacheTotal.WithLabelValues("search", "hit").Inc()
		if products, ok := cached.([]domain.Product); ok {
			o.logger.WithFields(logrus.Fields{
				"query":   query,
				"results": len(products),
			}).Debug("search cache hit")
			return cloneProducts(products)
		}
	}
	prometheus.SearchCacheTotal.WithLabelValues("search", "miss").Inc()

	// Not a real answer, so nothing is cached and the next pass may try
	// again once the budget resets.
	if !o.tracker.CanCall() {
		prometheus.ProviderCallsTotal.WithLabelValues("budget_exhausted").Inc()
		o.logger.WithError(domain.ErrBudgetExhausted).WithField("query", query).Warn("skipping search")
		return []domain.Product{}
	}

	o.pace()
	o.tracker.RecordCall()
	prometheus.QuotaRemaining.Set(float64(o.tracker.Remaining()))

	raw, err := o.searcher.Search(ctx, query, resultCount)
	if err != nil {
		o.logger.WithError(err).WithField("query", query).Error("shopping search failed")
		o.cache.Set(cacheKey, []domain.Product{})
		return []domain.Product{}
	}

	products := o.mapProducts(raw, description, exactMatch)
	o.cache.Set(cacheKey, products)
	return cloneProducts(products)
}

// cloneProducts keeps cached slices out of callers' hands. Every caller
// of SearchQuery sorts or shuffles its result in place, which must not
// reorder the cached copy or race with other readers of it.
func cloneProducts(products []domain.Product) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)
	return out
}

// pace sleeps whatever remains of the minimum inter-call delay since the
// last outbound provider call.
func (o *orchestrator) pace() {
	o.pacingMu.Lock()
	defer o.pacingMu.Unlock()
	if !o.lastCall.IsZero() {
		if elapsed := o.now().Sub(o.lastCall); elapsed < minInterCallDelay {
			o.sleep(minInterCallDelay - elapsed)
		}
	}
	o.lastCall = o.now()
}

func (o *orchestrator) mapProducts(raw []shopping.RawProduct, description *domain.ItemDescription, exactMatch bool) []domain.Product {
	products := make([]domain.Product, 0, len(raw))
	for i, item := range raw {
		link := firstNonEmpty(item.ProductLink, item.Link, item.SourceLink)
		if link == "" {
			// Without a title there is nothing to link to at all.
			if item.Title == "" {
				continue
			}
			link = googleShoppingSearchURL(item.Title, item.Source)
		}

		price := item.ExtractedPrice
		if price <= 0 {
			price = parsePrice(item.Price)
		}
		if price <= 0 {
			price = unknownPrice
		}

		var originalPrice *float64
		if item.ExtractedOldPrice > 0 {
			old := item.ExtractedOldPrice
			originalPrice = &old
		}

		var similarity int
		if exactMatch {
			similarity = o.randBetween(92, 99)
		} else {
			similarity = o.randBetween(75, 89)
		}
		if description.Brand != "" && strings.Contains(strings.ToLower(item.Title), strings.ToLower(description.Brand)) {
			if similarity < 94 {
				similarity = 94
			}
		}

		id := item.ProductID
		if id == "" {
			// Synthesized ids are never recognized as duplicates across
			// calls, an accepted limitation.
			id = fmt.Sprintf("serp_%d_%d", i, o.randBetween(1000, 9999))
		}

		snippet := item.Snippet
		if snippet == "" {
			snippet = truncateRunes(description.DetailedDescription, 100)
		}

		title := item.Title
		if title == "" {
			title = "Unknown Product"
		}
		merchant := item.Source
		if merchant == "" {
			merchant = "Unknown Seller"
		}

		products = append(products, domain.Product{
			ID:                   id,
			Title:                title,
			Description:          snippet,
			Price:                price,
			OriginalPrice:        originalPrice,
			Currency:             "USD",
			ImageURL:             item.Thumbnail,
			Merchant:             merchant,
			AffiliateLink:        link,
			SimilarityPercentage: similarity,
			Brand:                merchant,
			Category:             description.ItemType,
		})
	}
	return products
}

func (o *orchestrator) randBetween(min, max int) int {
	o.randMu.Lock()
	defer o.randMu.Unlock()
	return min + o.rand.Intn(max-min+1)
}

func searchCacheKey(query string, resultCount int, exactMatch bool) string {
	sum := md5.Sum([]byte(fmt.Sprintf(common.SearchKeyPattern, query, resultCount, exactMatch)))
	return hex.EncodeToString(sum[:])
}

func googleShoppingSearchURL(title, source string) string {
	q := url.QueryEscape(strings.TrimSpace(title + " " + source))
	return "https://www.google.com/search?q=" + q + "&tbm=shop"
}

func parsePrice(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "$", ""), ",", ""))
	if s == "" {
		return 0
	}
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return price
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

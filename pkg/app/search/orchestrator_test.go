package search_test

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapstyle/snapstyle-backend/pkg/app/search"
	"github.com/snapstyle/snapstyle-backend/pkg/common"
	"github.com/snapstyle/snapstyle-backend/pkg/domain"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/cache"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/prometheus"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/providers"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/shopping"
	"github.com/snapstyle/snapstyle-backend/pkg/quota"
)

type stubSearcher struct {
	queries []string
	counts  []int
	results [][]shopping.RawProduct
	err     error
}

func (s *stubSearcher) Search(_ context.Context, query string, resultCount int) ([]shopping.RawProduct, error) {
	s.queries = append(s.queries, query)
	s.counts = append(s.counts, resultCount)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) == 0 {
		return nil, nil
	}
	next := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return next, nil
}

func rawItems(ids ...string) []shopping.RawProduct {
	items := make([]shopping.RawProduct, 0, len(ids))
	for i, id := range ids {
		items = append(items, shopping.RawProduct{
			Position:       i + 1,
			ProductID:      id,
			Title:          "Product " + id,
			ExtractedPrice: float64(10 + i),
			Source:         "Shop",
			ProductLink:    "https://shop.example/" + id,
		})
	}
	return items
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newOrchestrator(t *testing.T, searcher shopping.Searcher, opts *search.OrchestratorOpts) (search.Orchestrator, *cache.TTLMap, *quota.Tracker) {
	t.Helper()
	logger := testLogger()
	tracker := quota.NewTracker(quota.DefaultDailyLimit, logger, nil)
	searchCache := cache.NewTTLMap(common.SearchCacheTTL)
	if opts == nil {
		opts = &search.OrchestratorOpts{}
	}
	if opts.Sleep == nil {
		opts.Sleep = func(time.Duration) {}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	return search.NewOrchestrator(searcher, tracker, searchCache, logger, opts), searchCache, tracker
}

func sneakersDescription() *domain.ItemDescription {
	return &domain.ItemDescription{
		ItemType: "sneakers",
		Brand:    "Acme",
		Style:    "casual",
		Colors:   []string{"red"},
		Material: "suede",
	}
}

func TestSearch_ExactMode_SingleCallWhenEnoughResults(t *testing.T) {
	searcher := &stubSearcher{results: [][]shopping.RawProduct{rawItems("a", "b", "c", "d", "e")}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	products := orchestrator.Search(context.Background(), sneakersDescription(), "male", domain.TierFree, providers.ModeExact)

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, "men's Acme red sneakers", searcher.queries[0])
	assert.Equal(t, 25, searcher.counts[0]) // exact limit 10 + padding
	assert.Len(t, products, 5)
}

func TestSearch_ExactMode_FallbackCappedAtTwoCalls(t *testing.T) {
	searcher := &stubSearcher{results: [][]shopping.RawProduct{
		rawItems("a", "b"),
		rawItems("a", "c"),
	}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	products := orchestrator.Search(context.Background(), sneakersDescription(), "either", domain.TierFree, providers.ModeExact)

	require.Len(t, searcher.queries, 2)
	assert.Equal(t, "Acme red sneakers", searcher.queries[0])
	assert.Equal(t, "casual red sneakers suede", searcher.queries[1])
	assert.Equal(t, 15, searcher.counts[1])

	// Overlapping id a survives exactly once and the list is ranked by
	// similarity, best first.
	require.Len(t, products, 3)
	ids := map[string]int{}
	for _, p := range products {
		ids[p.ID]++
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, ids)
	for i := 1; i < len(products); i++ {
		assert.GreaterOrEqual(t, products[i-1].SimilarityPercentage, products[i].SimilarityPercentage)
	}
}

func TestSearch_ExactMode_NeverMoreThanTwoCalls(t *testing.T) {
	searcher := &stubSearcher{} // always empty
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	products := orchestrator.Search(context.Background(), sneakersDescription(), "either", domain.TierPro, providers.ModeExact)

	assert.Len(t, searcher.queries, 2)
	assert.Empty(t, products)
}

func TestSearch_Alternatives_OneCallWithoutBrand(t *testing.T) {
	searcher := &stubSearcher{results: [][]shopping.RawProduct{rawItems("x", "y")}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	description := sneakersDescription()
	description.Brand = ""
	orchestrator.Search(context.Background(), description, "either", domain.TierFree, providers.ModeAlternatives)

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, "red sneakers casual", searcher.queries[0])
}

func TestSearch_Alternatives_BrandReferenceThenAlternatives(t *testing.T) {
	searcher := &stubSearcher{results: [][]shopping.RawProduct{
		rawItems("ref1"),
		rawItems("alt1", "alt2"),
	}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	orchestrator.Search(context.Background(), sneakersDescription(), "female", domain.TierBasic, providers.ModeAlternatives)

	require.Len(t, searcher.queries, 2)
	assert.Equal(t, "women's Acme red sneakers", searcher.queries[0])
	assert.Equal(t, 5, searcher.counts[0])
	// Basic tier permits budget queries.
	assert.Equal(t, "women's red sneakers casual affordable", searcher.queries[1])
	assert.Equal(t, 30, searcher.counts[1]) // alt limit 20 + padding
}

func TestSearch_Alternatives_FreeTierOmitsBudgetTerm(t *testing.T) {
	searcher := &stubSearcher{results: [][]shopping.RawProduct{rawItems("alt1")}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	description := sneakersDescription()
	description.Brand = ""
	orchestrator.Search(context.Background(), description, "either", domain.TierFree, providers.ModeAlternatives)

	require.Len(t, searcher.queries, 1)
	assert.NotContains(t, searcher.queries[0], "affordable")
}

func TestSearch_Alternatives_PriceAscendingZeroLast(t *testing.T) {
	items := []shopping.RawProduct{
		{ProductID: "pricey", Title: "Pricey", ExtractedPrice: 90, ProductLink: "https://s/p"},
		{ProductID: "noprice", Title: "No price", ProductLink: "https://s/n"},
		{ProductID: "cheap", Title: "Cheap", ExtractedPrice: 12, ProductLink: "https://s/c"},
		{ProductID: "bargain", Title: "Bargain", ExtractedPrice: 0.05, ProductLink: "https://s/g"},
	}
	searcher := &stubSearcher{results: [][]shopping.RawProduct{items}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	description := sneakersDescription()
	description.Brand = ""
	products := orchestrator.Search(context.Background(), description, "either", domain.TierFree, providers.ModeAlternatives)

	require.Len(t, products, 4)
	// A genuine sub-dollar price still ranks, the placeholder does not.
	assert.Equal(t, "bargain", products[0].ID)
	assert.Equal(t, "cheap", products[1].ID)
	assert.Equal(t, "pricey", products[2].ID)
	assert.Equal(t, "noprice", products[3].ID)
	assert.Equal(t, 0.01, products[3].Price)
}

func TestSearch_FreeTierCapEndToEnd(t *testing.T) {
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%02d", i)
	}
	searcher := &stubSearcher{results: [][]shopping.RawProduct{rawItems(ids...)}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	description := &domain.ItemDescription{ItemType: "sneakers", Brand: "Acme", Colors: []string{"red"}}
	products := orchestrator.Search(context.Background(), description, "either", domain.TierFree, providers.ModeExact)

	require.Len(t, products, 15)
	seen := map[string]bool{}
	for i, p := range products {
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, products[i-1].SimilarityPercentage, p.SimilarityPercentage)
		}
	}
}

func TestSearchQuery_CacheHitSkipsProvider(t *testing.T) {
	searcher := &stubSearcher{results: [][]shopping.RawProduct{rawItems("a")}}
	orchestrator, _, tracker := newOrchestrator(t, searcher, nil)

	first := orchestrator.SearchQuery(context.Background(), "red sneakers", sneakersDescription(), true, 10)
	second := orchestrator.SearchQuery(context.Background(), "red sneakers", sneakersDescription(), true, 10)

	assert.Len(t, searcher.queries, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, quota.DefaultDailyLimit-1, tracker.Remaining())
}

func TestSearchQuery_CacheHitReturnsIndependentSlice(t *testing.T) {
	searcher := &stubSearcher{results: [][]shopping.RawProduct{rawItems("a", "b", "c")}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	first := orchestrator.SearchQuery(context.Background(), "red sneakers", sneakersDescription(), true, 10)
	require.Len(t, first, 3)

	// Callers sort and shuffle results in place; that must not leak into
	// the cached copy other requests read.
	first[0], first[2] = first[2], first[0]
	first[1].Title = "mutated"

	second := orchestrator.SearchQuery(context.Background(), "red sneakers", sneakersDescription(), true, 10)
	require.Len(t, searcher.queries, 1)
	require.Len(t, second, 3)
	assert.Equal(t, "a", second[0].ID)
	assert.Equal(t, "Product b", second[1].Title)
	assert.Equal(t, "c", second[2].ID)
}

func TestSearchQuery_QuotaExhaustedNotCached(t *testing.T) {
	searcher := &stubSearcher{results: [][]shopping.RawProduct{rawItems("a")}}
	logger := testLogger()
	tracker := quota.NewTracker(1, logger, nil)
	tracker.RecordCall()
	searchCache := cache.NewTTLMap(common.SearchCacheTTL)
	orchestrator := search.NewOrchestrator(searcher, tracker, searchCache, logger, &search.OrchestratorOpts{
		Sleep: func(time.Duration) {},
	})

	before := testutil.ToFloat64(prometheus.ProviderCallsTotal.WithLabelValues("budget_exhausted"))
	products := orchestrator.SearchQuery(context.Background(), "red sneakers", sneakersDescription(), true, 10)

	assert.Empty(t, products)
	assert.Empty(t, searcher.queries)
	// A budget miss is not a real answer, so the next pass may retry.
	assert.Equal(t, 0, searchCache.Len())
	after := testutil.ToFloat64(prometheus.ProviderCallsTotal.WithLabelValues("budget_exhausted"))
	assert.Equal(t, 1.0, after-before)
}

func TestSearchQuery_FailureCachedEmpty(t *testing.T) {
	searcher := &stubSearcher{err: domain.ErrProviderUnavailable}
	orchestrator, searchCache, _ := newOrchestrator(t, searcher, nil)

	products := orchestrator.SearchQuery(context.Background(), "red sneakers", sneakersDescription(), true, 10)

	assert.Empty(t, products)
	assert.Equal(t, 1, searchCache.Len())

	// The cached empty result suppresses the immediate retry.
	again := orchestrator.SearchQuery(context.Background(), "red sneakers", sneakersDescription(), true, 10)
	assert.Empty(t, again)
	assert.Len(t, searcher.queries, 1)
}

func TestSearchQuery_PacingBetweenCalls(t *testing.T) {
	searcher := &stubSearcher{}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var slept []time.Duration
	orchestrator, _, _ := newOrchestrator(t, searcher, &search.OrchestratorOpts{
		TimeProvider: func() time.Time { return now },
		Sleep:        func(d time.Duration) { slept = append(slept, d) },
	})

	orchestrator.SearchQuery(context.Background(), "first query", sneakersDescription(), true, 10)
	orchestrator.SearchQuery(context.Background(), "second query", sneakersDescription(), true, 10)

	// The first call sees no predecessor; the second must wait out the
	// full interval because the clock did not advance.
	require.Len(t, slept, 1)
	assert.Equal(t, time.Second, slept[0])
}

func TestSearchQuery_NoPacingAfterInterval(t *testing.T) {
	searcher := &stubSearcher{}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var slept []time.Duration
	orchestrator, _, _ := newOrchestrator(t, searcher, &search.OrchestratorOpts{
		TimeProvider: func() time.Time { return now },
		Sleep:        func(d time.Duration) { slept = append(slept, d) },
	})

	orchestrator.SearchQuery(context.Background(), "first query", sneakersDescription(), true, 10)
	now = now.Add(1500 * time.Millisecond)
	orchestrator.SearchQuery(context.Background(), "second query", sneakersDescription(), true, 10)

	assert.Empty(t, slept)
}

func TestSearchQuery_BrandInTitleRaisesSimilarity(t *testing.T) {
	items := []shopping.RawProduct{
		{ProductID: "branded", Title: "Acme Runner Deluxe", ExtractedPrice: 50, ProductLink: "https://s/b"},
	}
	searcher := &stubSearcher{results: [][]shopping.RawProduct{items}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	products := orchestrator.SearchQuery(context.Background(), "acme sneakers", sneakersDescription(), false, 10)

	require.Len(t, products, 1)
	assert.GreaterOrEqual(t, products[0].SimilarityPercentage, 94)
}

func TestSearchQuery_LinkFallbackAndSkip(t *testing.T) {
	items := []shopping.RawProduct{
		{ProductID: "nolink", Title: "Linkless Shoe", Source: "Shop", ExtractedPrice: 20},
		{ProductID: "nothing", ExtractedPrice: 20}, // no link, no title: dropped
	}
	searcher := &stubSearcher{results: [][]shopping.RawProduct{items}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	products := orchestrator.SearchQuery(context.Background(), "shoes", sneakersDescription(), false, 10)

	require.Len(t, products, 1)
	assert.Contains(t, products[0].AffiliateLink, "https://www.google.com/search?q=")
	assert.Contains(t, products[0].AffiliateLink, "tbm=shop")
}

func TestSearchQuery_PriceStringParsedWhenNoExtractedPrice(t *testing.T) {
	items := []shopping.RawProduct{
		{ProductID: "strprice", Title: "Shoe", Price: "$1,299.99", ProductLink: "https://s/1"},
	}
	searcher := &stubSearcher{results: [][]shopping.RawProduct{items}}
	orchestrator, _, _ := newOrchestrator(t, searcher, nil)

	products := orchestrator.SearchQuery(context.Background(), "shoes", sneakersDescription(), true, 10)

	require.Len(t, products, 1)
	assert.Equal(t, 1299.99, products[0].Price)
}

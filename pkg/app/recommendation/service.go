package recommendation

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snapstyle/snapstyle-backend/pkg/app/search"
	"github.com/snapstyle/snapstyle-backend/pkg/common"
	"github.com/snapstyle/snapstyle-backend/pkg/domain"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/cache"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/prometheus"
)

const (
	maxPersonalizedQueries = 3
	personalizedQueryCount = 4
	sectionQueryCount      = 12
)

// SectionConfig governs the "For You" surface for one tier.
type SectionConfig struct {
	SectionsCount       int
	ProductsPerSection  int
	IncludeExclusive    bool
	IncludeLuxury       bool
	IncludePersonalized bool
	Label               string
	HeaderTitle         string
	HeaderSubtitle      string
}

var sectionConfigs = map[string]SectionConfig{
	domain.TierFree: {
		SectionsCount:      3,
		ProductsPerSection: 6,
		Label:              "Free",
		HeaderTitle:        "Your Vibe Check",
		HeaderSubtitle:     "Trending picks that match your aesthetic",
	},
	domain.TierBasic: {
		SectionsCount:       4,
		ProductsPerSection:  8,
		IncludePersonalized: true,
		Label:               "Basic",
		HeaderTitle:         "Curated For You",
		HeaderSubtitle:      "Personalized recommendations based on your style",
	},
	domain.TierPro: {
		SectionsCount:       5,
		ProductsPerSection:  10,
		IncludeExclusive:    true,
		IncludeLuxury:       true,
		IncludePersonalized: true,
		Label:               "Pro",
		HeaderTitle:         "Pro Picks",
		HeaderSubtitle:      "Premium AI-curated looks just for you",
	},
	domain.TierUnlimited: {
		SectionsCount:       6,
		ProductsPerSection:  12,
		IncludeExclusive:    true,
		IncludeLuxury:       true,
		IncludePersonalized: true,
		Label:               "Unlimited",
		HeaderTitle:         "Unlimited Style",
		HeaderSubtitle:      "Exclusive AI-curated recommendations with luxury picks",
	},
}

// ConfigForTier returns the section layout for a tier name, falling back
// to the free tier.
func ConfigForTier(tier string) SectionConfig {
	if cfg, ok := sectionConfigs[tier]; ok {
		return cfg
	}
	return sectionConfigs[domain.TierFree]
}

var trendingStyles = []string{
	"streetwear", "y2k fashion", "aesthetic", "vintage", "skater style",
	"gorpcore", "clean girl aesthetic", "old money style",
	"coastal granddaughter", "grunge",
}

// TierMetadata labels the response for the client's header rendering.
type TierMetadata struct {
	UserTier       string `json:"user_tier"`
	TierLabel      string `json:"tier_label"`
	HeaderTitle    string `json:"header_title"`
	HeaderSubtitle string `json:"header_subtitle"`
	IsPremium      bool   `json:"is_premium"`
}

// Section is one titled product row of the "For You" page.
type Section struct {
	Title       string           `json:"title"`
	Subtitle    string           `json:"subtitle"`
	Products    []domain.Product `json:"products"`
	TierMeta    *TierMetadata    `json:"tier_metadata,omitempty"`
	RateLimited bool             `json:"rate_limited,omitempty"`
}

//go:generate mockery --name=Service --dir=. --output=./mocks --filename=service_mock.go --case=underscore --with-expecter

// Service assembles the recommendation surfaces on top of the search
// orchestrator's cache/quota/pacing discipline.
type Service interface {
	Sections(ctx context.Context, userID, tier string, profile *domain.PreferenceProfile) []Section
	Personalized(ctx context.Context, profile *domain.PreferenceProfile, cfg SectionConfig) []domain.Product
	Recommend(ctx context.Context, profile *domain.PreferenceProfile, limit int) []domain.Product
	InvalidateUser(userID string) bool
}

type service struct {
	orchestrator search.Orchestrator
	sections     *cache.TTLMap
	logger       *logrus.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

type ServiceOpts struct {
	Rand *rand.Rand
}

func NewService(orchestrator search.Orchestrator, sectionsCache *cache.TTLMap, logger *logrus.Logger, opts *ServiceOpts) Service {
	s := &service{
		orchestrator: orchestrator,
		sections:     sectionsCache,
		logger:       logger,
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if opts != nil && opts.Rand != nil {
		s.rand = opts.Rand
	}
	return s
}

// Sections builds the tier-shaped "For You" page, served from the
// per-user sections cache when fresh.
func (s *service) Sections(ctx context.Context, userID, tier string, profile *domain.PreferenceProfile) []Section {
	cacheKey := fmt.Sprintf(common.SectionsKeyPattern, userID, tier)
	if cached, ok := s.sections.Get(cacheKey); ok {
		if sections, ok := cached.([]Section); ok {
			prometheus.SearchCacheTotal.WithLabelValues("sections", "hit").Inc()
			return sections
		}
	}
	prometheus.SearchCacheTotal.WithLabelValues("sections", "miss").Inc()

	cfg := ConfigForTier(tier)
	meta := &TierMetadata{
		UserTier:       tier,
		TierLabel:      cfg.Label,
		HeaderTitle:    cfg.HeaderTitle,
		HeaderSubtitle: cfg.HeaderSubtitle,
		IsPremium:      domain.IsPremium(tier),
	}

	var sections []Section

	trendingStyle := s.pick(trendingStyles)
	trending := s.sectionProducts(ctx, "trending "+trendingStyle+" fashion hoodie sneakers 2026", cfg)
	if len(trending) > 0 {
		sections = append(sections, Section{
			Title:    "Trending Now",
			Subtitle: "Hot " + trendingStyle + " picks",
			Products: trending,
		})
	}

	if profile != nil && (profile.HasHistory || profile.HasFavorites) {
		personalized := s.Personalized(ctx, profile, cfg)
		if len(personalized) > 0 {
			if len(personalized) > cfg.ProductsPerSection {
				personalized = personalized[:cfg.ProductsPerSection]
			}
			sections = append(sections, Section{
				Title:    "Based on Your Style",
				Subtitle: personalizedSubtitle(profile),
				Products: personalized,
			})
		}
	} else {
		starter := s.sectionProducts(ctx, "teen streetwear hoodie sneakers jeans essentials", cfg)
		if len(starter) > 0 {
			sections = append(sections, Section{
				Title:    "Start Your Collection",
				Subtitle: "Essential pieces to build your wardrobe",
				Products: starter,
			})
		}
	}

	deals := s.sectionProducts(ctx, "sale fashion hoodie sneakers jeans under $60", cfg)
	if len(deals) > 0 {
		sections = append(sections, Section{
			Title:    "Deals For You",
			Subtitle: "Great prices on standout pieces",
			Products: deals,
		})
	}

	if domain.IsPremium(tier) {
		fresh := s.sectionProducts(ctx, "new release 2026 sneakers hoodie streetwear", cfg)
		if len(fresh) > 0 {
			sections = append(sections, Section{
				Title:    "Fresh Drops",
				Subtitle: "Just dropped this week",
				Products: fresh,
			})
		}
	}

	if cfg.IncludeLuxury {
		luxury := s.sectionProducts(ctx, "designer premium luxury streetwear sneakers hoodie", cfg)
		if len(luxury) > 0 {
			sections = append(sections, Section{
				Title:    "Luxury Picks",
				Subtitle: "Premium pieces worth the investment",
				Products: luxury,
			})
		}
	}

	if cfg.IncludeExclusive && tier == domain.TierUnlimited {
		exclusive := s.sectionProducts(ctx, "limited edition exclusive rare vintage sneakers hoodie", cfg)
		if len(exclusive) > 0 {
			sections = append(sections, Section{
				Title:    "Exclusive Finds",
				Subtitle: "Rare pieces for the true collector",
				Products: exclusive,
			})
		}
	}

	// Everything above may have been absorbed into empty results by the
	// quota gate. One last broad attempt, then static fallbacks.
	if len(sections) == 0 {
		discover := s.sectionProducts(ctx, "trendy teen fashion hoodie sneakers jeans", cfg)
		if len(discover) > 0 {
			sections = append(sections, Section{
				Title:    "Discover",
				Subtitle: "Start exploring styles",
				Products: discover,
			})
		} else {
			sections = append(sections, Section{
				Title:       "Coming Soon",
				Subtitle:    "Personalized recommendations are being prepared for you",
				Products:    fallbackProducts(),
				RateLimited: true,
			})
		}
	}

	sections[0].TierMeta = meta
	s.sections.Set(cacheKey, sections)
	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"tier":     tier,
		"sections": len(sections),
	}).Debug("recommendation sections assembled")
	return sections
}

// Personalized runs up to three deduplicated queries seeded from the
// profile's top weighted entries and tags the results with a boosted
// similarity range.
func (s *service) Personalized(ctx context.Context, profile *domain.PreferenceProfile, cfg SectionConfig) []domain.Product {
	queries := s.personalizedQueries(profile)

	var products []domain.Product
	seen := make(map[string]struct{})
	target := cfg.ProductsPerSection * 2

	for _, query := range queries {
		found := s.orchestrator.SearchQuery(ctx, query, descriptionForQuery(query), false, personalizedQueryCount)
		for _, p := range found {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			p.SimilarityPercentage = s.randBetween(85, 98)
			products = append(products, p)
			if len(products) >= target {
				break
			}
		}
		if len(products) >= target {
			break
		}
	}

	// Keep the head in relevance order and shuffle only the tail, so the
	// list stays fresh without burying the best matches.
	if head := cfg.ProductsPerSection / 2; len(products) > cfg.ProductsPerSection && head < len(products) {
		tail := products[head:]
		s.randMu.Lock()
		s.rand.Shuffle(len(tail), func(i, j int) {
			tail[i], tail[j] = tail[j], tail[i]
		})
		s.randMu.Unlock()
	}
	return products
}

// personalizedQueries derives up to maxPersonalizedQueries search queries
// from the strongest profile entries, deduplicated in insertion order.
func (s *service) personalizedQueries(profile *domain.PreferenceProfile) []string {
	var queries []string

	topItems := profile.TopItemTypes
	if len(topItems) > 4 {
		topItems = topItems[:4]
	}
	topColors := profile.TopColors
	if len(topColors) > 2 {
		topColors = topColors[:2]
	}

	for _, item := range topItems {
		if len(topColors) > 0 {
			queries = append(queries, s.pick(topColors)+" "+item)
		} else {
			queries = append(queries, "trendy "+item)
		}
	}

	topStyles := profile.TopStyles
	if len(topStyles) > 2 {
		topStyles = topStyles[:2]
	}
	for _, style := range topStyles {
		if len(topItems) > 0 {
			queries = append(queries, style+" "+s.pick(topItems))
		} else {
			queries = append(queries, style+" clothing")
		}
	}

	topBrands := profile.TopBrands
	if len(topBrands) > 3 {
		topBrands = topBrands[:3]
	}
	for _, brand := range topBrands {
		if len(topItems) > 0 {
			queries = append(queries, brand+" "+s.pick(topItems))
		} else {
			queries = append(queries, brand+" fashion")
		}
	}

	terms := profile.SearchTerms
	if len(terms) > 3 {
		terms = terms[:3]
	}
	for _, term := range terms {
		if len(term) > 3 {
			queries = append(queries, term)
		}
	}

	if len(topItems) > 0 {
		if profile.AvgPrice < 50 {
			queries = append(queries, "affordable "+topItems[0]+" under $50")
		} else if profile.AvgPrice > 150 {
			queries = append(queries, "premium "+topItems[0])
		}
	}

	if len(queries) == 0 {
		queries = []string{"streetwear hoodie", "trendy sneakers", "aesthetic jeans"}
	}

	seen := make(map[string]struct{}, len(queries))
	deduped := queries[:0]
	for _, q := range queries {
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		deduped = append(deduped, q)
		if len(deduped) == maxPersonalizedQueries {
			break
		}
	}
	return deduped
}

// Recommend returns a flat personalized product list. New users get a
// varied trending mix instead.
func (s *service) Recommend(ctx context.Context, profile *domain.PreferenceProfile, limit int) []domain.Product {
	if profile == nil || !profile.HasHistory {
		picks := s.pickN(clothingCategories, 3)
		query := "trending teen " + strings.Join(picks, " ")
		products := s.orchestrator.SearchQuery(ctx, query, descriptionForQuery(query), false, sectionQueryCount)
		s.shuffle(products)
		if len(products) > limit {
			products = products[:limit]
		}
		return products
	}

	var parts []string
	if len(profile.TopItemTypes) > 0 {
		parts = append(parts, profile.TopItemTypes[0])
	}
	if len(profile.TopColors) > 0 {
		parts = append(parts, profile.TopColors[0])
	}
	if len(profile.TopStyles) > 0 {
		parts = append(parts, profile.TopStyles[0])
	}
	query := "fashion clothing"
	if len(parts) > 0 {
		query = strings.Join(parts, " ")
	}
	return s.orchestrator.SearchQuery(ctx, query, descriptionForQuery(query), false, limit)
}

// InvalidateUser drops every cached section variant for one user, so the
// next "For You" load reflects their latest activity.
func (s *service) InvalidateUser(userID string) bool {
	count := s.sections.InvalidatePrefix(fmt.Sprintf(common.SectionsKeyPrefix, userID))
	if count > 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"entries": count,
		}).Debug("recommendation cache invalidated")
	}
	return count > 0
}

func (s *service) sectionProducts(ctx context.Context, query string, cfg SectionConfig) []domain.Product {
	products := s.orchestrator.SearchQuery(ctx, query, descriptionForQuery(query), false, sectionQueryCount)
	s.shuffle(products)
	if len(products) > cfg.ProductsPerSection {
		products = products[:cfg.ProductsPerSection]
	}
	return products
}

func (s *service) shuffle(products []domain.Product) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	s.rand.Shuffle(len(products), func(i, j int) {
		products[i], products[j] = products[j], products[i]
	})
}

func (s *service) pick(values []string) string {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return values[s.rand.Intn(len(values))]
}

func (s *service) pickN(values []string, n int) []string {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	if n > len(values) {
		n = len(values)
	}
	picks := make([]string, len(values))
	copy(picks, values)
	s.rand.Shuffle(len(picks), func(i, j int) {
		picks[i], picks[j] = picks[j], picks[i]
	})
	return picks[:n]
}

func (s *service) randBetween(min, max int) int {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return min + s.rand.Intn(max-min+1)
}

func personalizedSubtitle(profile *domain.PreferenceProfile) string {
	var parts []string
	if len(profile.TopColors) > 0 {
		parts = append(parts, profile.TopColors[0])
	}
	if len(profile.TopStyles) > 0 {
		parts = append(parts, profile.TopStyles[0])
	}
	if len(parts) == 0 {
		return "Curated picks matching your unique vibe"
	}
	return "Curated for your " + strings.Join(parts, " & ") + " aesthetic"
}

// descriptionForQuery gives the shared search path enough context to
// categorize results from a free-form recommendation query.
func descriptionForQuery(query string) *domain.ItemDescription {
	category := "fashion"
	if fields := strings.Fields(query); len(fields) > 0 {
		category = fields[0]
	}
	return &domain.ItemDescription{ItemType: category}
}

func fallbackProducts() []domain.Product {
	return []domain.Product{
		{
			ID:                   "fallback_1",
			Title:                "Classic Streetwear Hoodie",
			Description:          "Comfortable oversized hoodie perfect for everyday wear",
			Price:                45.99,
			Currency:             "USD",
			ImageURL:             "https://via.placeholder.com/300x300?text=Hoodie",
			Merchant:             "Style Shop",
			AffiliateLink:        "#",
			SimilarityPercentage: 90,
			Brand:                "Style Shop",
			Category:             "hoodie",
		},
		{
			ID:                   "fallback_2",
			Title:                "Trendy Sneakers",
			Description:          "Versatile sneakers that go with any outfit",
			Price:                89.99,
			Currency:             "USD",
			ImageURL:             "https://via.placeholder.com/300x300?text=Sneakers",
			Merchant:             "Shoe Hub",
			AffiliateLink:        "#",
			SimilarityPercentage: 88,
			Brand:                "Shoe Hub",
			Category:             "sneakers",
		},
		{
			ID:                   "fallback_3",
			Title:                "Baggy Jeans",
			Description:          "Relaxed fit denim with vintage vibes",
			Price:                59.99,
			Currency:             "USD",
			ImageURL:             "https://via.placeholder.com/300x300?text=Jeans",
			Merchant:             "Denim Co",
			AffiliateLink:        "#",
			SimilarityPercentage: 85,
			Brand:                "Denim Co",
			Category:             "jeans",
		},
	}
}

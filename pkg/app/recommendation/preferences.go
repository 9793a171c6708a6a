package recommendation

import (
	"strings"

	"github.com/snapstyle/snapstyle-backend/pkg/domain"
)

// Vocabulary used to mine preference hints out of saved-product titles.
// Saved products carry only a title and a category, so color and style
// have to be recognized by word.
var (
	clothingCategories = []string{
		"hoodies", "sneakers", "jeans", "joggers", "t-shirts", "jackets",
		"sweatpants", "cargo pants", "oversized shirts", "bomber jackets",
		"high top sneakers", "cropped hoodies", "baggy jeans", "track pants",
	}

	colorWords = []string{
		"black", "white", "blue", "red", "green", "pink", "purple",
		"grey", "gray", "navy", "beige", "brown", "orange", "yellow",
		"cream", "olive", "burgundy", "tan", "khaki",
	}

	styleWords = []string{
		"streetwear", "vintage", "casual", "sporty", "athletic",
		"oversized", "slim", "baggy", "cropped", "high-waisted",
	}
)

const (
	defaultAvgPrice   = 75
	maxSearchTerms    = 10
	termsPerAnalysis  = 3
	topItemTypesCount = 5
	topColorsCount    = 3
	topStylesCount    = 3
	topBrandsCount    = 5
)

// BuildProfile aggregates a user's signals into weighted preference maps.
// Saves weigh 3x, searches 2x, passive views 1x.
func BuildProfile(searches []domain.SearchSignal, saved []domain.SavedSignal, views []domain.ViewSignal) *domain.PreferenceProfile {
	profile := &domain.PreferenceProfile{
		ItemTypes: make(map[string]int),
		Colors:    make(map[string]int),
		Styles:    make(map[string]int),
		Brands:    make(map[string]int),
		Materials: make(map[string]int),
	}

	var prices []float64
	seenTerms := make(map[string]struct{})

	for _, s := range searches {
		weight := domain.SearchedSignalWeight
		if s.SearchType != "" {
			profile.ItemTypes[strings.ToLower(s.SearchType)] += weight
		}
		if s.Analysis == nil {
			continue
		}
		a := s.Analysis
		if a.ItemType != "" {
			profile.ItemTypes[strings.ToLower(a.ItemType)] += weight
		}
		for _, color := range a.Colors {
			profile.Colors[strings.ToLower(color)] += weight
		}
		if a.Style != "" {
			profile.Styles[strings.ToLower(a.Style)] += weight
		}
		if a.Brand != "" {
			profile.Brands[a.Brand] += weight
		}
		if a.Material != "" {
			profile.Materials[strings.ToLower(a.Material)] += weight
		}
		for i, term := range a.SearchTerms {
			if i >= termsPerAnalysis || len(profile.SearchTerms) >= maxSearchTerms {
				break
			}
			if _, ok := seenTerms[term]; ok {
				continue
			}
			seenTerms[term] = struct{}{}
			profile.SearchTerms = append(profile.SearchTerms, term)
		}
	}

	for _, s := range saved {
		weight := domain.SavedSignalWeight
		title := strings.ToLower(s.Title)
		if s.Category != "" {
			profile.ItemTypes[strings.ToLower(s.Category)] += weight
		}
		for _, category := range clothingCategories {
			if strings.Contains(title, category) {
				profile.ItemTypes[category] += weight
			}
		}
		if s.Brand != "" {
			profile.Brands[s.Brand] += weight
		}
		for _, color := range colorWords {
			if strings.Contains(title, color) {
				profile.Colors[color] += weight
			}
		}
		for _, style := range styleWords {
			if strings.Contains(title, style) {
				profile.Styles[style] += weight
			}
		}
		if s.Price > 0 {
			prices = append(prices, s.Price)
		}
	}

	for _, v := range views {
		if v.Category != "" {
			profile.ItemTypes[v.Category] += domain.ViewedSignalWeight
		}
		if v.Price > 0 {
			prices = append(prices, v.Price)
		}
	}

	profile.TopItemTypes = domain.TopN(profile.ItemTypes, topItemTypesCount)
	profile.TopColors = domain.TopN(profile.Colors, topColorsCount)
	profile.TopStyles = domain.TopN(profile.Styles, topStylesCount)
	profile.TopBrands = domain.TopN(profile.Brands, topBrandsCount)

	profile.AvgPrice = defaultAvgPrice
	if len(prices) > 0 {
		var sum float64
		for _, p := range prices {
			sum += p
		}
		profile.AvgPrice = sum / float64(len(prices))
	}

	profile.HasHistory = len(searches) > 0
	profile.HasFavorites = len(saved) > 0
	profile.TotalSignals = len(searches) + len(saved) + len(views)
	return profile
}

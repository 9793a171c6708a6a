package domain

// ItemDescription is the structured output of the AI description provider
// for one uploaded photo or text query. It is immutable once produced.
type ItemDescription struct {
	ItemType            string   `json:"item_type"`
	Brand               string   `json:"brand,omitempty"`
	Style               string   `json:"style"`
	DetailedDescription string   `json:"detailed_description"`
	Colors              []string `json:"colors"`
	Material            string   `json:"material,omitempty"`
	KeyFeatures         []string `json:"key_features"`
	EstimatedBrandTier  string   `json:"estimated_brand_tier"`
	SeasonOccasion      string   `json:"season_occasion"`
	SearchTerms         []string `json:"search_terms"`
	PriceEstimate       string   `json:"price_estimate"`
}

// PrimaryColor returns the first detected color, or an empty string.
func (d *ItemDescription) PrimaryColor() string {
	if len(d.Colors) == 0 {
		return ""
	}
	return d.Colors[0]
}

package domain

// Product is one shopping result returned to the caller. Value type,
// collected into slices and persisted by collaborators outside this core.
type Product struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Price                float64  `json:"price"`
	OriginalPrice        *float64 `json:"original_price,omitempty"`
	Currency             string   `json:"currency"`
	ImageURL             string   `json:"image_url"`
	Merchant             string   `json:"merchant"`
	AffiliateLink        string   `json:"affiliate_link"`
	SimilarityPercentage int      `json:"similarity_percentage"`
	Brand                string   `json:"brand,omitempty"`
	Category             string   `json:"category,omitempty"`
}

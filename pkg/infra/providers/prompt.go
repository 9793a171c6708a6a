package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/snapstyle/snapstyle-backend/pkg/domain"
)

const exactModeContext = `SEARCH MODE: EXACT MATCH
The user wants to find THIS EXACT ITEM online.
Focus heavily on brand identification (logos, labels, tags, distinctive
design elements), the specific model or product name if visible, and
unique identifying features. Generate search terms that will find the
exact product, including brand name and model when known.`

const alternativesModeContext = `SEARCH MODE: FIND ALTERNATIVES
The user wants SIMILAR items or CHEAPER ALTERNATIVES.
Focus on style, design, and key features so comparable items can be found
across brands and price points. Generate descriptive search terms and
general category terms for broader results.`

const responseSchema = `Respond in JSON format:
{
    "item_type": "specific type (e.g., 'wireless headphones', 'sneakers', 'backpack')",
    "brand": "brand name if visible, or null if unknown",
    "style": "style/design category (e.g., 'modern', 'vintage', 'minimalist', 'casual')",
    "detailed_description": "2-3 sentence item summary covering key features",
    "colors": ["primary color", "secondary color"],
    "material": "material type if identifiable",
    "key_features": ["feature 1", "feature 2", "feature 3"],
    "estimated_brand_tier": "luxury/premium/mid-range/budget",
    "season_occasion": "when/where to use this",
    "search_terms": ["keyword 1", "keyword 2", "keyword 3"],
    "price_estimate": "estimated price range in USD"
}`

// BuildPrompt assembles the analysis prompt for a tier and search mode.
// Higher tiers ask for deeper value and quality analysis; the response
// schema is identical across tiers.
func BuildPrompt(tier, mode string) string {
	searchContext := alternativesModeContext
	if mode == ModeExact {
		searchContext = exactModeContext
	}

	var tasks string
	switch tier {
	case domain.TierBasic:
		tasks = `You are an advanced product intelligence AI trained in price-to-quality analysis.
Identify the item in detail (style category, era influence, material and
construction clues), reverse-engineer what makes it expensive, and
estimate realistic retail value.`
	case domain.TierPro, domain.TierUnlimited:
		tasks = `You are an expert fashion and product analyst.
Identify the item precisely, including construction quality, material
grade, and brand positioning. Estimate realistic retail value and note
what drives the price.`
	default:
		tasks = `You are a product analysis AI.
Identify the item (type, category, style, material if visible), estimate
the likely brand tier, and describe key visual features clearly.`
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", tasks, searchContext, responseSchema)
}

// ParseDescription decodes a model response into an ItemDescription,
// stripping markdown code fences when present.
func ParseDescription(text string) (*domain.ItemDescription, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var description domain.ItemDescription
	if err := json.Unmarshal([]byte(text), &description); err != nil {
		return nil, fmt.Errorf("failed to parse description response: %w", err)
	}
	if description.ItemType == "" {
		return nil, fmt.Errorf("description response missing item_type")
	}
	return &description, nil
}

package search

import (
	"regexp"
	"strings"

	"github.com/snapstyle/snapstyle-backend/pkg/domain"
)

// Google Shopping behaves badly with very long queries, so everything we
// send is trimmed to this length at a word boundary.
const (
	maxQueryLength     = 100
	minTruncatedLength = 50
)

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	fillerWordsRe   = regexp.MustCompile(`(?i)\b(likely|possibly|probably|approximately|around|about)\b`)
)

// TruncateQuery collapses whitespace and trims the query to maxQueryLength
// at a word boundary, keeping at least minTruncatedLength characters.
func TruncateQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) <= maxQueryLength {
		return query
	}

	truncated := query[:maxQueryLength]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > minTruncatedLength {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimSpace(truncated)
}

// CleanSearchTerm strips parenthetical content such as Pantone codes and
// hedging filler words from an AI-produced search term.
func CleanSearchTerm(term string) string {
	term = parentheticalRe.ReplaceAllString(term, "")
	term = fillerWordsRe.ReplaceAllString(term, "")
	return TruncateQuery(term)
}

// genderPrefix maps the request gender filter onto a query prefix.
func genderPrefix(gender string) string {
	switch gender {
	case "male":
		return "men's"
	case "female":
		return "women's"
	}
	return ""
}

// buildExactQuery targets the same item: brand first, then the primary
// color and item type.
func buildExactQuery(description *domain.ItemDescription, prefix string) string {
	parts := make([]string, 0, 4)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if description.Brand != "" {
		parts = append(parts, description.Brand)
	}
	if color := description.PrimaryColor(); color != "" {
		parts = append(parts, color)
	}
	parts = append(parts, description.ItemType)
	return strings.Join(parts, " ")
}

// buildStyleQuery is the exact-mode fallback: style characteristics
// instead of the brand.
func buildStyleQuery(description *domain.ItemDescription, prefix string) string {
	parts := make([]string, 0, 5)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if description.Style != "" {
		parts = append(parts, description.Style)
	}
	if color := description.PrimaryColor(); color != "" {
		parts = append(parts, color)
	}
	parts = append(parts, description.ItemType)
	if description.Material != "" {
		parts = append(parts, description.Material)
	}
	return strings.Join(parts, " ")
}

// buildAlternativeQuery drops the brand and searches by look instead.
func buildAlternativeQuery(description *domain.ItemDescription, prefix string) string {
	parts := make([]string, 0, 4)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if color := description.PrimaryColor(); color != "" {
		parts = append(parts, color)
	}
	parts = append(parts, description.ItemType)
	if description.Style != "" {
		parts = append(parts, description.Style)
	}
	return strings.Join(parts, " ")
}

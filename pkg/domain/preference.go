package domain

import "sort"

// Preference signals are collected off a user's unrelated history by the
// request handler and passed in; this core never reads the datastore.
// Weighting: explicit saves 3x, intentional searches 2x, passive views 1x.
const (
	SavedSignalWeight    = 3
	SearchedSignalWeight = 2
	ViewedSignalWeight   = 1
)

// SearchSignal is one past search: the type the user asked for plus the
// structured analysis that search produced, when it is still available.
type SearchSignal struct {
	SearchType string
	Analysis   *ItemDescription
}

// SavedSignal is one product the user explicitly saved.
type SavedSignal struct {
	Title    string
	Brand    string
	Category string
	Price    float64
}

// ViewSignal is one passive interaction (view or click).
type ViewSignal struct {
	Category string
	Price    float64
}

// PreferenceProfile is the weighted aggregation of a user's signals,
// consumed by the personalized recommendation flow.
type PreferenceProfile struct {
	ItemTypes map[string]int
	Colors    map[string]int
	Styles    map[string]int
	Brands    map[string]int
	Materials map[string]int

	TopItemTypes []string
	TopColors    []string
	TopStyles    []string
	TopBrands    []string

	AvgPrice    float64
	SearchTerms []string

	HasHistory   bool
	HasFavorites bool
	TotalSignals int
}

// TopN returns the n highest-weighted keys of a preference map. Equal
// weights break ties alphabetically so the result is deterministic.
func TopN(m map[string]int, n int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

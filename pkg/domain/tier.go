package domain

// Subscription tier names as stored on the account.
const (
	TierFree      = "free"
	TierBasic     = "basic"
	TierPro       = "pro"
	TierUnlimited = "unlimited"
)

// TierLimits governs how wide each provider call may be and how many
// results one orchestration pass may return. Tier upgrades widen result
// counts and the final cap, never the number of provider calls.
type TierLimits struct {
	ExactLimit      int
	AltLimit        int
	MaxTotal        int
	IncludeLuxury   bool
	IncludeTrending bool
	IncludeBudget   bool
}

var tierLimits = map[string]TierLimits{
	TierFree: {
		ExactLimit: 10,
		AltLimit:   15,
		MaxTotal:   15,
	},
	TierBasic: {
		ExactLimit:    15,
		AltLimit:      20,
		MaxTotal:      25,
		IncludeBudget: true,
	},
	TierPro: {
		ExactLimit:      25,
		AltLimit:        30,
		MaxTotal:        40,
		IncludeLuxury:   true,
		IncludeTrending: true,
		IncludeBudget:   true,
	},
	TierUnlimited: {
		ExactLimit:      35,
		AltLimit:        40,
		MaxTotal:        60,
		IncludeLuxury:   true,
		IncludeTrending: true,
		IncludeBudget:   true,
	},
}

// LimitsForTier returns the search limits for a tier name, falling back to
// the free tier for unknown names.
func LimitsForTier(tier string) TierLimits {
	if limits, ok := tierLimits[tier]; ok {
		return limits
	}
	return tierLimits[TierFree]
}

// IsPremium reports whether a tier is any paid tier.
func IsPremium(tier string) bool {
	switch tier {
	case TierBasic, TierPro, TierUnlimited:
		return true
	}
	return false
}

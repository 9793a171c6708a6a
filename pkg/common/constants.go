package common

import "time"

const (
	SearchCacheTTL   = 2 * time.Hour
	SectionsCacheTTL = 1 * time.Hour

	// Cache key formats. Sections keys embed the user id first so one
	// prefix invalidation clears every tier variant for that user.
	SearchKeyPattern   = "search:%s:%d:%t"
	SectionsKeyPattern = "sections:%s:%s"
	SectionsKeyPrefix  = "sections:%s:"

	UserIDHeader   = "X-User-Id"
	UserTierHeader = "X-User-Tier"
)

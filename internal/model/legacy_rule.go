package model

import "time"

// LegacyMatchType is the single comparison mode of a pre-enhancement rule.
type LegacyMatchType string

// Legacy match types.
const (
	MatchContains   LegacyMatchType = "contains"
	MatchStartsWith LegacyMatchType = "starts_with"
	MatchExact      LegacyMatchType = "exact"
	MatchRegex      LegacyMatchType = "regex"
)

// Valid reports whether t is a known legacy match type.
func (t LegacyMatchType) Valid() bool {
	switch t {
	case MatchContains, MatchStartsWith, MatchExact, MatchRegex:
		return true
	}
	return false
}

// LegacyRule is the single-pattern rule representation that predates boolean
// composition. The engine reads these for migration and never mutates them;
// the migrated enhanced rule and the legacy rule coexist until the caller
// retires the legacy set.
type LegacyRule struct {
	CreatedAt      time.Time       `json:"created_at"`
	Pattern        string          `json:"pattern"`
	TargetCategory string          `json:"target_category"`
	MatchType      LegacyMatchType `json:"match_type"`
	ID             int64           `json:"id"`
	Priority       int             `json:"priority"`
	IsActive       bool            `json:"is_active"`
}

// Package scoring holds the league's scoring rules: conference tiers, game
// finality and the point calculator.
package scoring

import (
	"strings"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// TierResolver maps conference codes to tiers
type TierResolver struct {
	tiers map[string]models.Tier
}

// NewTierResolver builds a resolver from a tier -> conference codes table.
// Codes are matched case-insensitively; a code listed under two tiers keeps the higher one.
func NewTierResolver(table map[models.Tier][]string) *TierResolver {
	r := &TierResolver{tiers: make(map[string]models.Tier)}
	for tier, codes := range table {
		if tier == models.TierUnknown {
			continue
		}
		for _, code := range codes {
			key := conferenceKey(code)
			if key == "" {
				continue
			}
			if existing, ok := r.tiers[key]; !ok || tier > existing {
				r.tiers[key] = tier
			}
		}
	}
	return r
}

// TierOf returns the tier of a conference code, or TierUnknown when the code
// is empty or not in the table (non-Division-I or unrecognized opponent)
func (r *TierResolver) TierOf(code string) models.Tier {
	if r == nil {
		return models.TierUnknown
	}
	if tier, ok := r.tiers[conferenceKey(code)]; ok {
		return tier
	}
	return models.TierUnknown
}

// Len returns the number of known conference codes
func (r *TierResolver) Len() int {
	return len(r.tiers)
}

func conferenceKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

package model

import "fmt"

// Tier gates what a user may do in other subsystems (chat models, quotas).
type Tier string

const (
	TierFree Tier = "FREE"
)

var tiers = []Tier{TierFree}

// ParseTier maps a stored key onto a known tier.
func ParseTier(key string) (Tier, error) {
	for _, t := range tiers {
		if string(t) == key {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tier %q", key)
}

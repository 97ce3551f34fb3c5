package rating

import (
	"fmt"
	"sort"
)

// Tier bounds.
const (
	MinTier = 1
	MaxTier = 5
)

// TierPolicy buckets a percentile position into a cost tier.
//
// Cuts holds cumulative top-percent boundaries for tiers 5, 4, 3 and 2 in that
// order; anything past the last cut is tier 1.
type TierPolicy struct {
	Cuts []float64
}

// DefaultPolicy is top 5% -> 5, next 15% -> 4, next 20% -> 3, next 30% -> 2, rest -> 1.
func DefaultPolicy() TierPolicy {
	return TierPolicy{Cuts: []float64{5, 20, 40, 70}}
}

// QuintilePolicy splits the pool into equal fifths.
func QuintilePolicy() TierPolicy {
	return TierPolicy{Cuts: []float64{20, 40, 60, 80}}
}

// Validate checks that cuts are strictly increasing percentages.
func (p TierPolicy) Validate() error {
	if len(p.Cuts) != MaxTier-MinTier {
		return fmt.Errorf("%w: want %d cuts, got %d", ErrInvalidPolicy, MaxTier-MinTier, len(p.Cuts))
	}
	prev := 0.0
	for _, c := range p.Cuts {
		if c <= prev || c > 100 {
			return fmt.Errorf("%w: cuts must increase within (0,100]: %v", ErrInvalidPolicy, p.Cuts)
		}
		prev = c
	}
	return nil
}

// bucket maps a top-percent position (0 = best) to a tier.
func (p TierPolicy) bucket(position float64) int {
	tier := MaxTier
	for _, cut := range p.Cuts {
		if position < cut {
			return tier
		}
		tier--
	}
	return MinTier
}

// Tier returns the cost tier of rating within pool. The position is the share
// of the pool rated strictly higher, so equal ratings always share a tier.
// An empty pool yields tier 1.
func (p TierPolicy) Tier(rating float64, pool []float64) int {
	if len(pool) == 0 {
		return MinTier
	}
	above := 0
	for _, r := range pool {
		if r > rating {
			above++
		}
	}
	return p.bucket(float64(above) * 100 / float64(len(pool)))
}

// Tiers assigns a tier to every rating in one pass.
func (p TierPolicy) Tiers(ratings []float64) []int {
	out := make([]int, len(ratings))
	if len(ratings) == 0 {
		return out
	}
	order := make([]int, len(ratings))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return ratings[order[a]] > ratings[order[b]] })

	n := float64(len(ratings))
	above := 0
	for i, idx := range order {
		if i > 0 && ratings[idx] < ratings[order[i-1]] {
			above = i
		}
		out[idx] = p.bucket(float64(above) * 100 / n)
	}
	return out
}

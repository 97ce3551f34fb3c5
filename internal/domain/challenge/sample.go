package challenge

import (
	"hash/fnv"
	"math/rand"

	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/internal/domain/rating"
)

// PlayersPerTier is how many players a daily pool offers per cost tier.
const PlayersPerTier = 5

// DateSeed derives a stable sampling seed from a date key.
func DateSeed(date string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(date))
	return int64(h.Sum64()) //nolint:gosec // wraparound is fine for a seed
}

// Sample draws up to perTier players from each tier without replacement.
// Tiers with fewer players contribute all of them; short lists the tiers
// that did.
func Sample(pool *rating.Pool, perTier int, rng *rand.Rand) (picked map[int][]model.Player, short []int) {
	picked = make(map[int][]model.Player, rating.MaxTier)
	byTier := pool.ByTier()
	for tier := rating.MinTier; tier <= rating.MaxTier; tier++ {
		players := byTier[tier]
		if len(players) < perTier {
			short = append(short, tier)
		}
		idx := rng.Perm(len(players))
		n := min(perTier, len(players))
		chosen := make([]model.Player, 0, n)
		for _, i := range idx[:n] {
			chosen = append(chosen, players[i])
		}
		picked[tier] = chosen
	}
	return picked, short
}

package loadtest

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/internal/domain/roster"
)

// generateEntries builds cfg.Entrants entrants, each with a valid random
// roster drawn from pool.
func generateEntries(cfg *Config, pool map[int][]model.Player) ([]Entry, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	all := flatten(pool)

	entries := make([]Entry, cfg.Entrants)
	for i := range entries {
		first := randomRoster(rng, all)
		if first == nil {
			return nil, fmt.Errorf("pool of %d players has no valid roster", len(all))
		}
		entries[i] = Entry{
			Identity: "load-" + uuid.NewString()[:8] + fmt.Sprintf("-%05d", i),
			Rosters:  [][]string{first},
		}
		if cfg.ResubmitEvery > 0 && (i+1)%cfg.ResubmitEvery == 0 {
			entries[i].Rosters = append(entries[i].Rosters, randomRoster(rng, all))
		}
	}
	return entries, nil
}

func flatten(pool map[int][]model.Player) []model.Player {
	tiers := make([]int, 0, len(pool))
	for t := range pool {
		tiers = append(tiers, t)
	}
	sort.Ints(tiers)
	var all []model.Player
	for _, t := range tiers {
		all = append(all, pool[t]...)
	}
	return all
}

// randomRoster searches a shuffled pool for five players that pass roster
// validation with the default rules.
func randomRoster(rng *rand.Rand, all []model.Player) []string {
	order := rng.Perm(len(all))
	var pick func(start int, r *roster.Roster) bool
	pick = func(start int, r *roster.Roster) bool {
		if r.IsComplete() {
			return true
		}
		for i := start; i < len(order); i++ {
			p := all[order[i]]
			if r.Add(p) != nil {
				continue
			}
			if pick(i+1, r) {
				return true
			}
			_ = r.Remove(p.Name)
		}
		return false
	}
	r := roster.New()
	if !pick(0, r) {
		return nil
	}
	names := make([]string, 0, roster.MaxPlayers)
	for _, p := range r.Players() {
		names = append(names, p.Name)
	}
	return names
}

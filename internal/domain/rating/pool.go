package rating

import (
	"sort"

	"github.com/okian/budgetgm/internal/domain/model"
)

// Pool is an immutable snapshot of rated players.
type Pool struct {
	players []model.Player
	byName  map[string]int
}

// NewPool indexes players by name. Later duplicates of a name are dropped.
func NewPool(players []model.Player) *Pool {
	p := &Pool{byName: make(map[string]int, len(players))}
	for _, pl := range players {
		if _, dup := p.byName[pl.Name]; dup {
			continue
		}
		p.byName[pl.Name] = len(p.players)
		p.players = append(p.players, pl)
	}
	return p
}

// Len returns the number of players in the pool.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.players)
}

// Players returns a copy of the pool in insertion order.
func (p *Pool) Players() []model.Player {
	if p == nil {
		return nil
	}
	return append([]model.Player(nil), p.players...)
}

// Lookup finds a player by exact name.
func (p *Pool) Lookup(name string) (model.Player, bool) {
	if p == nil {
		return model.Player{}, false
	}
	i, ok := p.byName[name]
	if !ok {
		return model.Player{}, false
	}
	return p.players[i], true
}

// Rating returns a player's normalized rating, or 0 when unknown.
func (p *Pool) Rating(name string) float64 {
	pl, ok := p.Lookup(name)
	if !ok {
		return 0
	}
	return pl.Rating
}

// Tier returns a player's cost tier, or the lowest tier when unknown.
func (p *Pool) Tier(name string) int {
	pl, ok := p.Lookup(name)
	if !ok {
		return MinTier
	}
	return pl.Cost
}

// ByTier groups players by cost, best rating first within a tier.
func (p *Pool) ByTier() map[int][]model.Player {
	out := make(map[int][]model.Player, MaxTier)
	if p == nil {
		return out
	}
	for _, pl := range p.players {
		out[pl.Cost] = append(out[pl.Cost], pl)
	}
	for _, players := range out {
		sort.SliceStable(players, func(i, j int) bool { return players[i].Rating > players[j].Rating })
	}
	return out
}

// Package roster enforces the budget, size and position rules of a lineup.
package roster

import (
	"fmt"

	"github.com/okian/budgetgm/internal/domain/model"
)

// Roster is an ordered selection of up to MaxPlayers distinct players.
// It is not safe for concurrent use.
type Roster struct {
	players     []model.Player
	budget      int
	positionCap int // 0 disables caps
}

// New creates an empty roster with configuration options.
func New(opts ...Option) *Roster {
	r := &Roster{
		players:     make([]model.Player, 0, MaxPlayers),
		budget:      DefaultBudget,
		positionCap: DefaultPositionCap,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup resolves a player by name.
type Lookup func(name string) (model.Player, bool)

// FromNames builds a roster by resolving each name through lookup.
func FromNames(lookup Lookup, names []string, opts ...Option) (*Roster, error) {
	r := New(opts...)
	for _, name := range names {
		p, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
		}
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add appends p. On error the roster is unchanged.
func (r *Roster) Add(p model.Player) error {
	if len(r.players) >= MaxPlayers {
		return ErrRosterFull
	}
	if r.index(p.Name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicatePlayer, p.Name)
	}
	if r.TotalCost()+p.Cost > r.budget {
		return fmt.Errorf("%w: %d + %d > %d", ErrBudgetExceeded, r.TotalCost(), p.Cost, r.budget)
	}
	if r.capped(p.Position) && r.countPosition(p.Position) >= r.positionCap {
		return fmt.Errorf("%w: %s", ErrPositionLimitExceeded, p.Position)
	}
	r.players = append(r.players, p)
	return nil
}

// Remove drops the player with the given name.
func (r *Roster) Remove(name string) error {
	i := r.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
	}
	r.players = append(r.players[:i], r.players[i+1:]...)
	return nil
}

// Len returns the number of players on the roster.
func (r *Roster) Len() int { return len(r.players) }

// Budget returns the roster's cost ceiling.
func (r *Roster) Budget() int { return r.budget }

// IsComplete reports whether the roster holds exactly MaxPlayers players.
func (r *Roster) IsComplete() bool { return len(r.players) == MaxPlayers }

// IsValid reports whether the roster is complete and within every rule.
func (r *Roster) IsValid() bool { return r.Validate() == nil }

// Validate returns the first rule the roster violates, or nil.
func (r *Roster) Validate() error {
	if !r.IsComplete() {
		return fmt.Errorf("%w: %d of %d players", ErrIncomplete, len(r.players), MaxPlayers)
	}
	if cost := r.TotalCost(); cost > r.budget {
		return fmt.Errorf("%w: %d > %d", ErrBudgetExceeded, cost, r.budget)
	}
	seen := make(map[string]struct{}, len(r.players))
	for _, p := range r.players {
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicatePlayer, p.Name)
		}
		seen[p.Name] = struct{}{}
		if r.capped(p.Position) && r.countPosition(p.Position) > r.positionCap {
			return fmt.Errorf("%w: %s", ErrPositionLimitExceeded, p.Position)
		}
	}
	return nil
}

// TotalCost sums the cost of every player.
func (r *Roster) TotalCost() int {
	total := 0
	for _, p := range r.players {
		total += p.Cost
	}
	return total
}

// RemainingBudget is the budget minus TotalCost.
func (r *Roster) RemainingBudget() int { return r.budget - r.TotalCost() }

// Players returns a copy of the roster in insertion order.
func (r *Roster) Players() []model.Player {
	return append([]model.Player(nil), r.players...)
}

// Slots converts the roster into stored submission slots.
func (r *Roster) Slots() []model.RosterSlot {
	out := make([]model.RosterSlot, len(r.players))
	for i, p := range r.players {
		out[i] = model.RosterSlot{Name: p.Name, Position: p.Position, Team: p.Team, Cost: p.Cost, Rating: p.Rating}
	}
	return out
}

func (r *Roster) index(name string) int {
	for i, p := range r.players {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (r *Roster) capped(pos model.Position) bool {
	return r.positionCap > 0 && pos.Known()
}

func (r *Roster) countPosition(pos model.Position) int {
	n := 0
	for _, p := range r.players {
		if p.Position == pos {
			n++
		}
	}
	return n
}

package roster

// Default roster rules.
const (
	MaxPlayers         = 5
	DefaultBudget      = 15
	DefaultPositionCap = 2
)

// Option applies a configuration option to the Roster.
type Option func(*Roster)

// WithBudget sets the total cost ceiling.
func WithBudget(budget int) Option {
	return func(r *Roster) {
		if budget > 0 {
			r.budget = budget
		}
	}
}

// WithPositionCap limits how many players may share a known position.
func WithPositionCap(n int) Option {
	return func(r *Roster) {
		if n > 0 {
			r.positionCap = n
		}
	}
}

// WithoutPositionCaps disables the position rule.
func WithoutPositionCaps() Option {
	return func(r *Roster) {
		r.positionCap = 0
	}
}

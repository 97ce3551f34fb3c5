package simulation

// Option applies a configuration option to the Simulator.
type Option func(*Simulator)

// WithGames sets the number of games per season.
func WithGames(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.games = n
		}
	}
}

// WithSteepness sets the logistic steepness k.
func WithSteepness(k float64) Option {
	return func(s *Simulator) {
		if k > 0 {
			s.steepness = k
		}
	}
}

// WithBaseClip bounds the unperturbed win probability.
func WithBaseClip(lo, hi float64) Option {
	return func(s *Simulator) {
		if lo >= 0 && hi <= 1 && lo < hi {
			s.baseMin, s.baseMax = lo, hi
		}
	}
}

// WithGameClip bounds the per-game win probability after jitter.
func WithGameClip(lo, hi float64) Option {
	return func(s *Simulator) {
		if lo >= 0 && hi <= 1 && lo < hi {
			s.gameMin, s.gameMax = lo, hi
		}
	}
}

// WithJitter sets the half-width of the uniform per-game perturbation.
func WithJitter(j float64) Option {
	return func(s *Simulator) {
		if j >= 0 {
			s.jitter = j
		}
	}
}

// WithReferences replaces the league-average reference table.
func WithReferences(refs []Reference) Option {
	return func(s *Simulator) {
		if len(refs) > 0 {
			s.refs = append([]Reference(nil), refs...)
		}
	}
}

// WithoutPlayerLines skips per-player season lines.
func WithoutPlayerLines() Option {
	return func(s *Simulator) {
		s.playerLines = false
	}
}

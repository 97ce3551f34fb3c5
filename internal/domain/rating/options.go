package rating

// Option applies a configuration option to the Rater.
type Option func(*Rater)

// WithWeights overrides stat weights by name. Unknown names and negative
// weights are ignored; stats missing from the map keep their default.
func WithWeights(weights map[string]float64) Option {
	return func(r *Rater) {
		for i, w := range r.weights {
			if v, ok := weights[string(w.Stat)]; ok && v >= 0 {
				r.weights[i].Value = v
			}
		}
	}
}

// WithBonuses replaces the bonus table.
func WithBonuses(bonuses []Bonus) Option {
	return func(r *Rater) {
		r.bonuses = append([]Bonus(nil), bonuses...)
	}
}

// WithReferenceGames sets the games-played window used for reliability scaling.
func WithReferenceGames(games float64) Option {
	return func(r *Rater) {
		if games > 0 {
			r.referenceGames = games
		}
	}
}

// WithPolicy sets the tier policy. Invalid policies are ignored.
func WithPolicy(p TierPolicy) Option {
	return func(r *Rater) {
		if p.Validate() == nil {
			r.policy = TierPolicy{Cuts: append([]float64(nil), p.Cuts...)}
		}
	}
}

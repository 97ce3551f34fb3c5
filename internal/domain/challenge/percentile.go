package challenge

import (
	"math"
	"sort"

	"github.com/okian/budgetgm/internal/domain/model"
)

// Less orders submissions by wins desc, losses asc, then identity asc.
func Less(a, b model.Submission) bool {
	if a.Record != b.Record {
		return a.Record.Better(b.Record)
	}
	return a.Identity < b.Identity
}

// Sort orders submissions in place by Less.
func Sort(subs []model.Submission) {
	sort.Slice(subs, func(i, j int) bool { return Less(subs[i], subs[j]) })
}

// PercentileAt converts a 0-based sorted index among n entries to a percentile
// rounded to one decimal. A lone entry is 100.
func PercentileAt(i, n int) float64 {
	if n <= 1 {
		return 100
	}
	p := 100 - float64(i)/float64(n-1)*100
	return math.Round(p*10) / 10
}

// Percentile ranks target against existing, replacing any entry with the
// same identity.
func Percentile(existing []model.Submission, target model.Submission) float64 {
	cohort := make([]model.Submission, 0, len(existing)+1)
	for _, s := range existing {
		if s.Identity != target.Identity {
			cohort = append(cohort, s)
		}
	}
	cohort = append(cohort, target)
	Sort(cohort)
	for i, s := range cohort {
		if s.Identity == target.Identity {
			return PercentileAt(i, len(cohort))
		}
	}
	return 100
}

// Standings ranks every submission with live percentiles.
func Standings(subs map[string]model.Submission) []model.Standing {
	list := make([]model.Submission, 0, len(subs))
	for _, s := range subs {
		list = append(list, s)
	}
	Sort(list)
	out := make([]model.Standing, len(list))
	for i, s := range list {
		out[i] = model.Standing{Rank: i + 1, Percentile: PercentileAt(i, len(list)), Submission: s}
	}
	return out
}

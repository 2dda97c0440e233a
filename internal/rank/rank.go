// Package rank orders environment reports and applies the output selection
// policies (first match, full scan, limit).
package rank

import (
	"sort"

	"github.com/frederic-klein/condascan/internal/evaluate"
)

// Policy controls which reports are presented.
type Policy struct {
	// First stops the scan at the first fully matching environment in
	// discovery order. The scan loop honors it; Select only trims.
	First bool
	// Limit caps the number of presented reports. Zero or less is unlimited.
	Limit int
	// Verbose presents every evaluated report, not only full matches.
	Verbose bool
}

// Limited reports whether the policy truncates output.
func (p Policy) Limited() bool {
	return p.Limit > 0
}

// Result is the outcome of Select.
type Result struct {
	// Ranked holds every evaluated report in rank order, truncated to the limit.
	Ranked []evaluate.Report
	// Matches holds the reports satisfying every requirement, in rank order,
	// truncated to the limit.
	Matches []evaluate.Report
	// Evaluated is the number of environments evaluated before truncation.
	Evaluated int
	// TotalMatches is the number of matching environments before truncation.
	TotalMatches int
}

// Presented returns the reports the policy asks to show.
func (r Result) Presented(p Policy) []evaluate.Report {
	if p.Verbose {
		return r.Ranked
	}
	return r.Matches
}

// Less is the rank order: lower score first, then fewer installed packages.
func Less(a, b evaluate.Report) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.TotalInstalled < b.TotalInstalled
}

// Sort returns a copy of reports in rank order. Reports with equal keys keep
// their discovery order.
func Sort(reports []evaluate.Report) []evaluate.Report {
	sorted := make([]evaluate.Report, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})
	return sorted
}

// Select ranks reports, given in discovery order, and applies p.
func Select(reports []evaluate.Report, p Policy) Result {
	ranked := Sort(reports)

	var matches []evaluate.Report
	if p.First {
		// The first full match in discovery order, not in rank order.
		for _, r := range reports {
			if r.SatisfiesAll {
				matches = append(matches, r)
				break
			}
		}
	} else {
		for _, r := range ranked {
			if r.SatisfiesAll {
				matches = append(matches, r)
			}
		}
	}

	return Result{
		Ranked:       truncate(ranked, p.Limit),
		Matches:      truncate(matches, p.Limit),
		Evaluated:    len(ranked),
		TotalMatches: len(matches),
	}
}

func truncate(reports []evaluate.Report, limit int) []evaluate.Report {
	if limit > 0 && len(reports) > limit {
		return reports[:limit]
	}
	return reports
}

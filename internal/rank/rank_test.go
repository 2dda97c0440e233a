package rank

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/frederic-klein/condascan/internal/evaluate"
)

func report(env string, score, total int, ok bool) evaluate.Report {
	return evaluate.Report{Env: env, Score: score, TotalInstalled: total, SatisfiesAll: ok}
}

func envs(reports []evaluate.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.Env
	}
	return out
}

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		in   []evaluate.Report
		want []string
	}{
		{
			name: "score first",
			in:   []evaluate.Report{report("a", 4, 10, false), report("b", 0, 50, true), report("c", 2, 1, false)},
			want: []string{"b", "c", "a"},
		},
		{
			name: "fewer packages on equal score",
			in:   []evaluate.Report{report("big", 0, 5, true), report("small", 0, 3, true)},
			want: []string{"small", "big"},
		},
		{
			name: "exact ties keep discovery order",
			in:   []evaluate.Report{report("x", 0, 3, true), report("y", 0, 3, true), report("z", 0, 3, true)},
			want: []string{"x", "y", "z"},
		},
		{
			name: "unavailable last",
			in: []evaluate.Report{
				report("gone", evaluate.Worst, evaluate.Worst, false),
				report("bad", 9, 1000, false),
			},
			want: []string{"bad", "gone"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := envs(Sort(tt.in))
			if !cmp.Equal(tt.want, got) {
				t.Error(cmp.Diff(tt.want, got))
			}
		})
	}
}

func TestSort_DoesNotMutate(t *testing.T) {
	in := []evaluate.Report{report("a", 3, 1, false), report("b", 0, 1, true)}
	_ = Sort(in)
	if got := envs(in); !cmp.Equal([]string{"a", "b"}, got) {
		t.Errorf("input reordered: %v", got)
	}
}

func TestSelect(t *testing.T) {
	reports := []evaluate.Report{
		report("a", 2, 10, false),
		report("b", 0, 40, true),
		report("c", 0, 20, true),
		report("d", 0, 30, true),
	}
	tests := []struct {
		name        string
		policy      Policy
		wantMatches []string
		wantRanked  []string
		wantTotal   int
	}{
		{
			name:        "full scan",
			policy:      Policy{},
			wantMatches: []string{"c", "d", "b"},
			wantRanked:  []string{"c", "d", "b", "a"},
			wantTotal:   3,
		},
		{
			name:        "limit",
			policy:      Policy{Limit: 2},
			wantMatches: []string{"c", "d"},
			wantRanked:  []string{"c", "d"},
			wantTotal:   3,
		},
		{
			name:        "first match uses discovery order",
			policy:      Policy{First: true},
			wantMatches: []string{"b"},
			wantRanked:  []string{"c", "d", "b", "a"},
			wantTotal:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(reports, tt.policy)
			if diff := cmp.Diff(tt.wantMatches, envs(got.Matches)); diff != "" {
				t.Errorf("Matches: %s", diff)
			}
			if diff := cmp.Diff(tt.wantRanked, envs(got.Ranked)); diff != "" {
				t.Errorf("Ranked: %s", diff)
			}
			if got.TotalMatches != tt.wantTotal {
				t.Errorf("TotalMatches = %d, want %d", got.TotalMatches, tt.wantTotal)
			}
			if got.Evaluated != len(reports) {
				t.Errorf("Evaluated = %d, want %d", got.Evaluated, len(reports))
			}
		})
	}
}

func TestResult_Presented(t *testing.T) {
	reports := []evaluate.Report{report("a", 2, 1, false), report("b", 0, 1, true)}
	res := Select(reports, Policy{})
	if got := envs(res.Presented(Policy{})); !cmp.Equal([]string{"b"}, got) {
		t.Errorf("terse Presented() = %v", got)
	}
	if got := envs(res.Presented(Policy{Verbose: true})); !cmp.Equal([]string{"b", "a"}, got) {
		t.Errorf("verbose Presented() = %v", got)
	}
}

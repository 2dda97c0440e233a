package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/condascan/internal/evaluate"
	"github.com/frederic-klein/condascan/internal/listing"
	"github.com/frederic-klein/condascan/internal/rank"
	"github.com/frederic-klein/condascan/internal/requirement"
	"github.com/frederic-klein/condascan/internal/scan"
)

func reports(t *testing.T) []evaluate.Report {
	t.Helper()
	reqs, err := requirement.ParseAll([]string{"numpy>=1.20", "pandas"})
	if err != nil {
		t.Fatal(err)
	}
	listings := map[string][]string{
		"ml":   {"numpy 1.26.4 py311_0", "pandas 2.1.0 py311_0", "python 3.11.5 h0"},
		"lean": {"numpy 1.26.4 py311_0", "pandas 2.0.0 py311_0"},
		"old":  {"numpy 1.19.0 py38_0", "python 3.8.10 h0"},
	}
	var out []evaluate.Report
	for _, name := range []string{"ml", "lean", "old"} {
		r, err := evaluate.Evaluate(name, listings[name], reqs)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, r)
	}
	return append(out, evaluate.Unavailable("gone", reqs, "environment query failed"))
}

func TestText_Have(t *testing.T) {
	tests := []struct {
		name   string
		policy rank.Policy
		want   string
	}{
		{
			name: "all matches",
			want: "Found 2 environments with all required packages:\n- lean\n- ml\n",
		},
		{
			name:   "limited",
			policy: rank.Policy{Limit: 1},
			want:   "Found 1 environments with all required packages (output limited to 1):\n- lean\n",
		},
		{
			name:   "first",
			policy: rank.Policy{First: true},
			want:   "Found the first environment with all required packages:\n- ml\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			res := rank.Select(reports(t), tt.policy)
			if err := (Text{}).Have(&buf, res, tt.policy); err != nil {
				t.Fatal(err)
			}
			if got := buf.String(); got != tt.want {
				t.Error(cmp.Diff(tt.want, got))
			}
		})
	}
}

func TestText_Have_NoMatches(t *testing.T) {
	var buf bytes.Buffer
	res := rank.Select(reports(t)[2:], rank.Policy{})
	if err := (Text{}).Have(&buf, res, rank.Policy{}); err != nil {
		t.Fatal(err)
	}
	want := "No environments found with all required packages. To see the details, run with --verbose\n"
	if got := buf.String(); got != want {
		t.Error(cmp.Diff(want, got))
	}
}

func TestText_Have_Verbose(t *testing.T) {
	var buf bytes.Buffer
	p := rank.Policy{Verbose: true, Limit: 3}
	if err := (Text{}).Have(&buf, rank.Select(reports(t), p), p); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Limiting output to 3 environments",
		"Environment", "Python Version", "Total Packages Installed", "Info",
		"✓ numpy==1.26.4",
		"⚠ numpy: expected >=1.20, found 1.19.0",
		"✗ pandas: missing",
		"3.11.5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "gone") {
		t.Errorf("limited output shows the fourth environment:\n%s", out)
	}
}

func TestText_Execute(t *testing.T) {
	results := []scan.ExecResult{
		{Env: "base", ExitCode: 1, Output: "Traceback\nModuleNotFoundError: No module named 'torch'"},
		{Env: "ml", ExitCode: 0},
		{Env: "gone", ExitCode: -1, Err: errors.New("environment query failed: gone")},
	}

	var buf bytes.Buffer
	if err := (Text{}).Execute(&buf, results, rank.Policy{}); err != nil {
		t.Fatal(err)
	}
	want := "Found 1 environments that can execute the command:\n- ml\n"
	if got := buf.String(); got != want {
		t.Error(cmp.Diff(want, got))
	}

	buf.Reset()
	if err := (Text{}).Execute(&buf, results, rank.Policy{Verbose: true}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"✗ exit 1: ModuleNotFoundError: No module named 'torch'", "✓ exit 0", "! environment query failed: gone"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("verbose output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := (Text{}).Execute(&buf, results[:1], rank.Policy{}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "No environments found that can execute the command") {
		t.Errorf("got %q", buf.String())
	}
}

func TestText_Compare(t *testing.T) {
	d := listing.Compare(
		[]string{"numpy 1.26.4 0", "pandas 2.1.0 0", "python 3.11.5 0"},
		[]string{"numpy 1.19.0 0", "python 3.11.5 0", "scipy 1.11.0 0"},
	)
	var buf bytes.Buffer
	if err := (Text{}).Compare(&buf, "ml", "old", d, CompareOptions{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Only in ml (1):", "- pandas 2.1.0", "Only in old (1):", "- scipy 1.11.0", "Different versions (1):", "1.26.4", "1.19.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "3.11.5") {
		t.Errorf("unchanged package listed without --all:\n%s", out)
	}

	buf.Reset()
	same := listing.Compare([]string{"numpy 1.26.4 0"}, []string{"numpy 1.26.4 1"})
	if err := (Text{}).Compare(&buf, "a", "b", same, CompareOptions{}); err != nil {
		t.Fatal(err)
	}
	if want := "a and b have the same packages installed\n"; buf.String() != want {
		t.Error(cmp.Diff(want, buf.String()))
	}
}

func TestStructured_Have(t *testing.T) {
	p := rank.Policy{Verbose: true}
	res := rank.Select(reports(t), p)

	var buf bytes.Buffer
	pr, err := New(FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if err := pr.Have(&buf, res, p); err != nil {
		t.Fatal(err)
	}

	var doc haveDoc
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if doc.Mode != "have" || doc.Evaluated != 4 || doc.TotalMatches != 2 {
		t.Errorf("header = %+v", doc)
	}
	if len(doc.Environments) != 4 {
		t.Fatalf("environments = %d, want 4", len(doc.Environments))
	}
	gone := doc.Environments[3]
	if gone.Name != "gone" || gone.Available || gone.Score != nil || gone.TotalInstalled != nil {
		t.Errorf("unavailable environment = %+v", gone)
	}
	lean := doc.Environments[0]
	want := []requirementDoc{
		{Requirement: "numpy>=1.20", Status: evaluate.Found, Detail: "1.26.4"},
		{Requirement: "pandas", Status: evaluate.Found, Detail: "2.0.0"},
	}
	if !cmp.Equal(want, lean.Requirements) {
		t.Error(cmp.Diff(want, lean.Requirements))
	}
}

func TestStructured_CompareYAML(t *testing.T) {
	d := listing.Compare([]string{"numpy 1.26.4 0"}, []string{"numpy 1.19.0 0", "scipy 1.11.0 0"})
	pr, err := New(FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := pr.Compare(&buf, "ml", "old", d, CompareOptions{}); err != nil {
		t.Fatal(err)
	}

	var doc compareDoc
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid yaml: %v\n%s", err, buf.String())
	}
	want := compareDoc{
		Mode:    "compare",
		A:       "ml",
		B:       "old",
		OnlyA:   []listing.Record{},
		OnlyB:   []listing.Record{{Name: "scipy", Version: "1.11.0"}},
		Changed: []listing.Pair{{Name: "numpy", VersionA: "1.26.4", VersionB: "1.19.0"}},
	}
	if !cmp.Equal(want, doc, cmpopts.EquateEmpty()) {
		t.Error(cmp.Diff(want, doc, cmpopts.EquateEmpty()))
	}
}

func TestNew(t *testing.T) {
	for _, f := range []string{"", FormatText, FormatYAML, FormatJSON} {
		if _, err := New(f); err != nil {
			t.Errorf("New(%q) error = %v", f, err)
		}
	}
	if _, err := New("xml"); err == nil {
		t.Error("New(xml) error = nil")
	}
}

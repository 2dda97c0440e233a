package report

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/condascan/internal/env"
	"github.com/frederic-klein/condascan/internal/evaluate"
	"github.com/frederic-klein/condascan/internal/listing"
	"github.com/frederic-klein/condascan/internal/rank"
	"github.com/frederic-klein/condascan/internal/scan"
)

// Structured renders documents through an encoder, one document per call.
type Structured struct {
	encode func(w io.Writer, doc any) error
}

func yamlPresenter() Structured {
	return Structured{encode: func(w io.Writer, doc any) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}}
}

func jsonPresenter() Structured {
	return Structured{encode: func(w io.Writer, doc any) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}}
}

type policyDoc struct {
	First   bool `json:"first" yaml:"first"`
	Limit   int  `json:"limit,omitempty" yaml:"limit,omitempty"`
	Verbose bool `json:"verbose" yaml:"verbose"`
}

type requirementDoc struct {
	Requirement string        `json:"requirement" yaml:"requirement"`
	Status      evaluate.Kind `json:"status" yaml:"status"`
	Detail      string        `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type environmentDoc struct {
	Name           string           `json:"name" yaml:"name"`
	Available      bool             `json:"available" yaml:"available"`
	Score          *int             `json:"score,omitempty" yaml:"score,omitempty"`
	TotalInstalled *int             `json:"total_installed,omitempty" yaml:"total_installed,omitempty"`
	PythonVersion  string           `json:"python_version,omitempty" yaml:"python_version,omitempty"`
	SatisfiesAll   bool             `json:"satisfies_all" yaml:"satisfies_all"`
	Requirements   []requirementDoc `json:"requirements" yaml:"requirements"`
}

type haveDoc struct {
	Mode         env.Mode         `json:"mode" yaml:"mode"`
	Policy       policyDoc        `json:"policy" yaml:"policy"`
	Evaluated    int              `json:"evaluated" yaml:"evaluated"`
	TotalMatches int              `json:"total_matches" yaml:"total_matches"`
	Environments []environmentDoc `json:"environments" yaml:"environments"`
}

func newEnvironmentDoc(r evaluate.Report) environmentDoc {
	doc := environmentDoc{
		Name:          r.Env,
		Available:     r.Score != evaluate.Worst,
		PythonVersion: r.PythonVersion,
		SatisfiesAll:  r.SatisfiesAll,
		Requirements:  make([]requirementDoc, len(r.Statuses)),
	}
	if r.Score != evaluate.Worst {
		doc.Score = &r.Score
	}
	if r.TotalInstalled != evaluate.Worst {
		doc.TotalInstalled = &r.TotalInstalled
	}
	for i, st := range r.Statuses {
		doc.Requirements[i] = requirementDoc{
			Requirement: st.Requirement.String(),
			Status:      st.Kind,
			Detail:      st.Detail,
		}
	}
	return doc
}

func newPolicyDoc(p rank.Policy) policyDoc {
	return policyDoc{First: p.First, Limit: p.Limit, Verbose: p.Verbose}
}

// Have implements Presenter.
func (s Structured) Have(w io.Writer, res rank.Result, p rank.Policy) error {
	presented := res.Presented(p)
	doc := haveDoc{
		Mode:         env.ModeHave,
		Policy:       newPolicyDoc(p),
		Evaluated:    res.Evaluated,
		TotalMatches: res.TotalMatches,
		Environments: make([]environmentDoc, len(presented)),
	}
	for i, r := range presented {
		doc.Environments[i] = newEnvironmentDoc(r)
	}
	return s.encode(w, doc)
}

type execDoc struct {
	Name     string `json:"name" yaml:"name"`
	OK       bool   `json:"ok" yaml:"ok"`
	ExitCode int    `json:"exit_code" yaml:"exit_code"`
	Output   string `json:"output,omitempty" yaml:"output,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

type executeDoc struct {
	Mode         env.Mode  `json:"mode" yaml:"mode"`
	Policy       policyDoc `json:"policy" yaml:"policy"`
	Successes    int       `json:"successes" yaml:"successes"`
	Environments []execDoc `json:"environments" yaml:"environments"`
}

// Execute implements Presenter.
func (s Structured) Execute(w io.Writer, results []scan.ExecResult, p rank.Policy) error {
	shown, successes := executable(results, p)
	doc := executeDoc{
		Mode:         env.ModeCanExecute,
		Policy:       newPolicyDoc(p),
		Successes:    successes,
		Environments: make([]execDoc, len(shown)),
	}
	for i, r := range shown {
		d := execDoc{Name: r.Env, OK: r.OK(), ExitCode: r.ExitCode, Output: r.Output}
		if r.Err != nil {
			d.Error = r.Err.Error()
		}
		doc.Environments[i] = d
	}
	return s.encode(w, doc)
}

type compareDoc struct {
	Mode    env.Mode         `json:"mode" yaml:"mode"`
	A       string           `json:"a" yaml:"a"`
	B       string           `json:"b" yaml:"b"`
	OnlyA   []listing.Record `json:"only_a" yaml:"only_a"`
	OnlyB   []listing.Record `json:"only_b" yaml:"only_b"`
	Changed []listing.Pair   `json:"changed" yaml:"changed"`
	Both    []listing.Pair   `json:"both,omitempty" yaml:"both,omitempty"`
}

// Compare implements Presenter.
func (s Structured) Compare(w io.Writer, a, b string, d listing.Diff, opts CompareOptions) error {
	doc := compareDoc{
		Mode:    env.ModeCompare,
		A:       a,
		B:       b,
		OnlyA:   nonNil(d.OnlyA),
		OnlyB:   nonNil(d.OnlyB),
		Changed: nonNil(d.Changed()),
	}
	if opts.All {
		doc.Both = d.Both
	}
	return s.encode(w, doc)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

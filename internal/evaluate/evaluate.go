// Package evaluate matches one environment's package listing against a set
// of requirements and scores how well the environment fits.
package evaluate

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/frederic-klein/condascan/internal/listing"
	"github.com/frederic-klein/condascan/internal/requirement"
	"github.com/frederic-klein/condascan/internal/version"
)

// ErrEvaluation is returned (wrapped) when a listing cannot be scanned at all.
var ErrEvaluation = errors.New("evaluation failed")

// Worst is the Score and TotalInstalled of environments whose listing could
// not be obtained; such reports sort after every other report.
const Worst = math.MaxInt

// RequirementStatus pairs a requirement with its outcome.
type RequirementStatus struct {
	Requirement requirement.Requirement
	Status
}

// Report is the evaluation of one environment. Reports are not modified
// after they are returned.
type Report struct {
	Env            string
	Score          int
	TotalInstalled int
	PythonVersion  string
	Statuses       []RequirementStatus
	SatisfiesAll   bool
}

type options struct {
	onScan func(line int)
}

// Option configures Evaluate.
type Option func(*options)

// WithScanHook calls fn with the index of every listing line the matching
// loop examines. It observes only that loop: the pass that counts packages
// and checks encoding always reads every line, so a hook that stops firing
// early does not mean the rest of the listing went unread.
func WithScanHook(fn func(line int)) Option {
	return func(o *options) {
		o.onScan = fn
	}
}

// Evaluate scores lines, the raw listing of env, against reqs.
//
// Every requirement starts out Missing. The first listing line naming a
// requirement's package decides its status; the scan stops as soon as every
// requirement is Found.
func Evaluate(env string, lines []string, reqs []requirement.Requirement, opts ...Option) (Report, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	total, python, err := survey(lines)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %s: %w", ErrEvaluation, env, err)
	}

	statuses := make([]RequirementStatus, len(reqs))
	for i, req := range reqs {
		statuses[i] = RequirementStatus{Requirement: req, Status: Status{Kind: Missing}}
	}

	found := 0
	for i, line := range lines {
		if found == len(reqs) {
			break
		}
		if o.onScan != nil {
			o.onScan(i)
		}
		rec, ok := listing.ParseLine(line)
		if !ok {
			continue
		}
		key := rec.Key()
		for j := range statuses {
			st := &statuses[j]
			if st.Kind != Missing || st.Requirement.Name != key {
				continue
			}
			st.Status = match(st.Requirement, rec.Version)
			if st.Kind == Found {
				found++
			}
		}
	}

	return newReport(env, total, python, statuses), nil
}

// survey counts the package lines of a listing and finds the python version.
func survey(lines []string) (total int, python string, err error) {
	for i, line := range lines {
		if !utf8.ValidString(line) {
			return 0, "", fmt.Errorf("line %d: invalid UTF-8", i+1)
		}
		rec, ok := listing.ParseLine(line)
		if !ok {
			continue
		}
		total++
		if python == "" && rec.Key() == "python" {
			python = rec.Version
		}
	}
	return total, python, nil
}

func match(req requirement.Requirement, raw string) Status {
	v, err := version.Parse(raw)
	if err != nil {
		return Status{
			Kind:   VersionInvalid,
			Detail: fmt.Sprintf("expected %s, found invalid version %s", expected(req), raw),
		}
	}
	if req.Satisfies(v) {
		return Status{Kind: Found, Detail: raw}
	}
	return Status{
		Kind:   VersionMismatch,
		Detail: fmt.Sprintf("expected %s, found %s", expected(req), raw),
	}
}

func expected(req requirement.Requirement) string {
	if spec := req.Specifier(); spec != "" {
		return spec
	}
	return "any version"
}

func newReport(env string, total int, python string, statuses []RequirementStatus) Report {
	r := Report{
		Env:            env,
		TotalInstalled: total,
		PythonVersion:  python,
		Statuses:       statuses,
		SatisfiesAll:   true,
	}
	for _, st := range statuses {
		r.Score += st.Kind.Weight()
		if st.Kind != Found {
			r.SatisfiesAll = false
		}
	}
	return r
}

// Unavailable is the report for an environment whose listing could not be
// retrieved. It always ranks last.
func Unavailable(env string, reqs []requirement.Requirement, detail string) Report {
	r := Failed(env, reqs, detail)
	r.Score = Worst
	return r
}

// Failed is the report for an environment whose listing could not be
// evaluated: every requirement is marked Error with the shared detail.
func Failed(env string, reqs []requirement.Requirement, detail string) Report {
	statuses := make([]RequirementStatus, len(reqs))
	for i, req := range reqs {
		statuses[i] = RequirementStatus{Requirement: req, Status: Status{Kind: Error, Detail: detail}}
	}
	r := newReport(env, Worst, "", statuses)
	r.SatisfiesAll = false
	return r
}

// Kinds returns the status kind of every requirement, in requirement order.
func (r Report) Kinds() []Kind {
	kinds := make([]Kind, len(r.Statuses))
	for i, st := range r.Statuses {
		kinds[i] = st.Kind
	}
	return kinds
}

package evaluate

import "fmt"

// Kind classifies how one requirement fared in one environment.
type Kind string

const (
	Missing         Kind = "missing"
	VersionInvalid  Kind = "version_invalid"
	VersionMismatch Kind = "version_mismatch"
	Found           Kind = "found"
	Error           Kind = "error"
)

// weights maps each kind to its score contribution. Lower is better; ranking
// depends only on Found < VersionMismatch = VersionInvalid < Missing < Error.
var weights = map[Kind]int{
	Found:           0,
	VersionMismatch: 1,
	VersionInvalid:  1,
	Missing:         2,
	Error:           3,
}

// Weight returns the score contribution of k.
func (k Kind) Weight() int {
	w, ok := weights[k]
	if !ok {
		panic(fmt.Sprintf("evaluate: unknown status kind %q", string(k)))
	}
	return w
}

// Status is the outcome for one requirement. Detail holds the matched
// version for Found and a human readable explanation otherwise.
type Status struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (s Status) String() string {
	if s.Detail == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + ": " + s.Detail
}

// Package report renders scan results for the terminal or as YAML/JSON
// documents.
package report

import (
	"fmt"
	"io"

	"github.com/frederic-klein/condascan/internal/listing"
	"github.com/frederic-klein/condascan/internal/rank"
	"github.com/frederic-klein/condascan/internal/scan"
)

// Output formats accepted by New.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// CompareOptions controls the compare output.
type CompareOptions struct {
	// All also lists the packages installed at the same version in both.
	All bool
}

// Presenter writes the result of one command to w.
type Presenter interface {
	Have(w io.Writer, res rank.Result, p rank.Policy) error
	Execute(w io.Writer, results []scan.ExecResult, p rank.Policy) error
	Compare(w io.Writer, a, b string, d listing.Diff, opts CompareOptions) error
}

// New returns the presenter for format.
func New(format string) (Presenter, error) {
	switch format {
	case FormatText, "":
		return Text{}, nil
	case FormatYAML:
		return yamlPresenter(), nil
	case FormatJSON:
		return jsonPresenter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, yaml or json)", format)
	}
}

// executable returns the results the policy presents: successes only unless
// verbose, truncated to the limit.
func executable(results []scan.ExecResult, p rank.Policy) (shown []scan.ExecResult, successes int) {
	for _, r := range results {
		if r.OK() {
			successes++
		}
		if p.Verbose || r.OK() {
			shown = append(shown, r)
		}
	}
	if p.Limited() && len(shown) > p.Limit {
		shown = shown[:p.Limit]
	}
	return shown, successes
}

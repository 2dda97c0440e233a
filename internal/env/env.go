package env

import "path/filepath"

// Environment is a conda environment as reported by "conda env list".
type Environment struct {
	Name   string // e.g., "ml", or the prefix for unnamed environments
	Prefix string // e.g., "/opt/conda/envs/ml"
	Active bool   // marked with "*" in the env list
}

// Named reports whether the environment has a name distinct from its prefix.
func (e Environment) Named() bool {
	return e.Name != "" && e.Name != e.Prefix
}

// Key returns the identifier used for caching and for "conda -n/-p".
func (e Environment) Key() string {
	if e.Named() {
		return e.Name
	}
	return filepath.Clean(e.Prefix)
}

// Mode names the command a report answers.
type Mode string

const (
	ModeHave       Mode = "have"
	ModeCanExecute Mode = "can-execute"
	ModeCompare    Mode = "compare"
)

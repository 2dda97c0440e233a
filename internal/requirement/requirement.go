// Package requirement parses package requirements such as "numpy>=1.20" or
// "scikit-learn[alldeps] ~= 1.3, != 1.3.1".
package requirement

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/frederic-klein/condascan/internal/listing"
	"github.com/frederic-klein/condascan/internal/version"
)

// ErrInvalidRequirement is returned (wrapped) for malformed requirement
// strings.
var ErrInvalidRequirement = errors.New("invalid requirement")

var (
	requirementRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[([^\]]*)\])?\s*(.*)$`)
	nameRe        = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
)

// Requirement is a package name plus zero or more version clauses.
type Requirement struct {
	// Name is the normalized package name.
	Name string
	// Raw is the string the requirement was parsed from, trimmed.
	Raw     string
	Extras  []string
	Clauses []version.Clause
}

// Specifier returns the version clauses in specifier syntax, or "" if any
// version is accepted.
func (r Requirement) Specifier() string {
	return version.FormatSpecifier(r.Clauses)
}

// String returns the requirement in canonical form.
func (r Requirement) String() string {
	s := r.Name
	if len(r.Extras) != 0 {
		s += "[" + strings.Join(r.Extras, ",") + "]"
	}
	return s + r.Specifier()
}

// Satisfies reports whether v meets every clause of r.
func (r Requirement) Satisfies(v version.Version) bool {
	return version.Satisfies(v, r.Clauses)
}

// Parse parses a single requirement string.
func Parse(s string) (Requirement, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Requirement{}, fmt.Errorf("%w: empty requirement", ErrInvalidRequirement)
	}
	if strings.Contains(raw, ";") {
		return Requirement{}, fmt.Errorf("%w: %q: environment markers are not supported", ErrInvalidRequirement, raw)
	}

	m := requirementRe.FindStringSubmatch(raw)
	if m == nil || !nameRe.MatchString(m[1]) {
		return Requirement{}, fmt.Errorf("%w: %q: missing or malformed package name", ErrInvalidRequirement, raw)
	}

	req := Requirement{
		Name: listing.NormalizeName(m[1]),
		Raw:  raw,
	}
	for _, extra := range strings.Split(m[2], ",") {
		if extra = strings.TrimSpace(extra); extra != "" {
			req.Extras = append(req.Extras, listing.NormalizeName(extra))
		}
	}

	spec := strings.TrimSpace(m[3])
	if strings.HasPrefix(spec, "(") && strings.HasSuffix(spec, ")") {
		spec = spec[1 : len(spec)-1]
	}
	clauses, err := version.ParseSpecifier(spec)
	if err != nil {
		return Requirement{}, fmt.Errorf("%w: %q: %w", ErrInvalidRequirement, raw, err)
	}
	req.Clauses = clauses
	return req, nil
}

// ParseAll parses every string in order and stops at the first invalid one.
func ParseAll(ss []string) ([]Requirement, error) {
	reqs := make([]Requirement, 0, len(ss))
	for _, s := range ss {
		req, err := Parse(s)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// ParseFile reads requirements from a requirements.txt style file: one
// requirement per line, "#" comments, blank lines and pip options ("-r",
// "--index-url" ...) are skipped.
func ParseFile(path string) ([]Requirement, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening requirements file: %w", err)
	}
	defer file.Close()

	var reqs []Requirement
	lineNo := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.Index(line, " #"); i != -1 {
			line = line[:i]
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "-") {
			continue
		}

		req, err := Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		reqs = append(reqs, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirements file: %w", err)
	}

	return reqs, nil
}

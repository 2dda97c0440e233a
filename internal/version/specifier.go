package version

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Op is a comparison operator of a version clause.
type Op string

// Supported operators.
const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
	OpCompatible   Op = "~="
)

// Longest first, so "<=" is not read as "<".
var ops = []Op{OpCompatible, OpEqual, OpNotEqual, OpLessEqual, OpGreaterEqual, OpLess, OpGreater}

// ErrSpecifier is returned (wrapped) for malformed version specifiers.
var ErrSpecifier = errors.New("invalid version specifier")

// Clause is one (operator, version) pair of a specifier. Wildcard is set for
// prefix matches such as "==1.2.*".
type Clause struct {
	Op       Op
	Version  Version
	Wildcard bool
}

// String returns the clause in specifier syntax.
func (c Clause) String() string {
	s := string(c.Op) + c.Version.String()
	if c.Wildcard {
		s += ".*"
	}
	return s
}

// Match reports whether v satisfies the clause.
//
// A clause version without a local label ignores the candidate's local
// label, so "==2.0" matches "2.0+cpu". The exclusive comparisons never
// match a pre-release of their own version ("<2.0" rejects "2.0rc1") or a
// post-release of it (">1.0" rejects "1.0.post1"), unless the clause version
// is itself one.
func (c Clause) Match(v Version) bool {
	if len(c.Version.Local) == 0 {
		v = v.Public()
	}
	switch c.Op {
	case OpEqual:
		if c.Wildcard {
			return hasPrefix(v, c.Version.Epoch, c.Version.Release)
		}
		return Compare(v, c.Version) == 0
	case OpNotEqual:
		if c.Wildcard {
			return !hasPrefix(v, c.Version.Epoch, c.Version.Release)
		}
		return Compare(v, c.Version) != 0
	case OpLess:
		if !c.Version.IsPreRelease() && v.IsPreRelease() && sameBase(v, c.Version) {
			return false
		}
		return Compare(v, c.Version) < 0
	case OpLessEqual:
		return Compare(v, c.Version) <= 0
	case OpGreater:
		if !c.Version.HasPost && v.HasPost && sameBase(v, c.Version) {
			return false
		}
		return Compare(v, c.Version) > 0
	case OpGreaterEqual:
		return Compare(v, c.Version) >= 0
	case OpCompatible:
		prefix := c.Version.Release[:len(c.Version.Release)-1]
		return Compare(v, c.Version) >= 0 && hasPrefix(v, c.Version.Epoch, prefix)
	}
	return false
}

// sameBase reports whether v and w share epoch and release.
func sameBase(v, w Version) bool {
	return v.Epoch == w.Epoch && compareRelease(v.Release, w.Release) == 0
}

func hasPrefix(v Version, epoch int, release []int) bool {
	if v.Epoch != epoch {
		return false
	}
	for i, n := range release {
		if segment(v.Release, i) != n {
			return false
		}
	}
	return true
}

// Satisfies reports whether v matches every clause. No clauses always
// matches.
func Satisfies(v Version, clauses []Clause) bool {
	for _, c := range clauses {
		if !c.Match(v) {
			return false
		}
	}
	return true
}

// FormatSpecifier joins clauses back into specifier syntax.
func FormatSpecifier(clauses []Clause) string {
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// ParseSpecifier parses comma-joined clauses such as ">=1.20, <2". Blanks
// anywhere in s are ignored. An empty s yields no clauses.
func ParseSpecifier(s string) ([]Clause, error) {
	s = strings.Map(stripSpace, s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	clauses := make([]Clause, 0, len(parts))
	for _, part := range parts {
		c, err := parseClause(part)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

func parseClause(s string) (Clause, error) {
	var c Clause
	if s == "" {
		return c, fmt.Errorf("%w: empty clause", ErrSpecifier)
	}
	if strings.HasPrefix(s, "===") {
		return c, fmt.Errorf("%w: arbitrary equality is not supported: %q", ErrSpecifier, s)
	}
	for _, op := range ops {
		if strings.HasPrefix(s, string(op)) {
			c.Op = op
			break
		}
	}
	if c.Op == "" {
		return c, fmt.Errorf("%w: unknown operator in %q", ErrSpecifier, s)
	}

	raw := s[len(c.Op):]
	if trimmed, ok := strings.CutSuffix(raw, ".*"); ok {
		if c.Op != OpEqual && c.Op != OpNotEqual {
			return c, fmt.Errorf("%w: wildcard not allowed with %s: %q", ErrSpecifier, c.Op, s)
		}
		c.Wildcard = true
		raw = trimmed
	}

	v, err := Parse(raw)
	if err != nil {
		return c, fmt.Errorf("%w: %q: %w", ErrSpecifier, s, err)
	}
	if c.Wildcard && len(v.Local) != 0 {
		return c, fmt.Errorf("%w: wildcard with local label: %q", ErrSpecifier, s)
	}
	if c.Op == OpCompatible && len(v.Release) < 2 {
		return c, fmt.Errorf("%w: %s needs at least two release segments: %q", ErrSpecifier, c.Op, s)
	}
	c.Version = v
	return c, nil
}

func stripSpace(r rune) rune {
	if unicode.IsSpace(r) {
		return -1
	}
	return r
}

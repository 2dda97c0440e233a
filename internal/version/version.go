// Package version parses and orders package versions.
//
// The accepted grammar is PEP 440, which covers the version strings found in
// conda and pip listings for the most part. Strings outside of it (for
// example openssl's "1.1.1w") do not parse and are reported as invalid.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalid is returned (wrapped) for strings that are not versions.
var ErrInvalid = errors.New("invalid version")

var pattern = regexp.MustCompile(`^v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_\.]?(?P<pre_l>alpha|a|beta|b|preview|pre|c|rc)[-_\.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_\.]?(?P<post_l>post|rev|r)[-_\.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_\.]?(?P<dev_l>dev)[-_\.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_\.][a-z0-9]+)*))?$`)

// Pre is a pre-release marker. Label is one of "a", "b", "rc", or empty when
// the version is not a pre-release.
type Pre struct {
	Label string
	N     int
}

// Version is a parsed, normalized version. Versions are values; nothing in
// this package modifies one after Parse returns it.
type Version struct {
	Epoch   int
	Release []int
	Pre     Pre
	Post    int
	HasPost bool
	Dev     int
	HasDev  bool
	Local   []string
}

// Parse normalizes raw into a Version.
func Parse(raw string) (Version, error) {
	var v Version
	s := strings.ToLower(strings.TrimSpace(raw))
	ms := pattern.FindStringSubmatch(s)
	if ms == nil {
		return v, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}

	var err error
	for i, name := range pattern.SubexpNames() {
		if ms[i] == "" {
			continue
		}
		switch name {
		case "epoch":
			v.Epoch, err = atoi(ms[i])
		case "release":
			parts := strings.Split(ms[i], ".")
			v.Release = make([]int, len(parts))
			for j, p := range parts {
				if v.Release[j], err = atoi(p); err != nil {
					break
				}
			}
		case "pre_l":
			switch ms[i] {
			case "a", "alpha":
				v.Pre.Label = "a"
			case "b", "beta":
				v.Pre.Label = "b"
			default:
				v.Pre.Label = "rc"
			}
		case "pre_n":
			v.Pre.N, err = atoi(ms[i])
		case "post":
			v.HasPost = true
		case "post_n1", "post_n2":
			v.Post, err = atoi(ms[i])
		case "dev":
			v.HasDev = true
		case "dev_n":
			v.Dev, err = atoi(ms[i])
		case "local":
			v.Local = strings.FieldsFunc(ms[i], func(r rune) bool {
				return r == '-' || r == '_' || r == '.'
			})
		}
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalid, raw, err)
		}
	}
	return v, nil
}

// MustParse is like Parse but panics on error. For tests and constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// IsPreRelease reports whether v is a pre or dev release.
func (v Version) IsPreRelease() bool {
	return v.Pre.Label != "" || v.HasDev
}

// Public returns v without its local label.
func (v Version) Public() Version {
	v.Local = nil
	return v
}

// String returns the canonical form of v.
func (v Version) String() string {
	var b strings.Builder
	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}
	for i, n := range v.Release {
		if i != 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	if v.Pre.Label != "" {
		b.WriteString(v.Pre.Label)
		b.WriteString(strconv.Itoa(v.Pre.N))
	}
	if v.HasPost {
		fmt.Fprintf(&b, ".post%d", v.Post)
	}
	if v.HasDev {
		fmt.Fprintf(&b, ".dev%d", v.Dev)
	}
	if len(v.Local) != 0 {
		b.WriteByte('+')
		b.WriteString(strings.Join(v.Local, "."))
	}
	return b.String()
}

// Equal reports whether v and w normalize to the same version.
func (v Version) Equal(w Version) bool {
	return Compare(v, w) == 0
}

// Less reports whether v sorts before w.
func (v Version) Less(w Version) bool {
	return Compare(v, w) < 0
}

// Compare returns -1, 0 or +1 as a is less than, equal to or greater than b.
//
// Ordering: epoch, release (missing segments count as zero), then dev <
// pre-release < final < post-release, then the local label.
func Compare(a, b Version) int {
	if c := cmpInt(a.Epoch, b.Epoch); c != 0 {
		return c
	}
	if c := compareRelease(a.Release, b.Release); c != 0 {
		return c
	}
	if c := a.preKey().compare(b.preKey()); c != 0 {
		return c
	}
	if c := a.postKey().compare(b.postKey()); c != 0 {
		return c
	}
	if c := a.devKey().compare(b.devKey()); c != 0 {
		return c
	}
	return compareLocal(a.Local, b.Local)
}

func compareRelease(a, b []int) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := cmpInt(segment(a, i), segment(b, i)); c != 0 {
			return c
		}
	}
	return 0
}

func segment(r []int, i int) int {
	if i < len(r) {
		return r[i]
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// key is one sortable component of a version. Absent components sort either
// before (bound == -1) or after (bound == +1) every present value.
type key struct {
	bound int
	major int
	minor int
}

var (
	negInf = key{bound: -1}
	posInf = key{bound: 1}
)

func (a key) compare(b key) int {
	if c := cmpInt(a.bound, b.bound); c != 0 || a.bound != 0 {
		return c
	}
	if c := cmpInt(a.major, b.major); c != 0 {
		return c
	}
	return cmpInt(a.minor, b.minor)
}

var preRank = map[string]int{"a": 0, "b": 1, "rc": 2}

func (v Version) preKey() key {
	switch {
	case v.Pre.Label == "" && !v.HasPost && v.HasDev:
		// 1.0.dev0 sorts before 1.0a0.
		return negInf
	case v.Pre.Label == "":
		return posInf
	}
	return key{major: preRank[v.Pre.Label], minor: v.Pre.N}
}

func (v Version) postKey() key {
	if !v.HasPost {
		return negInf
	}
	return key{major: v.Post}
}

func (v Version) devKey() key {
	if !v.HasDev {
		return posInf
	}
	return key{major: v.Dev}
}

// compareLocal orders local labels. No label sorts first; numeric segments
// sort after alphanumeric ones and compare by value.
func compareLocal(a, b []string) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return -1
	case len(b) == 0:
		return 1
	}
	for i := 0; i < min(len(a), len(b)); i++ {
		an, aerr := strconv.Atoi(a[i])
		bn, berr := strconv.Atoi(b[i])
		var c int
		switch {
		case aerr == nil && berr == nil:
			c = cmpInt(an, bn)
		case aerr == nil:
			c = 1
		case berr == nil:
			c = -1
		default:
			c = strings.Compare(a[i], b[i])
		}
		if c != 0 {
			return c
		}
	}
	return cmpInt(len(a), len(b))
}

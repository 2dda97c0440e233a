// Package listing reads the raw package listings produced by a package
// manager ("name version build channel" lines) and compares them.
package listing

import (
	"regexp"
	"strings"
)

var separatorRe = regexp.MustCompile(`[-_.]+`)

// NormalizeName canonicalizes a package name so that "My-Package",
// "my_package" and "MY.PACKAGE" compare equal.
func NormalizeName(raw string) string {
	return separatorRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "-")
}

// Record is one installed package of a listing.
type Record struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// Key returns the normalized package name.
func (r Record) Key() string {
	return NormalizeName(r.Name)
}

// ParseLine extracts a record from a listing line. Blank lines, comments and
// lines with fewer than two fields (headers) are skipped, reported by ok.
func ParseLine(line string) (rec Record, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return rec, false
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return rec, false
	}
	return Record{Name: fields[0], Version: fields[1]}, true
}

// Parse returns the records of a listing in order.
func Parse(lines []string) []Record {
	var recs []Record
	for _, line := range lines {
		if rec, ok := ParseLine(line); ok {
			recs = append(recs, rec)
		}
	}
	return recs
}

// Count returns the number of package lines in a listing.
func Count(lines []string) int {
	n := 0
	for _, line := range lines {
		if _, ok := ParseLine(line); ok {
			n++
		}
	}
	return n
}

// Lookup returns the first record whose normalized name equals name's.
func Lookup(lines []string, name string) (Record, bool) {
	key := NormalizeName(name)
	for _, line := range lines {
		rec, ok := ParseLine(line)
		if ok && rec.Key() == key {
			return rec, true
		}
	}
	return Record{}, false
}

package listing

import "sort"

// Pair is a package present in both listings of a Diff.
type Pair struct {
	Name     string `json:"name" yaml:"name"`
	VersionA string `json:"version_a" yaml:"version_a"`
	VersionB string `json:"version_b" yaml:"version_b"`
}

// Diff is the difference of two listings. All slices are sorted by
// normalized package name.
type Diff struct {
	OnlyA []Record `json:"only_a" yaml:"only_a"`
	OnlyB []Record `json:"only_b" yaml:"only_b"`
	Both  []Pair   `json:"both" yaml:"both"`
}

// Changed returns the pairs whose raw versions differ.
func (d Diff) Changed() []Pair {
	var out []Pair
	for _, p := range d.Both {
		if p.VersionA != p.VersionB {
			out = append(out, p)
		}
	}
	return out
}

// Compare diffs two raw listings. Names are matched after NormalizeName; if a
// listing names a package twice, its first line wins.
func Compare(a, b []string) Diff {
	ia, ib := index(a), index(b)

	var d Diff
	for key, ra := range ia {
		rb, ok := ib[key]
		if !ok {
			d.OnlyA = append(d.OnlyA, ra)
			continue
		}
		d.Both = append(d.Both, Pair{Name: ra.Name, VersionA: ra.Version, VersionB: rb.Version})
	}
	for key, rb := range ib {
		if _, ok := ia[key]; !ok {
			d.OnlyB = append(d.OnlyB, rb)
		}
	}

	sort.Slice(d.OnlyA, func(i, j int) bool { return d.OnlyA[i].Key() < d.OnlyA[j].Key() })
	sort.Slice(d.OnlyB, func(i, j int) bool { return d.OnlyB[i].Key() < d.OnlyB[j].Key() })
	sort.Slice(d.Both, func(i, j int) bool { return NormalizeName(d.Both[i].Name) < NormalizeName(d.Both[j].Name) })
	return d
}

func index(lines []string) map[string]Record {
	m := make(map[string]Record)
	for _, rec := range Parse(lines) {
		if _, ok := m[rec.Key()]; !ok {
			m[rec.Key()] = rec
		}
	}
	return m
}

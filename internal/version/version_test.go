package version

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type parseTestcase struct {
	Name string
	In   string
	Err  bool
	Want Version
}

func (tc parseTestcase) Run(t *testing.T) {
	v, err := Parse(tc.In)
	if (err != nil) != tc.Err {
		t.Fatalf("Parse(%q) error = %v, want error %v", tc.In, err, tc.Err)
	}
	if tc.Err {
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalid", tc.In, err)
		}
		return
	}
	if !cmp.Equal(tc.Want, v) {
		t.Error(cmp.Diff(tc.Want, v))
	}
}

func TestParse(t *testing.T) {
	tt := []parseTestcase{
		{
			Name: "Simple",
			In:   "1.21.0",
			Want: Version{Release: []int{1, 21, 0}},
		},
		{
			Name: "LeadingZero",
			In:   "01.0",
			Want: Version{Release: []int{1, 0}},
		},
		{
			Name: "Date",
			In:   "2023.3",
			Want: Version{Release: []int{2023, 3}},
		},
		{
			Name: "All",
			In:   "1!2.3.4-a5-post_6.dev7+ubuntu.1",
			Want: Version{
				Epoch:   1,
				Release: []int{2, 3, 4},
				Pre:     Pre{Label: "a", N: 5},
				Post:    6,
				HasPost: true,
				Dev:     7,
				HasDev:  true,
				Local:   []string{"ubuntu", "1"},
			},
		},
		{
			Name: "Spellings",
			In:   " V1.0-Preview2 ",
			Want: Version{Release: []int{1, 0}, Pre: Pre{Label: "rc", N: 2}},
		},
		{
			Name: "ImplicitPost",
			In:   "1.0-3",
			Want: Version{Release: []int{1, 0}, Post: 3, HasPost: true},
		},
		{
			Name: "BarePost",
			In:   "1.0.post",
			Want: Version{Release: []int{1, 0}, HasPost: true},
		},
		{
			Name: "Letters",
			In:   "abc",
			Err:  true,
		},
		{
			Name: "OpensslStyle",
			In:   "1.1.1w",
			Err:  true,
		},
		{
			Name: "Empty",
			In:   "",
			Err:  true,
		},
	}
	for _, tc := range tt {
		t.Run(tc.Name, tc.Run)
	}
}

func TestEqualAcrossFormatting(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"1.0", "1.0.0"},
		{"1.0", "01.0"},
		{"1.0.0", "1"},
		{"1.0alpha1", "1.0a1"},
		{"1.0-rc.1", "1.0rc1"},
		{"1.0-1", "1.0.post1"},
		{"1.0.dev", "1.0.dev0"},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			a, b := MustParse(tt.a), MustParse(tt.b)
			if !a.Equal(b) {
				t.Errorf("Compare(%q, %q) = %d, want 0", tt.a, tt.b, Compare(a, b))
			}
		})
	}
}

func TestOrdering(t *testing.T) {
	want := []string{
		"1.0.dev0",
		"1.0a1.dev1",
		"1.0a1",
		"1.0b2",
		"1.0rc1",
		"1.0",
		"1.0+abc",
		"1.0+5",
		"1.0+5.1",
		"1.0.post1.dev3",
		"1.0.post1",
		"1.1",
		"1.10",
		"2!0.1",
	}
	in := make([]Version, len(want))
	for i := range want {
		in[len(want)-1-i] = MustParse(want[i])
	}
	sort.SliceStable(in, func(i, j int) bool { return in[i].Less(in[j]) })

	got := make([]string, len(in))
	for i, v := range in {
		got[i] = v.String()
	}
	canonical := make([]string, len(want))
	for i, s := range want {
		canonical[i] = MustParse(s).String()
	}
	if !cmp.Equal(canonical, got) {
		t.Error(cmp.Diff(canonical, got))
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.0", "1.0"},
		{"v01.02", "1.2"},
		{"1.0-beta", "1.0b0"},
		{"1!1.0.post2.dev1+local.7", "1!1.0.post2.dev1+local.7"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MustParse(tt.in).String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

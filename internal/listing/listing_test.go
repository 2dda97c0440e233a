package listing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My-Package", "my-package"},
		{"my_package", "my-package"},
		{"MY.PACKAGE", "my-package"},
		{"a--_.b", "a-b"},
		{" numpy ", "numpy"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Record
		wantOK bool
	}{
		{"conda line", "numpy                     1.21.0           py39h5d0ccc0_0    conda-forge", Record{"numpy", "1.21.0"}, true},
		{"pypi line", "requests 2.31.0 pypi_0 pypi", Record{"requests", "2.31.0"}, true},
		{"blank", "   ", Record{}, false},
		{"comment", "# packages in environment at /opt/conda:", Record{}, false},
		{"indented comment", "  # Name Version Build Channel", Record{}, false},
		{"single token", "garbage", Record{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ParseLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestCountAndLookup(t *testing.T) {
	lines := []string{
		"# packages in environment at /opt/conda/envs/ml:",
		"#",
		"# Name Version Build Channel",
		"",
		"numpy 1.21.0 py39h_0",
		"Scikit_Learn 1.3.0 pypi_0 pypi",
		"header-only",
		"scikit-learn 0.24 py39_0",
	}
	if got := Count(lines); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	rec, ok := Lookup(lines, "scikit.learn")
	if !ok {
		t.Fatal("Lookup() did not find scikit-learn")
	}
	if rec.Version != "1.3.0" {
		t.Errorf("Lookup() version = %q, want first line's 1.3.0", rec.Version)
	}
	if _, ok := Lookup(lines, "pandas"); ok {
		t.Error("Lookup(pandas) found a record, want none")
	}
}

func TestCompare(t *testing.T) {
	a := []string{
		"# Name Version Build Channel",
		"numpy 1.21.0 py39_0",
		"pandas 1.3.0 py39_0",
		"My_Pkg 0.1 pypi_0",
	}
	b := []string{
		"numpy 1.26.4 py311_0",
		"my-pkg 0.1 pypi_0",
		"scipy 1.11.0 py311_0",
	}
	got := Compare(a, b)
	want := Diff{
		OnlyA: []Record{{Name: "pandas", Version: "1.3.0"}},
		OnlyB: []Record{{Name: "scipy", Version: "1.11.0"}},
		Both: []Pair{
			{Name: "My_Pkg", VersionA: "0.1", VersionB: "0.1"},
			{Name: "numpy", VersionA: "1.21.0", VersionB: "1.26.4"},
		},
	}
	if !cmp.Equal(want, got) {
		t.Error(cmp.Diff(want, got))
	}

	changed := got.Changed()
	if len(changed) != 1 || changed[0].Name != "numpy" {
		t.Errorf("Changed() = %+v, want only numpy", changed)
	}
}

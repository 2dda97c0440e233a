package conda

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/frederic-klein/condascan/internal/env"
)

// fakeExecutor answers commands from a table keyed by the joined arguments.
type fakeExecutor struct {
	outputs map[string]Output
	err     error
	calls   []string
}

func (f *fakeExecutor) Execute(_ context.Context, name string, args ...string) (Output, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, name+" "+key)
	if f.err != nil {
		return Output{}, f.err
	}
	out, ok := f.outputs[key]
	if !ok {
		return Output{ExitCode: 1, Stderr: []byte("unexpected command: " + key)}, nil
	}
	return out, nil
}

const envList = `# conda environments:
#
base                  *  /opt/conda
ml                       /opt/conda/envs/ml
                         /home/user/projects/venv

`

func TestParseEnvList(t *testing.T) {
	got := ParseEnvList(envList)
	want := []env.Environment{
		{Name: "base", Prefix: "/opt/conda", Active: true},
		{Name: "ml", Prefix: "/opt/conda/envs/ml"},
		{Name: "/home/user/projects/venv", Prefix: "/home/user/projects/venv"},
	}
	if !cmp.Equal(want, got) {
		t.Error(cmp.Diff(want, got))
	}
}

func TestClient_CheckInstalled(t *testing.T) {
	tests := []struct {
		name    string
		exec    *fakeExecutor
		wantErr bool
	}{
		{
			name: "installed",
			exec: &fakeExecutor{outputs: map[string]Output{"--version": {Stdout: []byte("conda 24.1.2\n")}}},
		},
		{
			name:    "binary missing",
			exec:    &fakeExecutor{err: &exec.Error{Name: "conda", Err: exec.ErrNotFound}},
			wantErr: true,
		},
		{
			name:    "non-zero exit",
			exec:    &fakeExecutor{outputs: map[string]Output{"--version": {ExitCode: 2}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewClient("", tt.exec, nil).CheckInstalled(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckInstalled() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrNotInstalled) {
				t.Errorf("CheckInstalled() error = %v, want ErrNotInstalled", err)
			}
		})
	}
}

func TestClient_Packages(t *testing.T) {
	fe := &fakeExecutor{outputs: map[string]Output{
		"list -n ml": {Stdout: []byte("# Name Version\r\nnumpy 1.26.4 py311_0\r\n")},
		"list -p /home/user/projects/venv": {Stdout: []byte("pandas 2.1.0 py311_0\n")},
	}}
	c := NewClient("/usr/bin/conda", fe, nil)

	lines, err := c.Packages(context.Background(), env.Environment{Name: "ml", Prefix: "/opt/conda/envs/ml"})
	if err != nil {
		t.Fatalf("Packages(ml) error = %v", err)
	}
	if want := []string{"# Name Version", "numpy 1.26.4 py311_0"}; !cmp.Equal(want, lines) {
		t.Error(cmp.Diff(want, lines))
	}

	prefix := "/home/user/projects/venv"
	lines, err = c.Packages(context.Background(), env.Environment{Name: prefix, Prefix: prefix})
	if err != nil {
		t.Fatalf("Packages(prefix) error = %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("Packages(prefix) = %v", lines)
	}

	if _, err := c.Packages(context.Background(), env.Environment{Name: "gone", Prefix: "/x"}); err == nil {
		t.Error("Packages(gone) error = nil, want failure")
	}
	if fe.calls[0] != "/usr/bin/conda list -n ml" {
		t.Errorf("first call = %q", fe.calls[0])
	}
}

func TestClient_Run(t *testing.T) {
	fe := &fakeExecutor{outputs: map[string]Output{
		"run -n ml python -c import torch": {ExitCode: 0, Stdout: []byte("ok\n")},
		"run -n base python -c import torch": {
			ExitCode: 1,
			Stderr:   []byte("ModuleNotFoundError: No module named 'torch'\n"),
		},
	}}
	c := NewClient("conda", fe, nil)

	for _, tc := range []struct {
		env      string
		wantCode int
	}{
		{"ml", 0},
		{"base", 1},
	} {
		t.Run(tc.env, func(t *testing.T) {
			res, err := c.Run(context.Background(), env.Environment{Name: tc.env, Prefix: "/p/" + tc.env}, `python -c "import torch"`)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.ExitCode != tc.wantCode {
				t.Errorf("ExitCode = %d, want %d (output %q)", res.ExitCode, tc.wantCode, res.Output)
			}
		})
	}

	if _, err := c.Run(context.Background(), env.Environment{Name: "ml"}, "   "); err == nil {
		t.Error("Run() with empty command error = nil")
	}
}

func TestLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a\n", []string{"a"}},
		{"a\r\nb", []string{"a", "b"}},
		{"a\n\nb\n", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			if got := Lines(tt.in); !cmp.Equal(tt.want, got) {
				t.Error(cmp.Diff(tt.want, got))
			}
		})
	}
}

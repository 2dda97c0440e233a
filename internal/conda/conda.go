// Package conda runs the conda binary to discover environments, list their
// packages and run commands inside them.
package conda

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/shell"

	"github.com/frederic-klein/condascan/internal/env"
)

// ErrNotInstalled is returned when the conda binary cannot be run.
var ErrNotInstalled = errors.New("conda is not installed or not on PATH")

// Output is the result of one process execution.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executor runs a process to completion. A non-zero exit status is reported
// through Output.ExitCode, not as an error.
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (Output, error)
}

// SystemExecutor runs processes with os/exec.
type SystemExecutor struct{}

// Execute implements Executor.
func (SystemExecutor) Execute(ctx context.Context, name string, args ...string) (Output, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

// Client talks to one conda installation.
type Client struct {
	bin    string
	exec   Executor
	logger *log.Logger
}

// NewClient creates a client for the conda binary bin. A nil executor uses
// SystemExecutor; a nil logger discards log output.
func NewClient(bin string, executor Executor, logger *log.Logger) *Client {
	if bin == "" {
		bin = "conda"
	}
	if executor == nil {
		executor = SystemExecutor{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{bin: bin, exec: executor, logger: logger}
}

func (c *Client) run(ctx context.Context, args ...string) (Output, error) {
	c.logger.Debug("running conda", "bin", c.bin, "args", args)
	out, err := c.exec.Execute(ctx, c.bin, args...)
	if errors.Is(err, exec.ErrNotFound) {
		return out, fmt.Errorf("%w: %s", ErrNotInstalled, c.bin)
	}
	return out, err
}

// CheckInstalled verifies that "conda --version" succeeds.
func (c *Client) CheckInstalled(ctx context.Context) error {
	out, err := c.run(ctx, "--version")
	if err != nil {
		if errors.Is(err, ErrNotInstalled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}
	if out.ExitCode != 0 {
		return fmt.Errorf("%w: %s --version exited with status %d", ErrNotInstalled, c.bin, out.ExitCode)
	}
	c.logger.Debug("conda found", "version", strings.TrimSpace(string(out.Stdout)))
	return nil
}

// Environments lists the environments known to conda, in the order conda
// reports them.
func (c *Client) Environments(ctx context.Context) ([]env.Environment, error) {
	out, err := c.run(ctx, "env", "list")
	if err != nil {
		return nil, fmt.Errorf("listing environments: %w", err)
	}
	if out.ExitCode != 0 {
		return nil, fmt.Errorf("listing environments: %s", failure(out))
	}
	return ParseEnvList(string(out.Stdout)), nil
}

// ParseEnvList parses the output of "conda env list".
func ParseEnvList(s string) []env.Environment {
	var envs []env.Environment
	for _, line := range Lines(s) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		var e env.Environment
		rest := trimmed
		if !unicode.IsSpace(rune(line[0])) {
			e.Name = strings.Fields(trimmed)[0]
			rest = strings.TrimSpace(trimmed[len(e.Name):])
		}
		if strings.HasPrefix(rest, "*") {
			e.Active = true
			rest = strings.TrimSpace(rest[1:])
		}
		e.Prefix = rest
		switch {
		case e.Name == "" && e.Prefix == "":
			continue
		case e.Name == "":
			e.Name = e.Prefix
		case e.Prefix == "":
			e.Prefix = e.Name
		}
		envs = append(envs, e)
	}
	return envs
}

func target(e env.Environment) []string {
	if e.Named() {
		return []string{"-n", e.Name}
	}
	return []string{"-p", e.Prefix}
}

// Packages returns the raw "conda list" output lines of e.
func (c *Client) Packages(ctx context.Context, e env.Environment) ([]string, error) {
	args := append([]string{"list"}, target(e)...)
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("listing packages of %s: %w", e.Key(), err)
	}
	if out.ExitCode != 0 {
		return nil, fmt.Errorf("listing packages of %s: %s", e.Key(), failure(out))
	}
	return Lines(string(out.Stdout)), nil
}

// RunResult is the outcome of a command run inside an environment.
type RunResult struct {
	ExitCode int
	Output   string
}

// Run executes command, split into words with POSIX shell rules, inside e
// through "conda run".
func (c *Client) Run(ctx context.Context, e env.Environment, command string) (RunResult, error) {
	words, err := shell.Fields(command, nil)
	if err != nil {
		return RunResult{}, fmt.Errorf("parsing command %q: %w", command, err)
	}
	if len(words) == 0 {
		return RunResult{}, fmt.Errorf("parsing command %q: empty command", command)
	}

	args := append([]string{"run"}, target(e)...)
	args = append(args, words...)
	out, err := c.run(ctx, args...)
	if err != nil {
		return RunResult{}, fmt.Errorf("running %q in %s: %w", command, e.Key(), err)
	}
	return RunResult{
		ExitCode: out.ExitCode,
		Output:   strings.TrimSpace(string(out.Stdout) + string(out.Stderr)),
	}, nil
}

// Lines splits process output into lines, dropping carriage returns.
func Lines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func failure(out Output) string {
	msg := strings.TrimSpace(string(out.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(out.Stdout))
	}
	if msg == "" {
		return fmt.Sprintf("exit status %d", out.ExitCode)
	}
	return fmt.Sprintf("exit status %d: %s", out.ExitCode, msg)
}

// Package scan runs the per-environment work of a command across all
// environments: fetching listings or running commands on a worker pool,
// then evaluating and ranking in discovery order.
package scan

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/condascan/internal/conda"
	"github.com/frederic-klein/condascan/internal/env"
	"github.com/frederic-klein/condascan/internal/evaluate"
	"github.com/frederic-klein/condascan/internal/listing"
	"github.com/frederic-klein/condascan/internal/rank"
	"github.com/frederic-klein/condascan/internal/requirement"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 4

// Runner executes a command inside an environment. *conda.Client implements
// it.
type Runner interface {
	Run(ctx context.Context, e env.Environment, command string) (conda.RunResult, error)
}

// ExecResult is the outcome of running a command in one environment.
type ExecResult struct {
	Env      string
	ExitCode int
	Output   string
	Err      error
}

// OK reports whether the command ran and exited 0.
func (r ExecResult) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Scanner runs commands across environments.
type Scanner struct {
	source   Source
	runner   Runner
	workers  int
	logger   *log.Logger
	evalOpts []evaluate.Option
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers sets the number of environments processed concurrently.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEvaluateOptions passes opts to every evaluate.Evaluate call.
func WithEvaluateOptions(opts ...evaluate.Option) Option {
	return func(s *Scanner) {
		s.evalOpts = append(s.evalOpts, opts...)
	}
}

// NewScanner creates a Scanner reading listings from source and running
// commands through runner. Either may be nil if the corresponding commands
// are not used.
func NewScanner(source Source, runner Runner, opts ...Option) *Scanner {
	s := &Scanner{
		source:  source,
		runner:  runner,
		workers: DefaultWorkers,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type fetched struct {
	lines []string
	err   error
}

func (s *Scanner) fetch(ctx context.Context, e env.Environment) fetched {
	lines, err := s.source.Listing(ctx, e)
	return fetched{lines: lines, err: err}
}

// Have evaluates every environment against reqs and ranks the reports.
// Under p.First the scan stops at the first environment, in discovery order,
// that satisfies every requirement; later environments are not evaluated.
func (s *Scanner) Have(ctx context.Context, envs []env.Environment, reqs []requirement.Requirement, p rank.Policy) (rank.Result, error) {
	s.logger.Debug("scanning environments", "count", len(envs), "requirements", len(reqs), "first", p.First)

	var reports []evaluate.Report
	if p.First {
		err := until(ctx, envs, s.workers, s.fetch, func(f fetched) bool {
			e := envs[len(reports)]
			r := s.evaluate(e, f, reqs)
			reports = append(reports, r)
			return r.SatisfiesAll
		})
		if err != nil {
			return rank.Result{}, err
		}
	} else {
		all, err := collect(ctx, envs, s.workers, s.fetch)
		if err != nil {
			return rank.Result{}, err
		}
		reports = make([]evaluate.Report, len(envs))
		for i, f := range all {
			reports[i] = s.evaluate(envs[i], f, reqs)
		}
	}

	return rank.Select(reports, p), nil
}

func (s *Scanner) evaluate(e env.Environment, f fetched, reqs []requirement.Requirement) evaluate.Report {
	if f.err != nil {
		s.logger.Warn("environment unavailable", "env", e.Name, "err", f.err)
		return evaluate.Unavailable(e.Name, reqs, f.err.Error())
	}
	r, err := evaluate.Evaluate(e.Name, f.lines, reqs, s.evalOpts...)
	if err != nil {
		s.logger.Warn("environment not evaluated", "env", e.Name, "err", err)
		return evaluate.Failed(e.Name, reqs, err.Error())
	}
	s.logger.Debug("evaluated", "env", e.Name, "score", r.Score, "satisfies_all", r.SatisfiesAll)
	return r
}

// CanExecute runs command in every environment and returns the results in
// discovery order. Under p.First the environments are tried one at a time
// and the command never runs past the first success.
func (s *Scanner) CanExecute(ctx context.Context, envs []env.Environment, command string, p rank.Policy) ([]ExecResult, error) {
	run := func(ctx context.Context, e env.Environment) ExecResult {
		res, err := s.runner.Run(ctx, e, command)
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrQuery, e.Name, err)
			s.logger.Warn("command not run", "env", e.Name, "err", err)
			return ExecResult{Env: e.Name, ExitCode: -1, Err: err}
		}
		s.logger.Debug("command finished", "env", e.Name, "exit_code", res.ExitCode)
		return ExecResult{Env: e.Name, ExitCode: res.ExitCode, Output: res.Output}
	}

	if p.First {
		var results []ExecResult
		err := until(ctx, envs, 1, run, func(r ExecResult) bool {
			results = append(results, r)
			return r.OK()
		})
		if err != nil {
			return nil, err
		}
		return results, nil
	}
	return collect(ctx, envs, s.workers, run)
}

// Compare fetches the listings of a and b and diffs them.
func (s *Scanner) Compare(ctx context.Context, a, b env.Environment) (listing.Diff, error) {
	both, err := collect(ctx, []env.Environment{a, b}, s.workers, s.fetch)
	if err != nil {
		return listing.Diff{}, err
	}
	for _, f := range both {
		if f.err != nil {
			return listing.Diff{}, f.err
		}
	}
	return listing.Compare(both[0].lines, both[1].lines), nil
}

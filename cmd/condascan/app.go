package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/condascan/internal/cache"
	"github.com/frederic-klein/condascan/internal/conda"
	"github.com/frederic-klein/condascan/internal/config"
	"github.com/frederic-klein/condascan/internal/rank"
	"github.com/frederic-klein/condascan/internal/report"
	"github.com/frederic-klein/condascan/internal/scan"
)

type globalFlags struct {
	configFile string
	logLevel   string
	output     string
	workers    int
	condaBin   string
	noCache    bool
}

type policyFlags struct {
	first   bool
	limit   int
	verbose bool
}

func (p policyFlags) policy() rank.Policy {
	return rank.Policy{First: p.first, Limit: p.limit, Verbose: p.verbose}
}

// app holds what the commands share for one invocation.
type app struct {
	flags globalFlags

	// executor runs conda; nil means the real binary.
	executor conda.Executor
	logOut   io.Writer

	cfg       *config.Config
	logger    *log.Logger
	client    *conda.Client
	store     cache.Store
	storeErr  error
	presenter report.Presenter
}

// setup loads the configuration, applies flag overrides and builds the
// collaborators.
func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, path, err := config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configFile})
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if flags.Changed("output") {
		cfg.Output = a.flags.output
	}
	if flags.Changed("workers") {
		cfg.Workers = a.flags.workers
	}
	if flags.Changed("conda-bin") {
		cfg.CondaBin = a.flags.condaBin
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.logOut == nil {
		a.logOut = os.Stderr
	}
	a.logger = log.NewWithOptions(a.logOut, log.Options{Prefix: "condascan"})
	level, _ := log.ParseLevel(cfg.LogLevel)
	a.logger.SetLevel(level)
	if path != "" {
		a.logger.Debug("loaded config", "path", path)
	}

	a.presenter, err = report.New(cfg.Output)
	if err != nil {
		return err
	}
	a.client = conda.NewClient(cfg.CondaBin, a.executor, a.logger)

	a.store, err = cache.Open(ctx, cfg.CacheOptions(a.logger))
	if err != nil {
		// Without a cache every run queries conda; that is slower, not wrong.
		a.logger.Warn("cache unavailable", "backend", cfg.Cache.Backend, "err", err)
		a.store = cache.Nop{}
		a.storeErr = err
	}
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("closing cache: %w", err)
	}
	return nil
}

func (a *app) scanner() *scan.Scanner {
	fetcher := scan.NewFetcher(a.store, a.client, a.flags.noCache, a.logger)
	return scan.NewScanner(fetcher, a.client,
		scan.WithWorkers(a.cfg.Workers),
		scan.WithLogger(a.logger),
	)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/condascan/internal/conda"
	"github.com/frederic-klein/condascan/internal/requirement"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Exit codes besides 0 (success) and 1 (any other failure).
const (
	exitInvalidRequirement = 2
	exitCondaNotInstalled  = 3
)

// exitError carries the process exit code for err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// withExitCode attaches the exit code documented for err's sentinel.
func withExitCode(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, requirement.ErrInvalidRequirement):
		return &exitError{code: exitInvalidRequirement, err: err}
	case errors.Is(err, conda.ErrNotInstalled):
		return &exitError{code: exitCondaNotInstalled, err: err}
	}
	return err
}

func main() {
	a := &app{}
	err := fang.Execute(
		context.Background(),
		newRootCmd(a),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
		fmt.Fprintln(os.Stderr, "Error:", cerr)
	}
	if err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "condascan",
		Short: "Find the conda environments that have what you need",
		Long: "condascan inspects every conda environment and reports which ones satisfy a set of\n" +
			"package requirements, which ones can run a command, or how two environments differ.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/condascan/config.yaml)")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVarP(&a.flags.output, "output", "o", "", "output format: text, yaml or json")
	flags.IntVarP(&a.flags.workers, "workers", "w", 0, "environments queried in parallel")
	flags.StringVar(&a.flags.condaBin, "conda-bin", "", "conda executable")
	flags.BoolVar(&a.flags.noCache, "no-cache", false, "ignore cached listings and query conda again")

	rootCmd.AddCommand(newHaveCmd(a))
	rootCmd.AddCommand(newCanExecuteCmd(a))
	rootCmd.AddCommand(newCompareCmd(a))
	rootCmd.AddCommand(newCacheCmd(a))

	return rootCmd
}

// addPolicyFlags registers the selection flags shared by have and
// can-execute.
func addPolicyFlags(cmd *cobra.Command, p *policyFlags) {
	cmd.Flags().BoolVar(&p.first, "first", false, "stop at the first matching environment")
	cmd.Flags().IntVarP(&p.limit, "limit", "l", 0, "show at most N environments (0 for all)")
	cmd.Flags().BoolVarP(&p.verbose, "verbose", "v", false, "show details for every environment")
}

func validateLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", limit)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/condascan/internal/env"
	"github.com/frederic-klein/condascan/internal/report"
	"github.com/frederic-klein/condascan/internal/requirement"
)

func newHaveCmd(a *app) *cobra.Command {
	var (
		pf       policyFlags
		reqsFile string
	)
	cmd := &cobra.Command{
		Use:   "have PACKAGE...",
		Short: "List environments that have the required packages",
		Long: "List the environments in which every requirement is installed at an acceptable version.\n" +
			"Requirements use PEP 440 specifiers, e.g. \"numpy>=1.24\" \"pandas~=2.1\" \"python==3.11.*\".",
		Example: "  condascan have numpy \"pandas>=2\"\n  condascan have -r requirements.txt --verbose",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateLimit(pf.limit); err != nil {
				return err
			}
			return withExitCode(a.runHave(cmd, args, reqsFile, pf))
		},
	}
	cmd.Flags().StringVarP(&reqsFile, "requirements", "r", "", "read requirements from a requirements.txt style file")
	addPolicyFlags(cmd, &pf)
	return cmd
}

func (a *app) runHave(cmd *cobra.Command, args []string, reqsFile string, pf policyFlags) error {
	ctx := cmd.Context()

	reqs, err := requirement.ParseAll(args)
	if err != nil {
		return err
	}
	if reqsFile != "" {
		fromFile, err := requirement.ParseFile(reqsFile)
		if err != nil {
			return err
		}
		reqs = append(reqs, fromFile...)
	}
	if len(reqs) == 0 {
		return fmt.Errorf("%w: no packages given", requirement.ErrInvalidRequirement)
	}

	envs, err := a.environments(ctx)
	if err != nil {
		return err
	}
	res, err := a.scanner().Have(ctx, envs, reqs, pf.policy())
	if err != nil {
		return err
	}
	return a.presenter.Have(cmd.OutOrStdout(), res, pf.policy())
}

func newCanExecuteCmd(a *app) *cobra.Command {
	var pf policyFlags
	cmd := &cobra.Command{
		Use:     "can-execute COMMAND",
		Short:   "List environments in which a command succeeds",
		Long:    "Run COMMAND in every environment with \"conda run\" and list those where it exits 0.",
		Example: "  condascan can-execute \"python -c 'import torch'\" --first",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateLimit(pf.limit); err != nil {
				return err
			}
			return withExitCode(a.runCanExecute(cmd, args[0], pf))
		},
	}
	addPolicyFlags(cmd, &pf)
	return cmd
}

func (a *app) runCanExecute(cmd *cobra.Command, command string, pf policyFlags) error {
	if strings.TrimSpace(command) == "" {
		return errors.New("empty command")
	}
	ctx := cmd.Context()
	envs, err := a.environments(ctx)
	if err != nil {
		return err
	}
	results, err := a.scanner().CanExecute(ctx, envs, command, pf.policy())
	if err != nil {
		return err
	}
	return a.presenter.Execute(cmd.OutOrStdout(), results, pf.policy())
}

func newCompareCmd(a *app) *cobra.Command {
	var opts report.CompareOptions
	cmd := &cobra.Command{
		Use:   "compare ENV_A ENV_B",
		Short: "Show the package differences between two environments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExitCode(a.runCompare(cmd, args[0], args[1], opts))
		},
	}
	cmd.Flags().BoolVar(&opts.All, "all", false, "also list packages installed at the same version")
	return cmd
}

func (a *app) runCompare(cmd *cobra.Command, nameA, nameB string, opts report.CompareOptions) error {
	ctx := cmd.Context()
	envs, err := a.environments(ctx)
	if err != nil {
		return err
	}
	ea, err := findEnvironment(envs, nameA)
	if err != nil {
		return err
	}
	eb, err := findEnvironment(envs, nameB)
	if err != nil {
		return err
	}
	d, err := a.scanner().Compare(ctx, ea, eb)
	if err != nil {
		return err
	}
	return a.presenter.Compare(cmd.OutOrStdout(), ea.Name, eb.Name, d, opts)
}

// environments checks that conda runs, then lists its environments.
func (a *app) environments(ctx context.Context) ([]env.Environment, error) {
	if err := a.client.CheckInstalled(ctx); err != nil {
		return nil, err
	}
	envs, err := a.client.Environments(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("found environments", "count", len(envs))
	return envs, nil
}

// findEnvironment looks an environment up by name or by prefix.
func findEnvironment(envs []env.Environment, name string) (env.Environment, error) {
	for _, e := range envs {
		if e.Name == name {
			return e, nil
		}
	}
	clean := filepath.Clean(name)
	for _, e := range envs {
		if filepath.Clean(e.Prefix) == clean {
			return e, nil
		}
	}
	return env.Environment{}, fmt.Errorf("unknown environment %q (see \"conda env list\")", name)
}

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/condascan/internal/cache"
)

func newCacheCmd(a *app) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or invalidate cached package listings",
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print where listings are cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.cacheLocation())
			return err
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear [ENV...]",
		Short: "Forget cached listings, for the given environments or all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.storeErr != nil {
				return fmt.Errorf("cache unavailable: %w", a.storeErr)
			}
			if len(args) == 0 {
				if err := a.store.Clear(cmd.Context()); err != nil {
					return err
				}
				a.logger.Info("cache cleared", "backend", a.cfg.Cache.Backend)
				return nil
			}
			keys := make([]string, len(args))
			for i, arg := range args {
				keys[i] = cacheKey(arg)
			}
			if err := a.store.Delete(cmd.Context(), keys...); err != nil {
				return err
			}
			a.logger.Info("cache entries removed", "envs", keys)
			return nil
		},
	}

	cacheCmd.AddCommand(pathCmd, clearCmd)
	return cacheCmd
}

func (a *app) cacheLocation() string {
	c := a.cfg.Cache
	switch c.Backend {
	case cache.BackendFile:
		return filepath.Join(c.Dir, cache.FileName)
	case cache.BackendSQLite:
		return filepath.Join(c.Dir, cache.SQLiteName)
	case cache.BackendRedis:
		return c.RedisURL + " (prefix " + c.RedisPrefix + ")"
	}
	return "caching disabled"
}

// cacheKey maps a command line environment to its cache key: names are used
// as is, prefixes are cleaned the way env.Environment.Key cleans them.
func cacheKey(arg string) string {
	if strings.ContainsRune(arg, filepath.Separator) {
		return filepath.Clean(arg)
	}
	return arg
}

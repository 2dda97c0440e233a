package scan

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/frederic-klein/condascan/internal/env"
)

// collect runs fn for every environment, at most workers at a time, and
// returns the results in discovery order.
func collect[T any](ctx context.Context, envs []env.Environment, workers int, fn func(context.Context, env.Environment) T) ([]T, error) {
	out := make([]T, len(envs))
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i, e := range envs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out[i] = fn(ctx, e)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// until runs fn for the environments in discovery order and hands each result
// to consume in that same order. No more than workers results are fetched
// ahead of consume. Once consume returns true nothing further is started and
// results still in flight are dropped.
func until[T any](ctx context.Context, envs []env.Environment, workers int, fn func(context.Context, env.Environment) T, consume func(T) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan T, len(envs))
	for i := range results {
		results[i] = make(chan T, 1)
	}
	window := make(chan struct{}, max(workers, 1))

	var g errgroup.Group
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for i, e := range envs {
			select {
			case window <- struct{}{}:
			case <-ctx.Done():
				return
			}
			if ctx.Err() != nil {
				return
			}
			g.Go(func() error {
				results[i] <- fn(ctx, e)
				return nil
			})
		}
	}()

	var err error
	for i := range envs {
		var v T
		select {
		case v = <-results[i]:
		case <-ctx.Done():
			err = ctx.Err()
		}
		if err != nil || consume(v) {
			break
		}
		<-window
	}

	cancel()
	<-submitted
	g.Wait()
	return err
}

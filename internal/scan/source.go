package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/frederic-klein/condascan/internal/cache"
	"github.com/frederic-klein/condascan/internal/env"
)

// ErrQuery is returned (wrapped) when an environment's listing cannot be
// obtained or a command cannot be started in it.
var ErrQuery = errors.New("environment query failed")

// errLoaderGone marks a shared load abandoned because the caller running it
// was canceled. Callers still live retry.
var errLoaderGone = errors.New("listing query canceled")

// Source provides the raw package listing of an environment.
type Source interface {
	Listing(ctx context.Context, e env.Environment) ([]string, error)
}

// Lister queries the package manager for a listing. *conda.Client
// implements it.
type Lister interface {
	Packages(ctx context.Context, e env.Environment) ([]string, error)
}

// Fetcher is the run cache. It answers each environment at most once per
// run: from memory, else from the persistent store, else from the package
// manager, writing live results back to the store.
type Fetcher struct {
	store   cache.Store
	lister  Lister
	refresh bool
	logger  *log.Logger

	mu       sync.Mutex
	listings map[string][]string
	group    singleflight.Group
}

// NewFetcher creates a Fetcher. With refresh set, persistent entries are
// ignored on read but still rewritten.
func NewFetcher(store cache.Store, lister Lister, refresh bool, logger *log.Logger) *Fetcher {
	if store == nil {
		store = cache.Nop{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Fetcher{
		store:    store,
		lister:   lister,
		refresh:  refresh,
		logger:   logger,
		listings: make(map[string][]string),
	}
}

// Listing implements Source.
func (f *Fetcher) Listing(ctx context.Context, e env.Environment) ([]string, error) {
	key := e.Key()
	if lines, ok := f.cached(key); ok {
		return lines, nil
	}

	for {
		v, err, shared := f.group.Do(key, func() (any, error) {
			if lines, ok := f.cached(key); ok {
				return lines, nil
			}
			lines, err := f.load(ctx, e)
			if err != nil {
				if cerr := ctx.Err(); cerr != nil {
					return nil, fmt.Errorf("%w: %w", errLoaderGone, cerr)
				}
				return nil, err
			}
			f.mu.Lock()
			f.listings[key] = lines
			f.mu.Unlock()
			return lines, nil
		})
		if err == nil {
			return v.([]string), nil
		}
		if shared && ctx.Err() == nil && errors.Is(err, errLoaderGone) {
			f.logger.Debug("shared listing query canceled, retrying", "env", e.Name)
			continue
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrQuery, e.Name, err)
	}
}

func (f *Fetcher) cached(key string) ([]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines, ok := f.listings[key]
	return lines, ok
}

func (f *Fetcher) load(ctx context.Context, e env.Environment) ([]string, error) {
	key := e.Key()
	if !f.refresh {
		lk, err := f.store.Get(ctx, key)
		switch {
		case err != nil:
			f.logger.Warn("cache lookup failed", "env", e.Name, "err", err)
		case lk.Hit:
			f.logger.Debug("listing cached", "env", e.Name, "stored_at", lk.StoredAt)
			return lk.Lines, nil
		}
	}

	f.logger.Debug("querying listing", "env", e.Name)
	lines, err := f.lister.Packages(ctx, e)
	if err != nil {
		return nil, err
	}
	if err := f.store.Put(ctx, key, lines); err != nil {
		f.logger.Warn("cache write failed", "env", e.Name, "err", err)
	}
	return lines, nil
}

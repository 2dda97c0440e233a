// Package cache persists raw package listings across runs, keyed by
// environment.
package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Lookup is the result of Store.Get: either a hit carrying the stored lines,
// or a miss.
type Lookup struct {
	Lines    []string
	Hit      bool
	StoredAt time.Time
}

// Miss is the Lookup for absent or expired entries.
var Miss = Lookup{}

// Store is a persistent environment -> raw listing mapping. Implementations
// are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, env string) (Lookup, error)
	Put(ctx context.Context, env string, lines []string) error
	// Delete removes the given environments; missing ones are ignored.
	Delete(ctx context.Context, envs ...string) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Options configures Open.
type Options struct {
	Backend     string
	Dir         string
	TTL         time.Duration
	RedisURL    string
	RedisPrefix string
	Logger      *log.Logger
}

// Open creates the store selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case BackendFile, "":
		s, err = OpenFile(opts.Dir, opts.TTL, opts.Logger)
	case BackendSQLite:
		s, err = OpenSQLite(ctx, opts.Dir, opts.TTL, opts.Logger)
	case BackendRedis:
		s, err = OpenRedis(ctx, opts.RedisURL, opts.RedisPrefix, opts.TTL, opts.Logger)
	case BackendNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// expired reports whether an entry stored at t is older than ttl. A ttl of
// zero or less never expires.
func expired(t time.Time, ttl time.Duration) bool {
	return ttl > 0 && time.Since(t) >= ttl
}

// Nop is a Store that keeps nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) (Lookup, error) { return Miss, nil }
func (Nop) Put(context.Context, string, []string) error { return nil }
func (Nop) Delete(context.Context, ...string) error     { return nil }
func (Nop) Clear(context.Context) error                 { return nil }
func (Nop) Close() error                                { return nil }

package faceoff

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/casualjim/faceoff/internal/broker"
	"github.com/casualjim/faceoff/internal/registry"
	"github.com/casualjim/faceoff/provider"
	"github.com/casualjim/faceoff/sessions"
	"github.com/fogfish/opts"
	"github.com/nats-io/nats.go"
)

// Broker hands out topics for comparison event streams.
type Broker = broker.Broker

// Topic receives every event of one comparison session.
type Topic = broker.Topic

// Subscription is a live attachment of a hook to a topic.
type Subscription = broker.Subscription

// Local returns an in-process broker.
func Local() Broker { return broker.Local() }

// NATS returns a broker that relays events over the given NATS connection.
func NATS(client *nats.Conn) Broker { return broker.NATS(client) }

// Arena coordinates comparison sessions: it resolves providers, fans
// prompts out to them and persists what comes back.
type Arena struct {
	store        sessions.Store
	providers    registry.Registry[provider.Provider]
	persistEvery int
	log          *slog.Logger
}

// WithStore sets the session store. Defaults to an in-memory store.
func WithStore(store sessions.Store) opts.Option[Arena] {
	return opts.Type[Arena](func(a *Arena) error {
		a.store = store
		return nil
	})
}

// WithPersistEvery sets how many chunks accumulate between intermediate
// content flushes to the store.
func WithPersistEvery(n int) opts.Option[Arena] {
	return opts.Type[Arena](func(a *Arena) error {
		if n < 1 {
			return fmt.Errorf("persist interval must be at least 1, got %d", n)
		}
		a.persistEvery = n
		return nil
	})
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) opts.Option[Arena] {
	return opts.Type[Arena](func(a *Arena) error {
		a.log = log
		return nil
	})
}

const defaultPersistEvery = 10

// New builds an Arena with no providers registered.
func New(options ...opts.Option[Arena]) (*Arena, error) {
	arena := &Arena{
		providers:    registry.New[provider.Provider](),
		persistEvery: defaultPersistEvery,
	}
	if err := opts.Apply(arena, options); err != nil {
		return nil, err
	}
	if arena.store == nil {
		arena.store = sessions.NewMemoryStore()
	}
	if arena.log == nil {
		arena.log = slog.Default()
	}
	return arena, nil
}

// RegisterProvider makes p selectable under its Name. Registering the same
// name twice replaces the earlier adapter.
func (a *Arena) RegisterProvider(p provider.Provider) {
	a.providers.Add(p.Name(), p)
}

// ResolveProvider returns the adapter registered under name, or an error
// wrapping ErrProviderNotFound.
func (a *Arena) ResolveProvider(name string) (provider.Provider, error) {
	p, ok := a.providers.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// HasProvider reports whether an adapter is registered under name.
func (a *Arena) HasProvider(name string) bool {
	_, ok := a.providers.Get(name)
	return ok
}

// Providers returns the registered provider names, sorted.
func (a *Arena) Providers() []string {
	names := a.providers.Keys()
	slices.Sort(names)
	return names
}

// Store exposes the session store for read access to persisted sessions.
func (a *Arena) Store() sessions.Store { return a.store }

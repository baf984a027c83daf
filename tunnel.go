package tunnelgate

import (
	"fmt"
	"maps"
	"slices"
)

type (
	// Tunnel is an immutable, side-independent description of one logical
	// interface: a routing id plus the set of method names invoked
	// synchronously. It carries no channel state, so both communicating
	// contexts can share a definition verbatim, typically from a package
	// importable without pulling in either side's context-exclusive code.
	//
	// The method set itself is implicit: calls are dispatched by name, and
	// the tunnel only needs to know which names opt into synchronous mode.
	Tunnel struct {
		id   string
		sync map[string]struct{}
	}

	// TunnelOption configures a [Tunnel] during construction.
	TunnelOption interface {
		applyTunnel(*tunnelConfig) error
	}

	tunnelConfig struct {
		sync map[string]struct{}
	}

	tunnelOptionImpl struct {
		fn func(*tunnelConfig) error
	}
)

func (o *tunnelOptionImpl) applyTunnel(cfg *tunnelConfig) error { return o.fn(cfg) }

// WithSync marks the named methods as synchronous: invoking them blocks the
// caller until the reply is processed, rather than yielding a deferred
// [Call]. All other methods are asynchronous, the default.
func WithSync(methods ...string) TunnelOption {
	return &tunnelOptionImpl{fn: func(cfg *tunnelConfig) error {
		for _, m := range methods {
			if m == `` {
				return fmt.Errorf(`sync method name must not be empty`)
			}
			if cfg.sync == nil {
				cfg.sync = make(map[string]struct{})
			}
			cfg.sync[m] = struct{}{}
		}
		return nil
	}}
}

// NewTunnel constructs a tunnel descriptor. The id is the routing key, unique
// per logical interface within a gate. NewTunnel panics on an empty id or an
// invalid option (programming errors).
func NewTunnel(id string, opts ...TunnelOption) *Tunnel {
	if id == `` {
		panic(`tunnelgate: tunnel id must not be empty`)
	}
	var cfg tunnelConfig
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyTunnel(&cfg); err != nil {
			panic(fmt.Sprintf(`tunnelgate: %s`, err))
		}
	}
	return &Tunnel{id: id, sync: cfg.sync}
}

// ID returns the tunnel's routing id.
func (t *Tunnel) ID() string { return t.id }

// Sync reports whether the named method is invoked synchronously.
func (t *Tunnel) Sync(method string) bool {
	_, ok := t.sync[method]
	return ok
}

// SyncMethods returns the sorted synchronous method names.
func (t *Tunnel) SyncMethods() []string {
	return slices.Sorted(maps.Keys(t.sync))
}

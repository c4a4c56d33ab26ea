// Package casconfig opens one or more CAS backends from a JSON description.
package casconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/danvoulez/rho-circles/storage"
	"github.com/danvoulez/rho-circles/storage/casregistry"
)

// Config describes how to open one or more CAS backends via casregistry.
//
// This provides config-driven runtime backend selection. Callers still need
// to link desired backend plugins via blank imports.
//
// WritePolicy values:
// - "first" (default): write only to the first backend; reads fall back in order
// - "all": write to all backends and require CID equality (see storage.ReplicatingCAS)
type Config struct {
	WritePolicy string          `json:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends"`
}

type BackendConfig struct {
	// Name is the casregistry backend name to open (e.g. "memory", "localfs", "grpc").
	Name string `json:"name"`
	// ID is an optional stable alias used for identification and per-backend CID maps.
	// If empty, Name is used.
	ID string `json:"id,omitempty"`
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("casconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("casconfig: at least one backend is required")
	}
	switch c.WritePolicy {
	case "", "first", "all":
	default:
		return fmt.Errorf("casconfig: unknown write_policy %q", c.WritePolicy)
	}
	seen := map[string]bool{}
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("casconfig: backend name is required")
		}
		id := b.ID
		if id == "" {
			id = b.Name
		}
		if seen[id] {
			return fmt.Errorf("casconfig: duplicate backend id %q", id)
		}
		seen[id] = true
	}
	return nil
}

// Open opens all configured backends and composes them per the write policy.
//
// The returned close function closes every backend that provided one, in
// reverse open order.
func (c Config) Open(usage casregistry.Usage) (storage.CAS, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	named := make([]storage.NamedCAS, 0, len(c.Backends))
	for _, b := range c.Backends {
		cas, closeFn, err := casregistry.Open(b.Name, usage)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
		id := b.ID
		if id == "" {
			id = b.Name
		}
		named = append(named, storage.NamedCAS{Name: id, CAS: cas})
	}

	if c.WritePolicy == "all" {
		return storage.ReplicatingCAS{Backends: named}, closeAll, nil
	}
	adapters := make([]storage.CAS, 0, len(named))
	for _, n := range named {
		adapters = append(adapters, n.CAS)
	}
	return storage.MultiCAS{Adapters: adapters}, closeAll, nil
}

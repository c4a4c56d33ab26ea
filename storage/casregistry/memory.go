package casregistry

import (
	"flag"

	"github.com/danvoulez/rho-circles/storage"
)

// The in-memory backend ships with the registry itself: it has no
// configuration and every binary can use it.
func init() {
	MustRegister(Backend{
		Name:          "memory",
		Description:   "Process-local in-memory CAS (non-persistent)",
		Usage:         UsageCLI | UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {},
		Open: func() (storage.CAS, func() error, error) {
			return storage.NewMemory(), nil, nil
		},
	})
}

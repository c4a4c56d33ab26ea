package localfs

import (
	"flag"

	"github.com/danvoulez/rho-circles/storage"
	"github.com/danvoulez/rho-circles/storage/casregistry"
)

var flagDir = new(string)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem CAS",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(flagDir, "localfs-dir", "", "localfs CAS root directory")
		},
		Open: func() (storage.CAS, func() error, error) {
			cas, err := New(*flagDir)
			if err != nil {
				return nil, nil, err
			}
			return cas, nil, nil
		},
	})
}

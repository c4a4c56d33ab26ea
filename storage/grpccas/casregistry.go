package grpccas

import (
	"errors"
	"flag"
	"time"

	"github.com/danvoulez/rho-circles/storage"
	"github.com/danvoulez/rho-circles/storage/casregistry"
)

var (
	flagTarget  = new(string)
	flagTimeout = new(int)
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "grpc",
		Description: "Remote CAS over gRPC",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(flagTarget, "grpc-target", "", "grpccas server address (host:port)")
			fs.IntVar(flagTimeout, "grpc-timeout-seconds", 10, "per-RPC timeout in seconds")
		},
		Open: func() (storage.CAS, func() error, error) {
			if *flagTarget == "" {
				return nil, nil, errors.New("grpccas: -grpc-target is required")
			}
			client, err := Dial(*flagTarget, DialOptions{})
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = time.Duration(*flagTimeout) * time.Second
			return client, client.Close, nil
		},
	})
}

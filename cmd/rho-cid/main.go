// Command rho-cid canonicalizes a JSON document and prints its CID.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danvoulez/rho-circles/canon"
)

func main() {
	var data []byte
	var err error
	switch len(os.Args) {
	case 1:
		data, err = io.ReadAll(os.Stdin)
	case 2:
		data, err = os.ReadFile(os.Args[1])
	default:
		fmt.Fprintln(os.Stderr, "usage: rho-cid [file.json]")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(1)
	}

	n, err := canon.ParseNormalized(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "normalize: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(n.CID.String())
}

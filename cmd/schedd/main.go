package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sandeepkv93/schedd/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		// A failed result has already been printed.
		if !errors.Is(err, cli.ErrRequestFailed) {
			fmt.Fprintf(os.Stderr, "schedd failed: %v\n", err)
		}
		os.Exit(1)
	}
}

// Package main is the entry point for NextSoundWave.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"nextsoundwave/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand(cli.Options{})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, cli.ErrFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

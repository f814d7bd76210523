// Package main provides a CLI that validates game transcripts.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/swehq/corona-game/internal/platform/config"

	validatorcmd "github.com/swehq/corona-game/internal/cmd/validator"
)

func main() {
	cfg, err := validatorcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := validatorcmd.Run(ctx, cfg, os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, validatorcmd.ErrRejected) {
			config.ExitCodef(config.ExitRejected, "Error: %v", err)
		}
		config.Exitf("Error: %v", err)
	}
}

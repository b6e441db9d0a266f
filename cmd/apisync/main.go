// Package main provides the entry point for the apisync CLI tool.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/agentstation/apisync/cmd/apisync/app"
	"github.com/agentstation/apisync/cmd/apisync/cmd/sync"
	"github.com/agentstation/apisync/pkg/constants"
	"github.com/agentstation/apisync/pkg/logging"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	err = application.Execute(ctx, os.Args[1:])

	// Fresh context, the signal context may already be cancelled
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := application.Shutdown(shutdownCtx); shutdownErr != nil {
		logging.Error().Err(shutdownErr).Msg("Shutdown error")
	}

	if errors.Is(err, sync.ErrChangesPending) {
		cancel()
		os.Exit(2)
	}
	app.ExitOnError(err)
}

// Package application provides the application interface for apisync commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            syncer, err := app.Syncer()
//	            if err != nil {
//	                return err
//	            }
//	            // ... use syncer
//	            return nil
//	        },
//	    }
//	}
//
// Testing with Mocks:
//
//	svc := memory.New()
//	mock := &application.Mock{
//	    SyncerFunc: func(opts ...apisync.Option) (apisync.Syncer, error) {
//	        return apisync.New(svc, opts...)
//	    },
//	}
//	cmd := NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/apisync"
)

// Application provides the application interface that commands need.
// The App struct from cmd/apisync/app implements it.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Syncer returns a Syncer bound to the configured management service.
	// Options are applied on top of the configured defaults.
	Syncer(opts ...apisync.Option) (apisync.Syncer, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, text, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}

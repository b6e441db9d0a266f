// Package constants provides shared constants used throughout apisync.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the timeout for a single call to the management service
	DefaultHTTPTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// ShutdownTimeout bounds graceful shutdown after a failed command
	ShutdownTimeout = 5 * time.Second
)

// Remote service limits
const (
	// DefaultPageLimit is the page size requested when listing resources and models
	DefaultPageLimit = 500

	// DefaultRateLimit is the client side request rate (requests per second)
	DefaultRateLimit = 10.0

	// DefaultRateBurst is the client side burst size
	DefaultRateBurst = 5
)

// Domain defaults
const (
	// DefaultContentType is used for models that do not declare one
	DefaultContentType = "application/json"

	// AuthorizationNone is the fallback authorization type for methods
	AuthorizationNone = "NONE"

	// RootPath is the canonical path of the root resource
	RootPath = "/"
)

// File permission constants
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

package apisync

import (
	"time"

	"github.com/agentstation/apisync/pkg/constants"
	"github.com/agentstation/apisync/pkg/errors"
)

// Option is a function that configures a Syncer
type Option func(*config) error

// config holds the Syncer settings
type config struct {
	prune          bool
	modelCleanup   bool
	deleteDefaults bool
	contentType    string
	timeout        time.Duration
}

func defaultConfig() *config {
	return &config{
		prune:          true,
		modelCleanup:   true,
		deleteDefaults: true,
		contentType:    constants.DefaultContentType,
		timeout:        constants.CommandTimeout,
	}
}

// WithPrune configures whether Update deletes remote resources that are not
// in the definition
func WithPrune(enabled bool) Option {
	return func(c *config) error {
		c.prune = enabled
		return nil
	}
}

// WithModelCleanup configures whether Update deletes remote models that are
// not in the definition
func WithModelCleanup(enabled bool) Option {
	return func(c *config) error {
		c.modelCleanup = enabled
		return nil
	}
}

// WithDeleteDefaultModels configures whether Import removes the models the
// service creates with every new API
func WithDeleteDefaultModels(enabled bool) Option {
	return func(c *config) error {
		c.deleteDefaults = enabled
		return nil
	}
}

// WithContentType sets the content type for models that do not declare one
func WithContentType(contentType string) Option {
	return func(c *config) error {
		if contentType == "" {
			return &errors.ValidationError{Field: "contentType", Message: "cannot be empty"}
		}
		c.contentType = contentType
		return nil
	}
}

// WithTimeout bounds every Import, Update and Plan call. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return &errors.ValidationError{Field: "timeout", Value: timeout, Message: "cannot be negative"}
		}
		c.timeout = timeout
		return nil
	}
}

package transport

import (
	"net/http"
	"strings"

	"github.com/agentstation/apisync/pkg/errors"
)

// Authentication schemes understood by NewAuthenticator.
const (
	SchemeNone   = "none"
	SchemeBearer = "bearer"
	SchemeHeader = "header"
	SchemeQuery  = "query"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, apiKey string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set(a.Header, apiKey)
}

// QueryAuth implements API key as query parameter authentication.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, apiKey string) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, apiKey)
	req.URL.RawQuery = query.Encode()
}

// NewAuthenticator returns the authenticator for a scheme. name is the
// header for SchemeHeader and the query parameter for SchemeQuery.
func NewAuthenticator(scheme, name string) (Authenticator, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeNone:
		return &NoAuth{}, nil
	case SchemeBearer:
		return &BearerAuth{}, nil
	case SchemeHeader:
		if name == "" {
			name = "x-api-key"
		}
		return &HeaderAuth{Header: name}, nil
	case SchemeQuery:
		if name == "" {
			name = "key"
		}
		return &QueryAuth{Param: name}, nil
	}
	return nil, errors.NewValidationError("auth_scheme", scheme, "must be one of none, bearer, header, query")
}

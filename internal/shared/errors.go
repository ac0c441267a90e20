package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrInvalidPort   = fmt.Errorf("invalid port")

	// Listener errors
	ErrBindFailed        = fmt.Errorf("failed to bind port")
	ErrAttemptsExhausted = fmt.Errorf("callback attempts exhausted")
	ErrTimeout           = fmt.Errorf("operation timed out")
	ErrCancelled         = fmt.Errorf("cancelled by user")

	// Authorization errors
	ErrAuthFailed    = fmt.Errorf("authorization failed")
	ErrStateMismatch = fmt.Errorf("state parameter mismatch")
	ErrProviderError = fmt.Errorf("identity provider returned an error")
	ErrMissingCode   = fmt.Errorf("authorization code missing from callback")
	ErrExchange      = fmt.Errorf("token exchange failed")

	// Persistence errors
	ErrFlowNotFound = fmt.Errorf("flow not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

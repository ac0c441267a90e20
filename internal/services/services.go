package services

import (
	"fmt"
	"net/url"

	"github.com/desertthunder/loopauth/internal/shared"
)

// Callback holds the parameters of a captured redirect URL.
//
// Fragment parameters take precedence over query parameters with the same name.
type Callback struct {
	URL              string
	Code             string
	State            string
	Error            string
	ErrorDescription string
	Params           url.Values
}

// ParseCallback merges the query and fragment parameters of rawURL.
func ParseCallback(rawURL string) (*Callback, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: callback URL: %v", shared.ErrInvalidInput, err)
	}

	params := u.Query()
	if u.Fragment != "" {
		fragment, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return nil, fmt.Errorf("%w: callback fragment: %v", shared.ErrInvalidInput, err)
		}
		for key, values := range fragment {
			params[key] = values
		}
	}

	return &Callback{
		URL:              rawURL,
		Code:             params.Get("code"),
		State:            params.Get("state"),
		Error:            params.Get("error"),
		ErrorDescription: params.Get("error_description"),
		Params:           params,
	}, nil
}

// Verify checks the callback against the state sent with the authorization request.
func (c *Callback) Verify(state string) error {
	if c.Error != "" {
		if c.ErrorDescription != "" {
			return fmt.Errorf("%w: %s: %s", shared.ErrProviderError, c.Error, c.ErrorDescription)
		}
		return fmt.Errorf("%w: %s", shared.ErrProviderError, c.Error)
	}

	if state == "" || c.State != state {
		return shared.ErrStateMismatch
	}

	if c.Code == "" {
		return shared.ErrMissingCode
	}

	return nil
}

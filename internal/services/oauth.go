package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/loopauth/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthService builds authorization URLs and exchanges codes for a single provider.
type OAuthService struct {
	config *oauth2.Config
}

// NewOAuthService creates an [OAuthService] for the provider in cfg, redirecting to redirectURL.
func NewOAuthService(cfg shared.OAuthConfig, redirectURL string) (*OAuthService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: oauth.client_id", shared.ErrMissingConfig)
	}

	if cfg.AuthURL == "" {
		return nil, fmt.Errorf("%w: oauth.auth_url", shared.ErrMissingConfig)
	}

	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("%w: oauth.token_url", shared.ErrMissingConfig)
	}

	if redirectURL == "" {
		redirectURL = cfg.RedirectURI()
	}

	return &OAuthService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}, nil
}

// RedirectURL is the redirect URI sent to the provider.
func (s *OAuthService) RedirectURL() string {
	return s.config.RedirectURL
}

// AuthURL returns the authorization URL for state with a PKCE S256 challenge derived from verifier.
func (s *OAuthService) AuthURL(state, verifier string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for a token.
func (s *OAuthService) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrExchange, err)
	}
	return token, nil
}

// GenerateVerifier returns a new PKCE code verifier.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// SaveToken writes token as JSON to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := shared.MarshalJSON(token, true)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}

	return nil
}

// LoadToken reads a token written by [SaveToken].
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return &token, nil
}

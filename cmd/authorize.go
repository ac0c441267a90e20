package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/loopauth/internal/services"
	"github.com/desertthunder/loopauth/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Authorize runs the authorization code flow with PKCE against the configured provider.
//
// The listener is bound before the browser opens so the redirect cannot race the bind.
func (r *Runner) Authorize(ctx context.Context, cmd *cli.Command) error {
	port, err := r.config.OAuth.ListenPort()
	if err != nil {
		return err
	}

	svc, err := services.NewOAuthService(r.config.OAuth, "")
	if err != nil {
		return err
	}

	tokenPath, err := r.tokenPath(cmd.String("token"))
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return err
	}
	verifier := services.GenerateVerifier()
	authURL := svc.AuthURL(state, verifier)

	interactive := cmd.Bool("interactive")
	if interactive {
		restore, err := r.redirectLogs()
		if err != nil {
			return err
		}
		defer restore()
	}

	flow, record, recorder, err := r.startFlow(port)
	if err != nil {
		return err
	}

	if !cmd.Bool("no-browser") {
		if err := r.openURL(authURL); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}

	var callbackURL string
	if interactive {
		callbackURL, err = r.waitInteractive(flow, authURL, r.timeout(cmd))
	} else {
		r.writePlain("Open this URL to sign in:\n%s\n", authURL)
		callbackURL, err = r.wait(ctx, flow, r.timeout(cmd))
	}
	if err != nil {
		recorder.Finish(record, flowStatus(err), "", err)
		return err
	}

	token, err := r.complete(ctx, svc, callbackURL, state, verifier)
	if err != nil {
		recorder.Finish(record, flowStatus(err), callbackURL, err)
		return err
	}
	recorder.Finish(record, flowStatus(nil), callbackURL, nil)

	if err := services.SaveToken(tokenPath, token); err != nil {
		return err
	}

	r.logger.Info("token saved", "path", tokenPath, "expiry", token.Expiry)
	return r.writePlain("✓ Signed in to %s\nToken saved to: %s\n", r.config.OAuth.AppName, tokenPath)
}

// complete verifies the captured callback and exchanges its code.
func (r *Runner) complete(ctx context.Context, svc *services.OAuthService, callbackURL, state, verifier string) (*oauth2.Token, error) {
	cb, err := services.ParseCallback(callbackURL)
	if err != nil {
		return nil, err
	}

	if err := cb.Verify(state); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	return svc.Exchange(ctx, cb.Code, verifier)
}

func (r *Runner) tokenPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".loopauth", "token.json"), nil
}


// Package services talks to the OAuth provider on the host side of a loopback flow.
//
// # OAuth Service
//
// [OAuthService] wraps [oauth2.Config]. It builds the authorization URL with a PKCE S256 challenge and
// exchanges the authorization code for a token once the listener has captured the redirect.
// The redirect URI is always the loopback address of the listener.
//
// # Callbacks
//
// The listener hands back the full redirect URL as an opaque string. [ParseCallback] reads both the query
// and the fragment, since implicit and hybrid providers put parameters after the '#'.
// [Callback.Verify] checks the state and surfaces provider errors:
//   - [shared.ErrStateMismatch] : state does not match the one sent
//   - [shared.ErrProviderError] : provider returned error=...
//   - [shared.ErrMissingCode] : no authorization code present
//
// # Tokens
//
// [SaveToken] and [LoadToken] persist the token as JSON readable only by the current user.
package services

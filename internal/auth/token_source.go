// Package auth handles Microsoft identity token acquisition.
//
// Two interchangeable flows are provided: app-only client credentials and
// interactive delegated login with on-disk token persistence. Consumers only
// see the TokenSource capability.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoToken indicates no usable access token is available.
var ErrNoToken = errors.New("no access token available")

// TokenSource yields a bearer token for Graph API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ClientCredentials implements the app-only OAuth2 flow against Azure AD.
// Token reuse and refresh are handled by the underlying oauth2 source.
type ClientCredentials struct {
	src oauth2.TokenSource
}

// NewClientCredentials creates an app-only token source for the tenant.
func NewClientCredentials(clientID, clientSecret, tenantID string) *ClientCredentials {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	return &ClientCredentials{src: cfg.TokenSource(context.Background())}
}

// Token returns a valid bearer token, acquiring or refreshing as needed.
func (c *ClientCredentials) Token(_ context.Context) (string, error) {
	tok, err := c.src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoToken, err)
	}

	return tok.AccessToken, nil
}

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// AzureADConfig builds the OAuth2 config for the interactive delegated flow.
func AzureADConfig(clientID, tenantID, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    microsoft.AzureADEndpoint(tenantID),
		RedirectURL: redirectURL,
		Scopes:      []string{"offline_access", "Mail.Read", "User.Read"},
	}
}

// Delegated manages a delegated-flow OAuth2 token with thread-safe access
// and optional persistence on disk.
type Delegated struct {
	mu          sync.RWMutex
	cfg         *oauth2.Config
	token       *oauth2.Token
	persistPath string
	stateStore  map[string]time.Time
}

// NewDelegated creates a token manager, loading a persisted token from disk
// if path is provided and the file exists.
func NewDelegated(cfg *oauth2.Config, persistPath string) (*Delegated, error) {
	d := &Delegated{
		cfg:         cfg,
		persistPath: persistPath,
		stateStore:  make(map[string]time.Time),
	}
	if persistPath == "" {
		return d, nil
	}

	f, err := os.Open(persistPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("Token file %s doesn't exist yet, will be created on exit", persistPath)

			return d, nil
		}

		return nil, fmt.Errorf("os.Open failed: %w", err)
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("json.NewDecoder.Decode failed: %w", err)
	}
	d.token = token

	return d, nil
}

// Token returns a valid bearer token, refreshing through the OAuth2 config
// when the stored one has expired. Without a stored token it fails with
// ErrNoToken until the interactive flow completes.
func (d *Delegated) Token(ctx context.Context) (string, error) {
	d.mu.RLock()
	tok := d.token
	d.mu.RUnlock()

	if tok == nil {
		return "", ErrNoToken
	}

	fresh, err := d.cfg.TokenSource(ctx, tok).Token()
	if err != nil {
		return "", fmt.Errorf("%w: refresh failed: %s", ErrNoToken, err)
	}

	if fresh.AccessToken != tok.AccessToken {
		d.mu.Lock()
		d.token = fresh
		d.mu.Unlock()
	}

	return fresh.AccessToken, nil
}

// RedirectURL generates the authorization URL with a secure random state.
func (d *Delegated) RedirectURL() (string, error) {
	state, err := d.generateState()
	if err != nil {
		return "", fmt.Errorf("generateState failed: %w", err)
	}

	return d.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

func (d *Delegated) generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	d.stateStore[state] = now.Add(5 * time.Minute)

	for s, exp := range d.stateStore {
		if exp.Before(now) {
			delete(d.stateStore, s)
		}
	}

	return state, nil
}

func (d *Delegated) validateState(state string) bool {
	if state == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	expiry, exists := d.stateStore[state]
	if !exists {
		return false
	}

	delete(d.stateStore, state)

	return !time.Now().After(expiry)
}

// AuthorizeCode exchanges an authorization code for a token after validating state.
func (d *Delegated) AuthorizeCode(ctx context.Context, code, state string) error {
	if !d.validateState(state) {
		return errors.New("invalid or expired state parameter")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tok, err := d.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	d.token = tok

	return nil
}

// OAuthToken returns the current OAuth2 token.
func (d *Delegated) OAuthToken() (*oauth2.Token, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.token == nil {
		return nil, ErrNoToken
	}

	return d.token, nil
}

// Persist saves the token to disk.
func (d *Delegated) Persist() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.persistPath == "" || d.token == nil {
		return nil
	}

	f, err := os.OpenFile(d.persistPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("os.OpenFile failed: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(d.token); err != nil {
		return fmt.Errorf("json.NewEncoder.Encode failed: %w", err)
	}

	return nil
}

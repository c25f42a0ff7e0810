package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
)

// Ensure TokenFile implements the TokenProvider interface.
var _ driven.TokenProvider = (*TokenFile)(nil)

// TokenFile provides OAuth tokens stored in a JSON file, refreshing them
// through the client config and writing refreshed tokens back.
type TokenFile struct {
	path   string
	config *oauth2.Config

	mu            sync.RWMutex
	token         *oauth2.Token
	refreshBuffer time.Duration
}

// NewTokenFile creates a token provider backed by the file at path.
func NewTokenFile(path string, config *oauth2.Config) *TokenFile {
	return &TokenFile{
		path:          path,
		config:        config,
		refreshBuffer: 5 * time.Minute,
	}
}

// Path returns the token file location.
func (p *TokenFile) Path() string {
	return p.path
}

// Config returns the client config used for refreshes. It may be nil.
func (p *TokenFile) Config() *oauth2.Config {
	return p.config
}

// Token returns a valid token, refreshing it if it expires within the refresh buffer.
func (p *TokenFile) Token(ctx context.Context) (*oauth2.Token, error) {
	p.mu.RLock()
	if p.fresh(p.token) {
		token := p.token
		p.mu.RUnlock()
		return token, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == nil {
		token, err := p.load()
		if err != nil {
			return nil, err
		}
		p.token = token
	}
	if p.fresh(p.token) {
		return p.token, nil
	}

	if p.token.RefreshToken == "" {
		return nil, fmt.Errorf("token expired and has no refresh token: %w", domain.ErrAuthRequired)
	}
	if p.config == nil {
		return nil, fmt.Errorf("no client config to refresh token: %w", domain.ErrAuthRequired)
	}

	// An empty access token forces the source to refresh.
	src := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: p.token.RefreshToken})
	refreshed, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("refresh token revoked: %w", domain.ErrAuthRequired)
		}
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = p.token.RefreshToken
	}

	if err := p.write(refreshed); err != nil {
		return nil, err
	}
	p.token = refreshed
	return refreshed, nil
}

// Save stores a token obtained from a login, replacing any previous one.
func (p *TokenFile) Save(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("save token: %w", domain.ErrInvalidInput)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.write(token); err != nil {
		return err
	}
	p.token = token
	return nil
}

// Delete removes the stored token. A missing file is not an error.
func (p *TokenFile) Delete() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = nil
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// IsAuthenticated returns true if a token is cached or stored on disk.
func (p *TokenFile) IsAuthenticated() bool {
	p.mu.RLock()
	cached := p.token != nil
	p.mu.RUnlock()
	if cached {
		return true
	}

	_, err := p.load()
	return err == nil
}

func (p *TokenFile) fresh(token *oauth2.Token) bool {
	if token == nil || token.AccessToken == "" {
		return false
	}
	if token.Expiry.IsZero() {
		return true
	}
	return time.Until(token.Expiry) > p.refreshBuffer
}

func (p *TokenFile) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no token at %s: %w", p.path, domain.ErrAuthRequired)
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", p.path, err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, fmt.Errorf("empty token at %s: %w", p.path, domain.ErrAuthRequired)
	}
	return &token, nil
}

func (p *TokenFile) write(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

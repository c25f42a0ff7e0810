// Package auth provides the OAuth token provider used by the Drive store.
package auth

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// LoadClientConfig reads an installed-app client secrets file as downloaded
// from the Google Cloud console.
func LoadClientConfig(path string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("client secrets %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read client secrets: %w", err)
	}

	config, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets %s: %w", path, err)
	}
	return config, nil
}

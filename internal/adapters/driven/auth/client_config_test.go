package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

const installedSecrets = `{
  "installed": {
    "client_id": "123.apps.googleusercontent.com",
    "client_secret": "shh",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

func TestLoadClientConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(installedSecrets), 0o600))

	config, err := LoadClientConfig(path, "scope-a", "scope-b")
	require.NoError(t, err)
	assert.Equal(t, "123.apps.googleusercontent.com", config.ClientID)
	assert.Equal(t, "shh", config.ClientSecret)
	assert.Equal(t, "https://oauth2.googleapis.com/token", config.Endpoint.TokenURL)
	assert.Equal(t, []string{"scope-a", "scope-b"}, config.Scopes)
}

func TestLoadClientConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadClientConfig(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, domain.ErrNotFound)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"web": {}}`), 0o600))
	_, err = LoadClientConfig(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse client secrets")
}

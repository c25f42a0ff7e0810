package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

const testClientSecrets = `{"installed": {
  "client_id": "123.apps.googleusercontent.com",
  "client_secret": "shh",
  "auth_uri": "https://accounts.google.com/o/oauth2/auth",
  "token_uri": "https://oauth2.googleapis.com/token"
}}`

// localEnv configures a local store rooted in a fresh directory.
func localEnv(t *testing.T) (*testEnv, string) {
	t.Helper()
	env := newTestEnv(t)
	root := filepath.Join(env.dir, "scores")
	require.NoError(t, os.MkdirAll(root, 0o755))
	env.writeConfig(t,
		"[store]",
		"kind = \"local\"",
		"root = "+quote(root),
		"[renderer]",
		"binary = "+quote(env.fakeBinary(t)),
	)
	return env, root
}

func TestRunOnce_LocalStore(t *testing.T) {
	renderer := useFakeRenderer(t)
	env, root := localEnv(t)
	writeScore(t, root, "Song.mscx", "Flute", "Oboe")
	writeScore(t, root, filepath.Join("Set 2", "Waltz.mscx"), "Piano")

	_, err := env.execute(t, "run", "--once")
	require.NoError(t, err)

	for _, name := range []string{
		"Song.gen.pdf",
		"Song - Flute.gen.pdf",
		"Song - Oboe.gen.pdf",
		filepath.Join("Set 2", "Waltz.gen.pdf"),
		filepath.Join("Set 2", "Waltz - Piano.gen.pdf"),
	} {
		assert.FileExists(t, filepath.Join(root, name))
	}
	assert.NotEmpty(t, renderer.calls)
	assert.FileExists(t, filepath.Join(env.dir, "data", lockFile))
}

func TestStatus(t *testing.T) {
	useFakeRenderer(t)
	env, root := localEnv(t)

	out, err := env.execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Store:   local")
	assert.Contains(t, out, "Root:    "+root)
	assert.Contains(t, out, "No generation runs recorded yet.")

	writeScore(t, root, "Song.mscx", "Flute")
	_, err = env.execute(t, "run", "--once")
	require.NoError(t, err)

	out, err = env.execute(t, "status", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Song.mscx")
	assert.Contains(t, out, string(domain.OutcomeGenerated))
	assert.Contains(t, out, filepath.Join(root, "Song.mscx"))
	assert.NotContains(t, out, "No generation runs recorded yet.")
}

func TestReconcile(t *testing.T) {
	useFakeRenderer(t)
	env, root := localEnv(t)
	src := writeScore(t, root, "Song.mscx", "Flute", "Oboe")
	hourAgo := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, hourAgo, hourAgo))

	out, err := env.execute(t, "reconcile", "Song.mscx")
	require.NoError(t, err)
	assert.Contains(t, out, "Song.mscx: generated (3 written, 0 trashed)")

	out, err = env.execute(t, "reconcile", "Song.mscx")
	require.NoError(t, err)
	assert.Contains(t, out, "Song.mscx: up_to_date (0 written, 0 trashed)")
}

func TestReconcile_MissingSource(t *testing.T) {
	useFakeRenderer(t)
	env, _ := localEnv(t)

	out, err := env.execute(t, "reconcile", "Nope.mscx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 scores failed")
	assert.Contains(t, out, "Nope.mscx:")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		config  func(env *testEnv) []string
		wantErr error
	}{
		{
			name: "renderer missing",
			config: func(env *testEnv) []string {
				return []string{"[store]", "kind = \"local\"", "root = " + quote(env.dir)}
			},
			wantErr: domain.ErrRendererNotFound,
		},
		{
			name: "root not set",
			config: func(env *testEnv) []string {
				return []string{"[store]", "kind = \"local\"", "[renderer]", "binary = " + quote(env.fakeBinary(t))}
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "drive without credentials",
			config: func(env *testEnv) []string {
				return []string{
					"[store]", "kind = \"drive\"", "root = \"1AbC\"",
					"[renderer]", "binary = " + quote(env.fakeBinary(t)),
					"[google]", "credentials_file = " + quote(filepath.Join(env.dir, "missing.json")),
				}
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "drive without token",
			config: func(env *testEnv) []string {
				secrets := filepath.Join(env.dir, "credentials.json")
				require.NoError(t, os.WriteFile(secrets, []byte(testClientSecrets), 0o600))
				return []string{
					"[store]", "kind = \"drive\"", "root = \"1AbC\"",
					"[renderer]", "binary = " + quote(env.fakeBinary(t)),
					"[google]",
					"credentials_file = " + quote(secrets),
					"token_file = " + quote(filepath.Join(env.dir, "token.json")),
				}
			},
			wantErr: domain.ErrAuthRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useFakeRenderer(t)
			env := newTestEnv(t)
			env.writeConfig(t, tt.config(env)...)

			_, err := env.execute(t, "run", "--once")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRun_LockHeld(t *testing.T) {
	useFakeRenderer(t)
	env, _ := localEnv(t)

	dataDir := filepath.Join(env.dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o700))
	held := flock.New(filepath.Join(dataDir, lockFile))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = held.Unlock() })

	_, err = env.execute(t, "run", "--once")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another scoresync process holds")
}

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scoresync/internal/adapters/driving/tui"
	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/logger"
)

// fakeRenderer writes a placeholder PDF for every conversion.
type fakeRenderer struct {
	mu    sync.Mutex
	calls []string
}

func (r *fakeRenderer) Convert(_ context.Context, input, output string, _ *driven.StyleOverrides) error {
	r.mu.Lock()
	r.calls = append(r.calls, filepath.Base(output))
	r.mu.Unlock()
	return os.WriteFile(output, []byte("%PDF-1.4"), 0o600)
}

func (r *fakeRenderer) ConvertWithParts(_ context.Context, _, mainOutput, _, _ string) error {
	return os.WriteFile(mainOutput, []byte("%PDF-1.4"), 0o600)
}

type onePage struct{}

func (onePage) PageCount(string) (int, error) { return 1, nil }

// useFakeRenderer swaps the renderer and page counter constructors for the test.
func useFakeRenderer(t *testing.T) *fakeRenderer {
	t.Helper()
	renderer := &fakeRenderer{}

	oldRenderer, oldPages := newRenderer, newPageCounter
	newRenderer = func(domain.RendererSettings) (driven.Renderer, error) { return renderer, nil }
	newPageCounter = func() driven.PageCounter { return onePage{} }
	t.Cleanup(func() {
		newRenderer, newPageCounter = oldRenderer, oldPages
	})
	return renderer
}

// testEnv is a config file in a temporary directory.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{dir: dir, config: filepath.Join(dir, "config.toml")}
}

// writeConfig writes TOML settings. data_dir defaults to a directory inside the env.
func (e *testEnv) writeConfig(t *testing.T, lines ...string) {
	t.Helper()
	content := fmt.Sprintf("data_dir = %q\n", filepath.Join(e.dir, "data")) + strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(e.config, []byte(content), 0o600))
}

// fakeBinary creates an empty file standing in for the renderer executable.
func (e *testEnv) fakeBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(e.dir, "mscore")
	require.NoError(t, os.WriteFile(path, nil, 0o700))
	return path
}

// execute runs the root command with --config pointing at the env.
func (e *testEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--config", e.config}, args...)...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	logger.SetOutput(io.Discard)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		logger.SetOutput(os.Stderr)
		resetFlags()
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores flag variables, which cobra keeps between executions.
func resetFlags() {
	configPath = ""
	verbose = false
	runOnce = false
	statusLimit = 10
	convertOutDir = ""
	splitOutDir = ""
	authNoBrowser = false
	authPort = 0
	monitorInterval = tui.DefaultInterval
	monitorLimit = 20
	mcpPort = 0
	logger.SetVerbose(false)
}

// writeScore writes a minimal score with one single-staff instrument per name.
func writeScore(t *testing.T, dir, file string, names ...string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("<museScore version=\"3.02\">\n  <Score>\n")
	for i, name := range names {
		fmt.Fprintf(&b, "    <Part><Staff id=\"%d\"/><Instrument><longName>%s</longName></Instrument></Part>\n", i+1, name)
	}
	for i := range names {
		fmt.Fprintf(&b, "    <Staff id=\"%d\"><Measure><voice><Rest/></voice></Measure></Staff>\n", i+1)
	}
	b.WriteString("  </Score>\n</museScore>\n")

	path := filepath.Join(dir, file)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

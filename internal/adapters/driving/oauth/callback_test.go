//nolint:noctx // Test file uses http.Get for convenience; context not required in tests
package oauth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, state string) *CallbackServer {
	t.Helper()
	s := NewCallbackServer(state)
	require.NoError(t, s.Start(0))
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func redirect(t *testing.T, s *CallbackServer, params url.Values) (int, string) {
	t.Helper()
	resp, err := http.Get(s.RedirectURI() + "?" + params.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCallbackServer_Start(t *testing.T) {
	s := startServer(t, "state")

	assert.NotZero(t, s.Port())
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d/callback", s.Port()), s.RedirectURI())
}

func TestCallbackServer_Start_PortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	port := listener.Addr().(*net.TCPAddr).Port

	err = NewCallbackServer("state").Start(port)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
}

func TestCallbackServer_Success(t *testing.T) {
	s := startServer(t, "expected")

	status, body := redirect(t, s, url.Values{"state": {"expected"}, "code": {"auth-code"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Authorization successful")

	code, err := s.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "auth-code", code)
}

func TestCallbackServer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		params  url.Values
		wantErr error
		wantMsg string
	}{
		{
			name:    "state mismatch",
			params:  url.Values{"state": {"other"}, "code": {"c"}},
			wantErr: ErrStateMismatch,
		},
		{
			name:    "state differs by case",
			params:  url.Values{"state": {"EXPECTED"}, "code": {"c"}},
			wantErr: ErrStateMismatch,
		},
		{
			name:    "missing state",
			params:  url.Values{"code": {"c"}},
			wantErr: ErrStateMismatch,
		},
		{
			name:    "missing code",
			params:  url.Values{"state": {"expected"}},
			wantErr: ErrNoCode,
		},
		{
			name:    "provider error",
			params:  url.Values{"error": {"access_denied"}, "error_description": {"user said no"}},
			wantMsg: "access_denied user said no",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startServer(t, "expected")

			status, body := redirect(t, s, tt.params)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, body, "Authorization failed")

			code, err := s.Wait(waitCtx(t))
			require.Error(t, err)
			assert.Empty(t, code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestCallbackServer_EscapesProviderText(t *testing.T) {
	s := startServer(t, "expected")

	_, body := redirect(t, s, url.Values{"error": {"x"}, "error_description": {"<script>alert(1)</script>"}})
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestCallbackServer_FirstRedirectWins(t *testing.T) {
	s := startServer(t, "expected")

	redirect(t, s, url.Values{"state": {"expected"}, "code": {"first"}})
	status, _ := redirect(t, s, url.Values{"state": {"expected"}, "code": {"second"}})
	assert.Equal(t, http.StatusOK, status)

	code, err := s.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "first", code)
}

func TestCallbackServer_RejectsPost(t *testing.T) {
	s := startServer(t, "expected")

	resp, err := http.Post(s.RedirectURI(), "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCallbackServer_UnknownPath(t *testing.T) {
	s := startServer(t, "expected")

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/other", s.Port()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallbackServer_WaitCancelled(t *testing.T) {
	s := startServer(t, "expected")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallbackServer_Stop(t *testing.T) {
	s := NewCallbackServer("state")
	require.NoError(t, s.Stop(), "stop before start")

	require.NoError(t, s.Start(0))
	uri := s.RedirectURI()
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	_, err := http.Get(uri)
	assert.Error(t, err)
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	require.NoError(t, err)
	b, err := GenerateState()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
}

func TestFindAvailablePort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	busy := listener.Addr().(*net.TCPAddr).Port

	_, err = FindAvailablePort(busy, busy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no available port")

	_, err = FindAvailablePort(9000, 8999)
	require.Error(t, err)

	port, err := FindAvailablePort(busy+1, busy+200)
	require.NoError(t, err)
	assert.Greater(t, port, busy)
}

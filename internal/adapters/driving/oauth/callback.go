// Package oauth provides the loopback redirect server and browser helper
// used by the installed-app login flow.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// CallbackPath is the path the provider redirects to.
const CallbackPath = "/callback"

var (
	// ErrStateMismatch indicates a redirect that was not started by this login.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrNoCode indicates a redirect without an authorization code.
	ErrNoCode = errors.New("no authorization code received")
)

type callbackResult struct {
	code string
	err  error
}

// CallbackServer receives the authorization redirect on 127.0.0.1.
type CallbackServer struct {
	mu       sync.Mutex
	state    string
	port     int
	results  chan callbackResult
	server   *http.Server
	listener net.Listener
}

// NewCallbackServer creates a server that accepts only redirects carrying state.
func NewCallbackServer(state string) *CallbackServer {
	return &CallbackServer{
		state:   state,
		results: make(chan callbackResult, 1),
	}
}

// Start listens on port, or on a random free port when port is 0.
func (s *CallbackServer) Start(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)
	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.deliver(callbackResult{err: fmt.Errorf("callback server: %w", err)})
		}
	}()
	return nil
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	var res callbackResult
	switch {
	case query.Get("error") != "":
		res.err = fmt.Errorf("authorization denied: %s %s", query.Get("error"), query.Get("error_description"))
	case query.Get("state") != s.state:
		res.err = ErrStateMismatch
	case query.Get("code") == "":
		res.err = ErrNoCode
	default:
		res.code = query.Get("code")
	}

	page := callbackPage{Title: "Authorization successful", Message: "You can close this window and return to scoresync."}
	status := http.StatusOK
	if res.err != nil {
		page = callbackPage{Title: "Authorization failed", Message: res.err.Error()}
		status = http.StatusBadRequest
	}

	// Only the first redirect counts; later ones still get a page.
	s.deliver(res)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pageTemplate.Execute(w, page)
}

func (s *CallbackServer) deliver(res callbackResult) {
	select {
	case s.results <- res:
	default:
	}
}

// Wait blocks until a redirect arrives or ctx is done.
func (s *CallbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-s.results:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}

// Stop shuts the server down. It is safe to call more than once.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil
	return err
}

// Port returns the port the server listens on.
func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// RedirectURI returns the loopback redirect URI to register with the provider.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", s.Port(), CallbackPath)
}

type callbackPage struct {
	Title   string
	Message string
}

var pageTemplate = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>scoresync</title>
<style>
body { font-family: sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; }
main { text-align: center; padding: 32px 48px; border: 1px solid #ccc; border-radius: 12px; }
</style>
</head>
<body>
<main>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</main>
</body>
</html>
`))

// GenerateState returns a random value that ties a redirect to the login that started it.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// OpenBrowser opens the default browser at url.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

// FindAvailablePort returns the first free port in [startPort, endPort].
func FindAvailablePort(startPort, endPort int) (int, error) {
	for port := startPort; port <= endPort; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d", startPort, endPort)
}

// Package musescore drives the MuseScore command line to render scores to PDF.
package musescore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/logger"
)

// Ensure Renderer implements the interface.
var _ driven.Renderer = (*Renderer)(nil)

// maxOutputInError bounds how much renderer output is quoted in an error.
const maxOutputInError = 512

// Executor abstracts command execution for testability.
type Executor interface {
	// Run executes binary and returns its combined output.
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the renderer.
type Option func(*Renderer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Renderer) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithRetryInterval sets the initial delay between retries.
func WithRetryInterval(d time.Duration) Option {
	return func(r *Renderer) {
		r.retryInterval = d
	}
}

// Renderer converts scores with the MuseScore CLI. Failed invocations are
// retried up to the configured number of times.
type Renderer struct {
	binary        string
	retries       int
	timeout       time.Duration
	retryInterval time.Duration
	exec          Executor
}

// New constructs a renderer from settings. The binary must exist.
func New(settings domain.RendererSettings, opts ...Option) (*Renderer, error) {
	binary := strings.TrimSpace(settings.Binary)
	if binary == "" {
		return nil, fmt.Errorf("renderer binary required: %w", domain.ErrRendererNotFound)
	}

	r := &Renderer{
		binary:        binary,
		retries:       settings.Retries,
		timeout:       settings.Timeout,
		retryInterval: time.Second,
		exec:          commandExecutor{},
	}
	for _, opt := range opts {
		opt(r)
	}

	info, err := os.Stat(binary)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%s: %w", binary, domain.ErrRendererNotFound)
	}
	return r, nil
}

// Convert renders input to output, a .pdf path. A non-nil style is written to
// a temporary style document and passed to the renderer.
func (r *Renderer) Convert(ctx context.Context, input, output string, style *driven.StyleOverrides) error {
	if !strings.EqualFold(filepath.Ext(output), ".pdf") {
		return fmt.Errorf("output %s must be a .pdf file: %w", output, domain.ErrInvalidInput)
	}

	args := []string{input, "-o", output}
	if style != nil {
		stylePath, err := writeTemp("scoresync-style-*.mss", func() ([]byte, error) {
			return StyleDocument(*style)
		})
		if err != nil {
			return err
		}
		defer os.Remove(stylePath)
		args = append(args, "-S", stylePath)
	}

	return r.run(ctx, args)
}

// ConvertWithParts renders the full score to mainOutput and every manual part
// to partPrefix + part name + partSuffix using a batch job.
func (r *Renderer) ConvertWithParts(ctx context.Context, input, mainOutput, partPrefix, partSuffix string) error {
	jobPath, err := writeTemp("scoresync-job-*.json", func() ([]byte, error) {
		return batchJob(input, mainOutput, partPrefix, partSuffix)
	})
	if err != nil {
		return err
	}
	defer os.Remove(jobPath)

	return r.run(ctx, []string{"-j", jobPath})
}

// run invokes the binary, retrying failures with exponential backoff.
func (r *Renderer) run(ctx context.Context, args []string) error {
	attempt := 0
	operation := func() error {
		attempt++
		runCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		out, err := r.exec.Run(runCtx, r.binary, args)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		renderErr := fmt.Errorf("%w: %s %s: %v%s", domain.ErrRenderFailed,
			filepath.Base(r.binary), strings.Join(args, " "), err, quoteOutput(out))
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrRendererNotFound, err))
		}
		if attempt <= r.retries {
			logger.Warn("render attempt %d failed, retrying: %v", attempt, err)
		}
		return renderErr
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retryInterval
	b.MaxElapsedTime = 0
	retries := r.retries
	if retries < 0 {
		retries = 0
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx))
}

// batchJob builds the renderer's JSON job description for a manual-parts export.
func batchJob(input, mainOutput, partPrefix, partSuffix string) ([]byte, error) {
	job := []map[string]any{{
		"in":  input,
		"out": []any{mainOutput, []string{partPrefix, partSuffix}},
	}}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode batch job: %w", err)
	}
	return data, nil
}

func writeTemp(pattern string, content func() ([]byte, error)) (string, error) {
	data, err := content()
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", pattern, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}

func quoteOutput(out []byte) string {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return ""
	}
	if len(out) > maxOutputInError {
		out = append(out[:maxOutputInError:maxOutputInError], "..."...)
	}
	return ": " + string(out)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

package main

// Notes:
// - serve: the full stack is assembled against a real listener. No browser
//   is launched because converters start lazily and no request reaches the
//   renderer; rendering is covered by the root package integration tests.

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-html2pdf/internal/artifact"
	"github.com/alnah/go-html2pdf/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Auth.BearerToken = "s3cret"
	cfg.Storage.Dir = t.TempDir()
	cfg.Server.ShutdownTimeout = 5 * time.Second
	require.NoError(t, cfg.Validate())
	return cfg
}

// startServer runs serve in the background and returns its base URL and a
// function that stops it and returns serve's result.
func startServer(t *testing.T, cfg *config.Config) (string, func() error) {
	t.Helper()
	return startServerLogging(t, cfg, io.Discard, "error")
}

// startServerLogging is startServer with the server log written to w.
func startServerLogging(t *testing.T, cfg *config.Config, w io.Writer, level string) (string, func() error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, cfg, newLogger(w, level, "text"))
	}()

	var (
		once    sync.Once
		stopErr error
	)
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case stopErr = <-done:
			case <-time.After(10 * time.Second):
				stopErr = errors.New("serve did not return after cancel")
			}
		})
		return stopErr
	}
	t.Cleanup(func() { _ = stop() })

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	return base, stop
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// ---------------------------------------------------------------------------
// TestServe - Assembled server lifecycle
// ---------------------------------------------------------------------------

func TestServe(t *testing.T) {
	t.Parallel()

	t.Run("routes and graceful shutdown", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		base, stop := startServer(t, cfg)

		status, body := get(t, base+"/health")
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"status":"OK","message":"Server is running"}`, body)

		resp, err := http.Post(base+"/convert", "application/json", strings.NewReader(`{"html":"<p>x</p>"}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		status, _ = get(t, base+"/pdfs/output-1.pdf")
		assert.Equal(t, http.StatusNotFound, status)

		status, body = get(t, base+"/metrics")
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `html2pdf_auth_failures_total{reason="malformed"} 1`)
		assert.Contains(t, body, "go_goroutines")

		require.NoError(t, stop())

		_, err = http.Get(base + "/health")
		assert.Error(t, err, "listener should be closed after shutdown")
	})

	t.Run("serves stored artifacts", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		name := artifact.Name(time.Now())
		require.NoError(t, os.WriteFile(filepath.Join(cfg.Storage.Dir, name), []byte("%PDF-1.4 test"), 0o644))

		base, _ := startServer(t, cfg)

		resp, err := http.Get(base + "/pdfs/" + name)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4 test", string(body))
	})

	t.Run("metrics disabled", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		cfg.Metrics.Enabled = false
		base, _ := startServer(t, cfg)

		status, _ := get(t, base+"/metrics")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("startup log reports effective limits", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		cfg.Server.BodyLimit = "512K"
		var logs lockedBuffer
		startServerLogging(t, cfg, &logs, "info")

		require.Eventually(t, func() bool {
			return strings.Contains(logs.String(), "server listening")
		}, 5*time.Second, 20*time.Millisecond)
		assert.Contains(t, logs.String(), "body_limit_bytes=524288")
	})

	t.Run("startup sweep collects leftovers", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		cfg.Storage.TTL = time.Hour
		stale := filepath.Join(cfg.Storage.Dir, "output-1.pdf")
		fresh := filepath.Join(cfg.Storage.Dir, "output-2.pdf")
		require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
		require.NoError(t, os.WriteFile(fresh, []byte("new"), 0o644))
		old := time.Now().Add(-2 * time.Hour)
		require.NoError(t, os.Chtimes(stale, old, old))

		startServer(t, cfg)

		assert.Eventually(t, func() bool {
			_, err := os.Stat(stale)
			return errors.Is(err, os.ErrNotExist)
		}, 5*time.Second, 20*time.Millisecond)
		assert.FileExists(t, fresh)
	})

	t.Run("unusable storage dir", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		cfg.Storage.Dir = filepath.Join(blocker, "pdfs")

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		err = serve(context.Background(), ln, cfg, newLogger(io.Discard, "error", "text"))
		assert.ErrorIs(t, err, artifact.ErrStoreDir)
		assert.Equal(t, ExitIO, exitCodeFor(err))
	})
}

// ---------------------------------------------------------------------------
// TestWriteTimeout - Response deadline covers a full render
// ---------------------------------------------------------------------------

func TestWriteTimeout(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Browser.RenderTimeout = 60 * time.Second
	cfg.Browser.AcquireTimeout = 30 * time.Second
	assert.Equal(t, 90*time.Second, writeTimeout(cfg))

	cfg.Server.WriteTimeout = 2 * time.Minute
	assert.Equal(t, 2*time.Minute, writeTimeout(cfg))
}

// lockedBuffer collects log output written from the server goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

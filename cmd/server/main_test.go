package main

import (
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestServerGracefulShutdown(t *testing.T) {
	logger := zap.NewNop()

	requestStarted := make(chan struct{})
	releaseRequest := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		close(requestStarted)
		<-releaseRequest
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	server := &http.Server{Handler: mux}

	signalCh := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- serveHTTPServerWithOptions(server, 2*time.Second, logger, listener, signalCh)
	}()

	client := &http.Client{Timeout: 2 * time.Second}
	respCh := make(chan *http.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := client.Post("http://"+listener.Addr().String()+"/predict", "application/json", nil)
		if err != nil {
			errCh <- err
			return
		}
		respCh <- resp
	}()

	select {
	case <-requestStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("request did not start in time")
	}

	signalCh <- syscall.SIGTERM
	time.Sleep(50 * time.Millisecond)
	close(releaseRequest)

	select {
	case resp := <-respCh:
		t.Cleanup(func() { resp.Body.Close() })
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("unexpected status: %d body: %s", resp.StatusCode, string(body))
		}
	case err := <-errCh:
		t.Fatalf("request failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server did not shutdown cleanly: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit after shutdown")
	}
}

func TestLoadMetadataFallsBackToDefaults(t *testing.T) {
	meta, err := loadMetadata(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.InputName != "input" || len(meta.Classes) != 10 {
		t.Fatalf("unexpected defaults %+v", meta)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("DIGIT_TEST_BOOL", "true")
	t.Setenv("DIGIT_TEST_DURATION", "3s")
	t.Setenv("DIGIT_TEST_BAD_DURATION", "soon")

	if !getBool("DIGIT_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	if getBool("DIGIT_TEST_UNSET", true) != true {
		t.Fatal("expected fallback")
	}
	if got := getDuration("DIGIT_TEST_DURATION", time.Second); got != 3*time.Second {
		t.Fatalf("expected 3s, got %v", got)
	}
	if got := getDuration("DIGIT_TEST_BAD_DURATION", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := getEnv("DIGIT_TEST_UNSET", "x"); got != "x" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

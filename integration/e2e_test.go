//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The test builds and runs the real schedulerd binary against the Postgres
// and NATS instances named by DATABASE_URL and NATS_URL, then drives a full
// editing session over HTTP: open a day, place an event, save, and verify
// the row landed in the backing store.

var (
	buildOnce sync.Once
	buildErr  error
	binPath   string
)

func TestPlaceSavePersistsDay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	databaseURL := os.Getenv("DATABASE_URL")
	natsURL := os.Getenv("NATS_URL")
	if databaseURL == "" || natsURL == "" {
		t.Skip("DATABASE_URL and NATS_URL must point at live backends")
	}

	baseURL := startScheduler(t, databaseURL, natsURL)

	day := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")
	status, body := doJSON(t, http.MethodPost, baseURL+"/api/v1/days/"+day+"/open?discard=true", "")
	if status != http.StatusOK {
		t.Fatalf("open day: status=%d body=%s", status, body)
	}

	start := day + "T10:00:00Z"
	placeBody := fmt.Sprintf(`{"source_key":"videos/e2e.mp4","duration_seconds":300,"start":%q}`, start)
	status, body = doJSON(t, http.MethodPost, baseURL+"/api/v1/events", placeBody)
	if status != http.StatusCreated {
		t.Fatalf("place event: status=%d body=%s", status, body)
	}
	var placed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &placed); err != nil {
		t.Fatalf("place response is not valid JSON: %v body=%s", err, body)
	}
	if placed.ID == "" {
		t.Fatalf("place response has no event id: %s", body)
	}

	status, body = doJSON(t, http.MethodPost, baseURL+"/api/v1/save", "")
	if status != http.StatusOK {
		t.Fatalf("save: status=%d body=%s", status, body)
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	var count int
	err = pool.QueryRow(context.Background(),
		`SELECT count(*) FROM playout_events WHERE day = $1 AND event_id = $2`,
		day, placed.ID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query playout_events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 persisted event, got %d", count)
	}

	// Reopening the day must hydrate the saved event back.
	status, body = doJSON(t, http.MethodPost, baseURL+"/api/v1/days/"+day+"/open?discard=true", "")
	if status != http.StatusOK {
		t.Fatalf("reopen day: status=%d body=%s", status, body)
	}
	if !strings.Contains(body, placed.ID) {
		t.Fatalf("reopened day does not contain saved event: %s", body)
	}
}

func startScheduler(t *testing.T, databaseURL, natsURL string) string {
	t.Helper()

	buildOnce.Do(func() {
		root, err := moduleRoot()
		if err != nil {
			buildErr = err
			return
		}
		binPath = filepath.Join(t.TempDir(), "schedulerd")
		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/schedulerd")
		cmd.Dir = root
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out
		if err := cmd.Run(); err != nil {
			buildErr = fmt.Errorf("build schedulerd: %v output=%s", err, out.String())
		}
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}

	addr := freeListenAddr(t)
	cmd := exec.Command(binPath)
	cmd.Env = append(os.Environ(),
		"SCHEDULER_ADDR="+addr,
		"DATABASE_URL="+databaseURL,
		"NATS_URL="+natsURL,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		t.Fatalf("start schedulerd: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		if t.Failed() {
			t.Logf("schedulerd output:\n%s", out.String())
		}
	})

	baseURL := "http://" + addr
	waitReady(t, baseURL+"/readyz", 30*time.Second)
	return baseURL
}

func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}

func freeListenAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func waitReady(t *testing.T, url string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
			lastErr = fmt.Errorf("status=%d", resp.StatusCode)
		} else {
			lastErr = err
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("scheduler never became ready: %v", lastErr)
}

func doJSON(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, string(raw)
}

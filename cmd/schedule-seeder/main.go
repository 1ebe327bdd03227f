// schedule-seeder fills a day with demo content through the scheduler's HTTP
// API: it registers a media catalog, opens the target day, places a morning
// block, automates an evening block, and saves. Useful for demos and for
// smoke-testing a fresh deployment.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/playout-hub/scheduler/internal/platform/env"
)

type seedItem struct {
	sourceKey       string
	durationSeconds int64
}

var demoCatalog = []seedItem{
	{"videos/demo/station-ident.mp4", 30},
	{"videos/demo/morning-show.mp4", 1800},
	{"videos/demo/news-update.mp4", 300},
	{"videos/demo/documentary.mp4", 2700},
	{"videos/demo/evening-movie.mp4", 5400},
}

type seeder struct {
	base   string
	client *http.Client
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := strings.TrimRight(env.String("SEEDER_TARGET_BASE", "http://localhost:8080"), "/")
	day := env.String("SEEDER_DAY", time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02"))
	startupWait := env.Duration("SEEDER_STARTUP_WAIT", 2*time.Minute)

	s := &seeder{
		base:   base,
		client: &http.Client{Timeout: env.Duration("SEEDER_REQUEST_TIMEOUT", 10*time.Second)},
	}

	if err := s.waitReady(ctx, startupWait); err != nil {
		log.Fatalf("scheduler not ready: %v", err)
	}
	if err := s.seed(ctx, day); err != nil {
		log.Fatal(err)
	}
	log.Printf("seeded day %s on %s", day, base)
}

func (s *seeder) seed(ctx context.Context, day string) error {
	for _, item := range demoCatalog {
		if _, err := s.requestJSON(ctx, http.MethodPost, "/api/v1/media", map[string]any{
			"source_key":       item.sourceKey,
			"duration_seconds": item.durationSeconds,
		}, nil, http.StatusCreated); err != nil {
			return fmt.Errorf("register media %s: %w", item.sourceKey, err)
		}
	}

	openPath := "/api/v1/days/" + url.PathEscape(day) + "/open?discard=true"
	if _, err := s.requestJSON(ctx, http.MethodPost, openPath, nil, nil, http.StatusOK); err != nil {
		return fmt.Errorf("open day %s: %w", day, err)
	}

	morning := []struct {
		item  seedItem
		start string
	}{
		{demoCatalog[0], day + "T08:00:00Z"},
		{demoCatalog[1], day + "T08:05:00Z"},
		{demoCatalog[2], day + "T09:00:00Z"},
	}
	for _, placement := range morning {
		if _, err := s.requestJSON(ctx, http.MethodPost, "/api/v1/events", map[string]any{
			"source_key":       placement.item.sourceKey,
			"duration_seconds": placement.item.durationSeconds,
			"start":            placement.start,
		}, nil, http.StatusCreated); err != nil {
			return fmt.Errorf("place %s: %w", placement.item.sourceKey, err)
		}
	}

	evening := []map[string]any{
		{"source_key": demoCatalog[3].sourceKey, "duration_seconds": demoCatalog[3].durationSeconds},
		{"source_key": demoCatalog[4].sourceKey, "duration_seconds": demoCatalog[4].durationSeconds},
	}
	if _, err := s.requestJSON(ctx, http.MethodPost, "/api/v1/automation", map[string]any{
		"items":        evening,
		"window_start": day + "T19:00:00Z",
		"window_end":   day + "T23:00:00Z",
	}, nil, http.StatusCreated); err != nil {
		return fmt.Errorf("automate evening block: %w", err)
	}

	if _, err := s.requestJSON(ctx, http.MethodPost, "/api/v1/save", nil, nil, http.StatusOK); err != nil {
		return fmt.Errorf("save day %s: %w", day, err)
	}
	return nil
}

func (s *seeder) waitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/readyz", nil)
		if err != nil {
			return err
		}
		resp, err := s.client.Do(req)
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			lastErr = fmt.Errorf("status=%d", resp.StatusCode)
		} else {
			lastErr = err
		}
		time.Sleep(1200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout")
	}
	return lastErr
}

func (s *seeder) requestJSON(ctx context.Context, method, path string, payload any, out any, expectedStatus int) (int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode != expectedStatus {
		return resp.StatusCode, fmt.Errorf("unexpected status=%d body=%s", resp.StatusCode, truncate(string(responseBody), 240))
	}
	if out != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max] + "..."
}

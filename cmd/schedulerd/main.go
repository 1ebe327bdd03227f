package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"github.com/playout-hub/scheduler/internal/app/catalog"
	"github.com/playout-hub/scheduler/internal/app/scheduler"
	"github.com/playout-hub/scheduler/internal/config"
	"github.com/playout-hub/scheduler/internal/platform/dbpool"
	"github.com/playout-hub/scheduler/internal/platform/env"
	"github.com/playout-hub/scheduler/internal/platform/metrics"
	"github.com/playout-hub/scheduler/internal/platform/natsutil"
)

type schemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

func main() {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenAddr := env.String("SCHEDULER_ADDR", env.DefaultSchedulerAddr)
	pgURL := env.String("DATABASE_URL", env.DefaultDatabaseURL)
	natsURL := env.String("NATS_URL", env.DefaultNATSURL)
	configPath := env.String("SCHEDULER_CONFIG", "")
	shutdownTimeout := env.Duration("SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		log.Fatal(err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal(err)
	}

	pool, err := dbpool.New(runCtx, pgURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	scheduleRepo := scheduler.NewPostgresRepository(pool)
	mediaRepo := catalog.NewPostgresRepository(pool)
	if err := waitForSchema(runCtx, 30*time.Second, scheduleRepo, mediaRepo); err != nil {
		log.Fatal(err)
	}

	client, err := natsutil.ConnectJetStreamWithRetry(natsURL, 20*time.Second)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()
	publisher := natsutil.JetStreamPublisher{JS: client.JS}

	scheduleSvc := scheduler.NewService(scheduleRepo)
	scheduleSvc.Publish = publisher.Publish
	scheduleSvc.Policy = policy
	scheduleSvc.WindowSpanMinutes = cfg.WindowSpanMinutes
	mediaSvc := catalog.NewService(mediaRepo)
	handler := scheduler.NewHandler(scheduleSvc, mediaSvc, loc)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := checkReadiness(r.Context(), pool, client.Conn); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.DefaultHandler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	fmt.Printf("Scheduler listening on %s\n", listenAddr)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Fatal(err)
	case <-runCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("scheduler graceful shutdown failed: %v", err)
	}
}

func waitForSchema(ctx context.Context, timeout time.Duration, repos ...schemaEnsurer) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		lastErr = nil
		for _, repo := range repos {
			attemptCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := repo.EnsureSchema(attemptCtx)
			cancel()
			if err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		log.Printf("waiting for schema readiness: %v", lastErr)
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}

func checkReadiness(ctx context.Context, pool *pgxpool.Pool, conn *nats.Conn) error {
	if conn == nil {
		return errors.New("nats connection is nil")
	}
	if conn.Status() != nats.CONNECTED {
		return fmt.Errorf("nats is not connected: %s", conn.Status().String())
	}

	checkCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
	defer cancel()
	if err := pool.Ping(checkCtx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// jobfeed-sync-service
//
// Aggregates job postings from the configured external providers into one
// normalized, deduplicated Postgres store.
//
//	sync   — one sync pass, JSON result on stdout, for external schedulers
//	serve  — daemon with a periodic cron trigger and read-only HTTP endpoints
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"jobfeed/sync-service/internal/config"
	"jobfeed/sync-service/internal/db"
	"jobfeed/sync-service/internal/events"
	"jobfeed/sync-service/internal/model"
	"jobfeed/sync-service/internal/provider"
	"jobfeed/sync-service/internal/scheduler"
	"jobfeed/sync-service/internal/store"
	"jobfeed/sync-service/internal/syncer"
)

const version = "1.0.0"

type CLI struct {
	Sync  SyncCmd  `cmd:"" help:"Run one sync pass and exit."`
	Serve ServeCmd `cmd:"" help:"Run the sync daemon with periodic scheduling and read-only HTTP endpoints."`
}

type SyncCmd struct {
	Source string `help:"Provider to sync." enum:"jsearch,usajobs,all" default:"all"`
	Force  bool   `help:"Bypass the per-source sync cooldown."`
}

type ServeCmd struct{}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("jobsync"),
		kong.Description("Job listing aggregation and sync service."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	kctx.FatalIfErrorf(kctx.Run())
}

// app bundles the wired-up service for both commands.
type app struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	rdb    *redis.Client
	store  *store.Postgres
	syncer *syncer.Syncer
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	st := store.NewPostgres(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		rdb.Close()
		return nil, err
	}

	adapters := []provider.Adapter{
		provider.NewJSearch(cfg.JSearchAPIKey),
		provider.NewUSAJobs(cfg.USAJobsAPIKey, cfg.USAJobsUserAgent),
	}

	pub := events.NewPublisher(rdb, time.Duration(cfg.SyncCooldownMinutes)*time.Minute)

	return &app{
		cfg:   cfg,
		pool:  pool,
		rdb:   rdb,
		store: st,
		syncer: syncer.New(st, adapters, syncer.Options{
			Region:          cfg.TargetRegion,
			StaleAfterHours: cfg.StaleAfterHours,
			ExcludeKeywords: cfg.ExcludeKeywords,
			Events:          pub,
		}),
	}, nil
}

func (a *app) close() {
	a.pool.Close()
	a.rdb.Close()
}

func (c *SyncCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	res := a.syncer.Sync(ctx, model.SyncOptions{Source: c.Source, Force: c.Force})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("sync finished with %d error(s)", len(res.Errors))
	}
	return nil
}

func (c *ServeCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.New(a.syncer, a.cfg.SyncIntervalHours)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/stats", statsHandler(a.store))
	mux.HandleFunc("/jobs", jobsHandler(a.store))

	srv := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[sync-service] v%s listening on :%s", version, a.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[sync-service] HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[sync-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[sync-service] Shutdown error: %v", err)
	}
	log.Println("[sync-service] Stopped.")
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":  "ok",
		"service": "sync-service",
		"version": version,
	})
}

func statsHandler(st *store.Postgres) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := st.Stats(r.Context())
		if err != nil {
			log.Printf("[sync-service] stats query failed: %v", err)
			http.Error(w, "stats query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, stats)
	}
}

func jobsHandler(st *store.Postgres) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if s := r.URL.Query().Get("limit"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 1000 {
				http.Error(w, "limit must be an integer between 1 and 1000", http.StatusBadRequest)
				return
			}
			limit = v
		}
		listings, err := st.ActiveListings(r.Context(), limit)
		if err != nil {
			log.Printf("[sync-service] jobs query failed: %v", err)
			http.Error(w, "jobs query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, listings)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

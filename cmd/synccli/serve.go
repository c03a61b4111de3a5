package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"

	"github.com/deltasync/peersync/internal/cache"
	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/protocol"
	"github.com/deltasync/peersync/internal/session"
	"github.com/deltasync/peersync/internal/storage"
	"github.com/deltasync/peersync/internal/storage/mongostore"
	"github.com/deltasync/peersync/internal/storage/rediscache"
	"github.com/deltasync/peersync/internal/transport/wstransport"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the WebSocket control-plane endpoint peers connect to",
	Long:  "Connects to MongoDB for message/member storage, wires the protocol orchestrator, and serves /ws for peer connections.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("serve: connect mongo: %w", err)
	}
	defer client.Disconnect(context.Background())

	mongoStore, err := mongostore.New(connectCtx, client.Database(cfg.MongoDatabase))
	if err != nil {
		return fmt.Errorf("serve: init mongostore: %w", err)
	}

	var store storage.Storage = mongoStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("serve: parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		store = rediscache.New(mongoStore, rdb, 0)
		slog.Info("serve: read-through redis cache enabled", "addr", opts.Addr)
	}

	caches := cache.NewManager(store, cache.WithMaxCachedChannels(cfg.MaxCachedChannels))

	sessions := session.NewManager(func(space model.SpaceID, target model.InboxAddress) {
		slog.Info("sync candidate selected", "space", space, "target", target)
	}, session.WithConfig(session.Config{
		RequestExpiry:         cfg.RequestExpiry,
		AggressiveSyncTimeout: cfg.AggressiveSyncTimeout,
		CandidateRateLimit:    rate.Limit(cfg.CandidateRateLimit),
		CandidateBurst:        cfg.CandidateBurst,
	}))

	orch := protocol.New(caches, store, nil, sessions, protocol.Config{
		RequestExpiry:   cfg.RequestExpiry,
		MaxChunkSize:    cfg.MaxChunkSize,
		TombstoneMaxAge: cfg.TombstoneMaxAge,
	})

	hub := wstransport.NewHub(nil)
	go drainInbound(ctx, hub)
	go runTombstoneGC(ctx, orch, cfg.TombstoneMaxAge)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		inbox := model.InboxAddress(r.URL.Query().Get("inbox"))
		if inbox == "" {
			http.Error(w, "missing inbox query param", http.StatusBadRequest)
			return
		}
		if err := hub.ServeHTTP(w, r, inbox); err != nil {
			slog.Warn("serve: websocket upgrade failed", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := cfg.WebSocketAddr
	slog.Info("synccli serve: listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

// drainInbound logs envelopes received over the hub until ctx is cancelled.
// A full wire-level dispatch to the orchestrator's Build*/Apply* methods
// requires a space/channel routing layer on top of raw inbox addresses,
// which is the host application's job; this keeps the CLI demo self-contained.
func drainInbound(ctx context.Context, hub *wstransport.Hub) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-hub.Receive():
			if !ok {
				return
			}
			slog.Debug("serve: received envelope", "inbox", env.InboxAddress, "bytes", len(env.Payload))
		}
	}
}

// runTombstoneGC periodically reaps tombstones older than maxAge, per
// spec.md §9's retention policy, until ctx is cancelled.
func runTombstoneGC(ctx context.Context, orch *protocol.Orchestrator, maxAge time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := model.Timestamp(time.Now().Add(-maxAge).UnixMilli())
			n, err := orch.CleanupTombstones(ctx, cutoff)
			if err != nil {
				slog.Warn("serve: tombstone cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("serve: tombstone cleanup", "reaped", n)
			}
		}
	}
}

// Command relayguard is the filtering proxy's process entrypoint: it
// wires configuration, the rule store, the reference cache, the log
// sink, the background janitor, and the client-facing/admin HTTP
// surfaces, then serves until terminated.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nbd-wtf/go-nostr/nip11"

	"github.com/relayguard/relayguard/internal/admin"
	"github.com/relayguard/relayguard/internal/config"
	"github.com/relayguard/relayguard/internal/janitor"
	"github.com/relayguard/relayguard/internal/logsink"
	"github.com/relayguard/relayguard/internal/metrics"
	"github.com/relayguard/relayguard/internal/policy"
	"github.com/relayguard/relayguard/internal/refcache"
	"github.com/relayguard/relayguard/internal/rulestore"
	"github.com/relayguard/relayguard/internal/session"
	"github.com/relayguard/relayguard/internal/transport"
	"github.com/relayguard/relayguard/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("relayguard: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := cfg.Logger()

	repo, err := rulestore.Open(cfg.DatabaseURL, cfg.SupabaseAPIKey)
	if err != nil {
		logger.Error("failed to open rule repository", "error", err)
		os.Exit(1)
	}

	facade := rulestore.NewFacade(repo, logger)
	if err := facade.Reload(context.Background()); err != nil {
		logger.Error("initial rule load failed", "error", err)
		os.Exit(1)
	}

	relayURLs, err := facade.RelayURLs(context.Background())
	if err != nil {
		logger.Error("failed to load relay list", "error", err)
		os.Exit(1)
	}

	refs := refcache.New(cfg.RefCacheCapacity, time.Duration(cfg.RefCacheTTLSeconds)*time.Second)

	// The IP ban / npub ban / kind blacklist / safelist rows are an
	// admin-managed collaborator exactly like the rule rows; only the
	// rule repository contract is specified, so this snapshot starts
	// empty and is populated by whatever process owns that schema.
	lists := policy.NewStore()

	pipeline := policy.NewPipeline(lists, facade, refs)

	sink, err := logsink.New(cfg.RedisURL, cfg.LogQueueCapacity, logger)
	if err != nil {
		logger.Error("failed to connect log sink", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	j := janitor.New(refs, time.Duration(cfg.JanitorIntervalSeconds)*time.Second, logger)
	go j.Run(ctx)

	dialer := upstream.Dialer{Relays: upstream.RelayList{URLs: relayURLs}}
	reqKindBlacklist := map[int64]bool{}

	newSession := func(client session.Conn, remoteIP string) *session.Session {
		return session.New(client, dialer, pipeline, refs, sink, remoteIP, reqKindBlacklist)
	}
	relayServer := transport.NewServer(newSession, logger)

	relayInfo := nip11.RelayInformationDocument{
		Name:          "relayguard",
		Description:   "filtering proxy in front of an upstream Nostr relay",
		Software:      "https://github.com/relayguard/relayguard",
		Version:       "0.1.0",
		SupportedNIPs: []any{1, 11},
	}

	adminServer, err := admin.NewServer(facade, cfg.AdminUser, cfg.AdminPass, relayInfo, metrics.Registry())
	if err != nil {
		logger.Error("failed to build admin server", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", adminServer)
	mux.Handle("/nip11", adminServer)
	mux.Handle("/metrics", adminServer)
	mux.Handle("/api/", adminServer)
	mux.Handle("/", relayServer)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	go func() {
		logger.Info("relayguard listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	httpServer.Shutdown(shutdownCtx)
}

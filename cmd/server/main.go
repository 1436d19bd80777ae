// cmd/server is the main entrypoint for an ABD replica.
//
// Configuration is entirely via flags so a single binary can serve any
// replica in the cluster.
//
// Example — single replica (N=1, degenerate mode):
//
//	./server --id node1 --addr :8080
//
// Example — 3-replica cluster:
//
//	./server --id node1 --addr :8080 --peers http://localhost:8081,http://localhost:8082
//	./server --id node2 --addr :8081 --peers http://localhost:8080,http://localhost:8082
//	./server --id node3 --addr :8082 --peers http://localhost:8080,http://localhost:8081
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"abdreg/internal/api"
	"abdreg/internal/config"
	"abdreg/internal/metrics"
	"abdreg/internal/peerclient"
	"abdreg/internal/register"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// ── Register core + peer broadcaster ───────────────────────────────────
	// core needs the broadcaster to fan out quorum requests; the broadcaster
	// needs core as its LocalHandler for self-invocation. The two-step
	// construction below breaks that cycle.
	counters := &metrics.Counters{}
	core := register.New(cfg.SelfID, counters)
	broadcaster := peerclient.New(cfg.SelfID, cfg.PeerURLs, core)
	core.Attach(broadcaster)

	// ── HTTP server ────────────────────────────────────────────────────────
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(), api.Recovery())

	handler := api.NewHandler(core, counters, cfg.SelfID, len(cfg.PeerURLs))
	handler.Register(router)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// ── Graceful shutdown ──────────────────────────────────────────────────
	// Listen for SIGINT/SIGTERM and give in-flight requests 15s to complete.
	go func() {
		log.Printf("Replica %s listening on %s (N=%d, majority=%d)",
			cfg.SelfID, cfg.ListenAddr, cfg.N(), cfg.N()/2+1)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down replica", cfg.SelfID)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}

// In file: cmd/calcagent/serve.go
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

	"github.com/dileep-u-k/llm-calculator/internal/agent"
	"github.com/dileep-u-k/llm-calculator/internal/cache"
	"github.com/dileep-u-k/llm-calculator/internal/llm"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP evaluation API",
	Long: `Serve starts an HTTP server exposing POST /api/v1/evaluate.

Environment:
  PORT         listen port (default 8080)
  REDIS_ADDR   enables the result cache and per-model profiling
  CACHE_TTL    lifetime of cached results, e.g. 1h (default 24h)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe is the composition root of the server: it loads configuration,
// initializes all services, injects dependencies, and starts the server.
func runServe(ctx context.Context) error {
	buildInfo := GetBuildInfo()
	log.Printf("🚀 Starting calcagent | Version: %s | Commit: %s", buildInfo.Version, buildInfo.GitCommit)

	// 1. LOAD CONFIGURATION
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	log.Println("✅ Configuration loaded.")

	// 2. INITIALIZE SERVICES
	client, closeClient, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeClient(); err != nil {
			log.Printf("WARNING: failed to close model client: %v", err)
		}
	}()

	var resultCache *cache.ResultCache
	var profiler *llm.Profiler
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("could not connect to Redis: %w", err)
		}
		resultCache = cache.New(rdb, cache.DefaultPrefix, cfg.CacheTTL)
		profiler = llm.NewProfiler(rdb)
		client = llm.NewProfiledClient(client, profiler, cfg.Agent.Model)
		log.Println("✅ Redis cache and profiler enabled.")
	} else {
		log.Println("⚠️ REDIS_ADDR not set; caching disabled.")
	}

	evaluators, err := buildEvaluators(client, cfg.Agent)
	if err != nil {
		return err
	}
	handler := NewEvaluateHandler(evaluators, cfg.Agent.Mode, cfg.Agent.Model, resultCache, profiler)
	log.Println("✅ All services initialized.")

	// 3. SETUP AND RUN THE WEB SERVER
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return runServerWithGracefulShutdown(srv)
}

// buildEvaluators creates one orchestrator per mode over a shared client.
// The configured mode must build; the other one is best effort.
func buildEvaluators(client llm.LLMClient, cfg agent.Config) (map[agent.Mode]agent.Evaluator, error) {
	trace := log.New(log.Writer(), "[agent] ", log.LstdFlags)
	evaluators := make(map[agent.Mode]agent.Evaluator, 2)
	for _, mode := range []agent.Mode{agent.ModeReducing, agent.ModeStepwise} {
		e, err := agent.New(client, cfg.WithMode(mode), agent.WithLogger(trace))
		if err != nil {
			if mode == cfg.Mode {
				return nil, fmt.Errorf("failed to build %s agent: %w", mode, err)
			}
			log.Printf("WARNING: %s mode unavailable: %v", mode, err)
			continue
		}
		evaluators[mode] = e
	}
	return evaluators, nil
}

// runServerWithGracefulShutdown handles the server lifecycle.
func runServerWithGracefulShutdown(srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("👂 calcagent is listening on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen error: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("👋 Server exited gracefully.")
	return nil
}

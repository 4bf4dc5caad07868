// Command benchd runs the continuous, multi-provider LLM benchmark
// orchestrator: it wires the persistence layer, adapter registry, task
// catalog, sandbox manager, and scheduler, then serves a minimal
// health/metrics HTTP surface until it is asked to stop.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codeready-toolchain/llmbench/internal/adapter"
	"github.com/codeready-toolchain/llmbench/internal/benchconfig"
	"github.com/codeready-toolchain/llmbench/internal/cache"
	"github.com/codeready-toolchain/llmbench/internal/obslog"
	"github.com/codeready-toolchain/llmbench/internal/sandbox"
	"github.com/codeready-toolchain/llmbench/internal/scheduler"
	"github.com/codeready-toolchain/llmbench/internal/store"
	"github.com/codeready-toolchain/llmbench/internal/task"
)

var (
	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "llmbench_build_info",
		Help: "Static build metadata for the running benchd process.",
	}, []string{"build_id"})
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("LLMBENCH_CONFIG", ""), "path to an optional TOML config file")
	envPath := flag.String("env-file", getEnv("ENV_FILE", ".env"), "path to an optional .env file")
	httpPort := flag.String("http-port", getEnv("HTTP_PORT", "8080"), "HTTP port for /healthz and /metrics")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("no .env file loaded, continuing with existing environment", "path", *envPath, "error", err)
	}

	cfg, err := benchconfig.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	obslog.Init(cfg.LogFormat, cfg.LogLevel)
	slog.Info("starting benchd", "http_port", *httpPort, "build_id", cfg.BuildID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := store.NewClient(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Warn("error closing database client", "error", err)
		}
	}()
	slog.Info("connected to database and applied migrations")

	catalog, err := loadCatalog(cfg.TaskOverlayPath)
	if err != nil {
		slog.Error("failed to load task catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("task catalog loaded", "code_tasks", len(catalog.CodeTasks), "tool_tasks", len(catalog.ToolTasks))

	dashboardCache := cache.New(cfg.CacheDir, cfg.CacheSchema, cfg.BuildID, cfg.CacheTTL)

	sched := scheduler.New(scheduler.Deps{
		Store:           dbClient,
		Sandbox:         sandbox.NewManager(),
		Adapters:        adapter.NewRegistry(),
		Catalog:         catalog,
		Cache:           dashboardCache,
		ToolConcurrency: cfg.ToolConcurrency,
	})
	if err := sched.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()
	slog.Info("scheduler started", "tool_concurrency", cfg.ToolConcurrency)

	buildInfo.WithLabelValues(cfg.BuildID).Set(1)
	prometheus.MustRegister(buildInfo)

	server := newServer(*httpPort, dbClient)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown did not complete cleanly", "error", err)
	}
}

func loadCatalog(overlayPath string) (*task.Catalog, error) {
	catalog := task.Builtin()
	if overlayPath != "" {
		data, err := os.ReadFile(overlayPath)
		if err == nil {
			overlay, err := task.LoadOverlay(data)
			if err != nil {
				return nil, err
			}
			catalog = task.MergeOverlay(catalog, overlay)
		} else {
			slog.Warn("task overlay not found, using built-in catalog only", "path", overlayPath, "error", err)
		}
	}
	if err := task.ValidateCatalog(catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

func newServer(port string, dbClient *store.Client) *http.Server {
	gin.SetMode(getEnv("GIN_MODE", "release"))
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		health, err := store.Health(reqCtx, dbClient.DB())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": health, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": health})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/evercart/storefront/internal/checkout"
	flowsqlite "github.com/evercart/storefront/internal/checkout/flowlog/sqlite"
	"github.com/evercart/storefront/internal/pkg/cache"
	"github.com/evercart/storefront/internal/pkg/telemetry"
	"github.com/evercart/storefront/internal/session"
	sessionsqlite "github.com/evercart/storefront/internal/session/sqlite"
	"github.com/evercart/storefront/internal/storefront/core/ports"
	"github.com/evercart/storefront/internal/storefront/infra/catalogcache"
	"github.com/evercart/storefront/internal/storefront/infra/httpx"
	"github.com/evercart/storefront/internal/storefront/infra/restapi"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	// Load environment variables from .env file, if one exists.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, proceeding with environment variables")
	}

	telemetry.InitLogger()

	ctx := context.Background()

	shutdownTracer, err := telemetry.SetupTracer(ctx, "storefront")
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	dataDir := getEnv("DATA_DIR", "./data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		slog.Error("create data dir", "dir", dataDir, "error", err)
		os.Exit(1)
	}

	flowLog, err := flowsqlite.Open(filepath.Join(dataDir, "checkout.db"))
	if err != nil {
		slog.Error("open checkout log", "error", err)
		os.Exit(1)
	}
	defer flowLog.Close()

	sessions, err := sessionsqlite.Open(filepath.Join(dataDir, "session.db"))
	if err != nil {
		slog.Error("open session store", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	backendURL := getEnv("BACKEND_URL", "http://localhost:4000")
	client := restapi.New(backendURL, sessionTokenSource{store: sessions})

	var catalog ports.CatalogService = restapi.NewCatalogClient(client)
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		ttl := getDuration("PRODUCT_CACHE_TTL", 5*time.Minute)
		catalog = catalogcache.New(catalog, cache.NewRedisCache(redisAddr, "storefront"), ttl)
	}

	backends := checkout.Backends{
		Checkout: restapi.NewCheckoutClient(client),
		Payment:  restapi.NewPaymentClient(client),
		Orders:   restapi.NewOrderClient(client),
	}
	flowCfg := checkout.Config{
		DeliveryFee: getFloat("DELIVERY_FEE", 30),
		Log:         flowLog,
	}

	handler := httpx.NewHandler(
		checkout.NewStore(),
		backends,
		flowCfg,
		restapi.NewAccountClient(client),
		catalog,
		sessions,
	)
	router := httpx.NewRouter(handler)

	addr := ":" + getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "storefront"),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		slog.Info("storefront running", "addr", addr, "backend", backendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

// sessionTokenSource feeds the durable session's bearer token to the REST
// client. An anonymous visitor simply means no Authorization header.
type sessionTokenSource struct {
	store session.Store
}

func (s sessionTokenSource) Token(ctx context.Context) (string, error) {
	sess, err := s.store.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("invalid numeric env value, using fallback", "key", key, "value", value)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("invalid duration env value, using fallback", "key", key, "value", value)
	}
	return fallback
}

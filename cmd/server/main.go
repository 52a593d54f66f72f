package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/tenancydeposit/internal/auth"
	"github.com/mmynk/tenancydeposit/internal/config"
	"github.com/mmynk/tenancydeposit/internal/events"
	"github.com/mmynk/tenancydeposit/internal/ledger"
	"github.com/mmynk/tenancydeposit/internal/metrics"
	"github.com/mmynk/tenancydeposit/internal/middleware"
	"github.com/mmynk/tenancydeposit/internal/payout"
	"github.com/mmynk/tenancydeposit/internal/service"
	"github.com/mmynk/tenancydeposit/internal/storage"
	"github.com/mmynk/tenancydeposit/internal/storage/memory"
	"github.com/mmynk/tenancydeposit/internal/storage/postgres"
	"github.com/mmynk/tenancydeposit/internal/storage/sqlite"
	"github.com/mmynk/tenancydeposit/pkg/depositapi"
	"github.com/mmynk/tenancydeposit/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	closeLog := logging.SetupFile(logging.ParseLevel(cfg.LogLevel), cfg.LogFile)
	defer closeLog.Close()

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMemory:
		slog.Warn("Using in-memory storage; state is lost on exit")
		return memory.New(), nil
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return sqlite.New(cfg.DBPath)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.DBDriver)

	book := payout.NewBook(cfg.BlockedPayees...)
	if len(cfg.BlockedPayees) > 0 {
		slog.Warn("Payouts blocked", "payees", cfg.BlockedPayees)
	}

	dispatcher := events.NewDispatcher(store, events.WithLogger(slog.Default()))
	l, err := ledger.New(store, ledger.Config{
		Landlord:           cfg.Landlord,
		AllowPropertyReuse: cfg.AllowPropertyReuse,
	}, ledger.WithDisburser(book), ledger.WithEmitter(dispatcher))
	if err != nil {
		return err
	}
	slog.Info("Ledger ready", "landlord", l.Landlord(), "allow_property_reuse", cfg.AllowPropertyReuse)

	m := metrics.New()
	dispatcher.Subscribe(events.LogObserver{Logger: slog.Default()})
	dispatcher.Subscribe(m.EventObserver(l.CustodyObserver()))
	if total, err := l.CustodyObserver()(ctx); err == nil {
		_ = m.SetCustody(total)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	mux := http.NewServeMux()
	path, handler := depositapi.NewDepositServiceHandler(
		service.NewDepositService(l),
		connect.WithInterceptors(
			m.Interceptor(),
			middleware.OptionalAuth(jwtManager),
			limiter.Interceptor(),
			middleware.LoggingInterceptor(),
		),
	)
	mux.Handle(path, handler)
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := l.PropertyIDs(r.Context()); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return dispatcher.Run(ctx, cfg.RelayInterval)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// loggingMiddleware logs all incoming HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, "+depositapi.ReasonHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

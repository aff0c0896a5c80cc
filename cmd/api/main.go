package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"card-rewards-api/internal/cache"
	"card-rewards-api/internal/catalog"
	"card-rewards-api/internal/config"
	"card-rewards-api/internal/database"
	"card-rewards-api/internal/events"
	"card-rewards-api/internal/features"
	"card-rewards-api/internal/handler"
	"card-rewards-api/internal/logger"
	"card-rewards-api/internal/middleware"
	"card-rewards-api/internal/service"
	"card-rewards-api/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "JSON config file path")
	seedFile := flag.String("seed", "", "Catalog file (YAML or JSON) to load into the database at startup")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, *seedFile, log); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, seedFile string, log *zap.Logger) error {
	decimal.MarshalJSONWithoutQuotes = true

	shutdownTracing, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// Initialize database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	catalogCache, closeCache, err := newCache(cfg.Cache, log)
	if err != nil {
		return err
	}
	defer closeCache()

	flags := features.Defaults(cfg.Cache.Enabled, cfg.Features.EventHooks)

	// The event_hooks flag gates publishing, so handlers are always registered.
	eventManager := events.NewManager(true, log)
	defer eventManager.Shutdown()
	subscribeAuditLog(eventManager, log)

	svc := service.NewService(db, service.Options{
		Cache:    catalogCache,
		CacheTTL: cfg.Cache.TTL(),
		Features: flags,
		Events:   eventManager,
		Logger:   log,
	})

	if seedFile != "" {
		if err := seed(context.Background(), svc, seedFile, log); err != nil {
			return err
		}
	}

	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
		Features:    flags,
		Logger:      log,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware())

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h.Routes(r)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Error shutting down server", zap.Error(err))
		}
	}()

	log.Info("Starting server",
		zap.String("addr", addr),
		zap.Bool("tls", cfg.Server.EnableTLS),
		zap.String("database", cfg.Database.Path),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)

	if cfg.Server.EnableTLS {
		err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-shutdownDone
	return nil
}

// newCache picks Redis when an address is configured, else an in-memory cache.
func newCache(cfg config.CacheConfig, log *zap.Logger) (cache.Cache, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}

	if cfg.RedisAddr == "" {
		log.Info("Using in-memory catalog cache")
		return cache.NewInMemoryCache(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "card-rewards:")
	if err != nil {
		return nil, nil, err
	}
	log.Info("Using Redis catalog cache", zap.String("addr", cfg.RedisAddr))

	return redisCache, func() { redisCache.Close() }, nil
}

// seed loads a catalog file through the service so every card is validated.
func seed(ctx context.Context, svc *service.Service, path string, log *zap.Logger) error {
	docs, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if _, err := svc.CreateCard(ctx, doc); err != nil {
			return fmt.Errorf("failed to seed card %q: %w", doc.ID, err)
		}
	}

	log.Info("Seeded card catalog", zap.String("file", path), zap.Int("cards", len(docs)))
	return nil
}

func subscribeAuditLog(m *events.Manager, log *zap.Logger) {
	audit := func(ctx context.Context, event events.Event) error {
		fields := []zap.Field{zap.String("event", string(event.Type)), zap.Time("at", event.Timestamp)}
		switch data := event.Data.(type) {
		case events.CardUpsertedData:
			fields = append(fields, zap.String("card_id", data.Card.ID))
		case events.CardDeletedData:
			fields = append(fields, zap.String("card_id", data.CardID))
		case events.RecommendationGeneratedData:
			fields = append(fields,
				zap.String("request_id", data.RequestID),
				zap.String("top_card", data.TopCardID),
				zap.Int("ranked", data.CardsRanked),
			)
		}
		log.Debug("event", fields...)
		return nil
	}

	m.Subscribe(events.EventCardUpserted, audit)
	m.Subscribe(events.EventCardDeleted, audit)
	m.Subscribe(events.EventRecommendationGenerated, audit)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/inbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/meeting"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/slotcache"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage/memory"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage/postgres"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

type settings struct {
	service     string
	httpPort    string
	grpcPort    string
	loc         *time.Location
	maxAttempts int
	cacheTTL    time.Duration
	redisDB     int
	brokers     string
}

func loadSettings() (settings, error) {
	s := settings{
		service: config.String("SERVICE_NAME", "booking-service"),
		brokers: config.String("KAFKA_BROKERS", ""),
	}
	var err error
	if s.httpPort, err = config.Port("PORT", "8083"); err != nil {
		return s, err
	}
	if s.grpcPort, err = config.Port("GRPC_PORT", "9093"); err != nil {
		return s, err
	}
	tz := config.String("SCHEDULE_TIMEZONE", "UTC")
	if s.loc, err = time.LoadLocation(tz); err != nil {
		return s, fmt.Errorf("SCHEDULE_TIMEZONE %q: %w", tz, err)
	}
	if s.maxAttempts, err = config.Int("BOOKING_MAX_ATTEMPTS", 3); err != nil {
		return s, err
	}
	ttl, err := config.Int("SLOT_CACHE_TTL_SECONDS", 300)
	if err != nil {
		return s, err
	}
	s.cacheTTL = time.Duration(ttl) * time.Second
	if s.redisDB, err = config.Int("REDIS_DB", 0); err != nil {
		return s, err
	}
	return s, nil
}

func runServer() error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	logger := runtime.NewLogger(cfg.service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		store     storage.Store
		notifier  booking.Notifier
		events    consumer.Inbox
		readiness []runtime.ReadyCheck
	)
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err := db.Open(ctx, dbURL, db.Options{})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			return err
		}
		defer pool.Close()

		if config.Bool("DB_AUTO_MIGRATE", true) {
			applied, err := db.NewMigrator(pool, postgres.Migrations, postgres.MigrationsDir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied", "count", applied)
		}

		store = postgres.New(pool)
		outboxRepo := outbox.NewRepository()
		notifier = outbox.NewNotifier(pool, outboxRepo)
		events = inbox.NewRepository(pool)
		readiness = append(readiness, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		if cfg.brokers != "" {
			publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
				Brokers:   cfg.brokers,
				PollEvery: 2 * time.Second,
				BatchSize: 50,
			})
			go publisher.Run(ctx)
		}
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory store")
		store = memory.New()
		notifier = outbox.NewLogNotifier(logger)
		events = inbox.NewMemory()
	}

	var dir directory.Directory = directory.NewProjection(store)
	if addr := config.String("DIRECTORY_GRPC_ADDR", ""); addr != "" {
		client, err := directory.NewClient(ctx, addr)
		if err != nil {
			return fmt.Errorf("directory client: %w", err)
		}
		defer func() { _ = client.Close() }()
		dir = client
	}

	var (
		slotCache   booking.SlotCache
		invalidator scheduling.Invalidator
	)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()
		c := slotcache.New(rdb, cfg.cacheTTL, config.String("SLOT_CACHE_PREFIX", "slots"))
		slotCache, invalidator = c, c
		readiness = append(readiness, runtime.ReadyCheck{Name: "redis", Check: slotcache.ReadyCheck(rdb)})
	}

	var meetings meeting.Allocator
	if base := config.String("MEETING_BASE_URL", ""); base != "" {
		meetings = meeting.NewLinkAllocator(base)
	}

	bookingSvc := booking.NewService(booking.Deps{
		Store:       store,
		Directory:   dir,
		Meetings:    meetings,
		Notifier:    notifier,
		Cache:       slotCache,
		Location:    cfg.loc,
		MaxAttempts: cfg.maxAttempts,
		Logger:      logger,
	})
	schedulingSvc := scheduling.NewService(scheduling.Deps{
		Rules:     store,
		Breaks:    store,
		Directory: dir,
		Cache:     invalidator,
		Location:  cfg.loc,
		Logger:    logger,
	})

	if cfg.brokers != "" {
		readiness = append(readiness, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.brokers)})
		startConsumers(ctx, logger, cfg.brokers, events, store, bookingSvc)
	}

	mux := runtime.NewBaseMuxWithReady(readiness...)
	handlers.Register(mux,
		handlers.NewAppointmentHandler(bookingSvc, logger),
		handlers.NewScheduleHandler(schedulingSvc, cfg.loc, logger),
	)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, handlers.UserHeader),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", handlers.UserHeader, httpx.RequestIDHeader},
			ExposedHeaders: []string{httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.httpPort,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.grpcPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcSrv := grpcserver.NewServer(logger)
	health := grpcserver.Register(grpcSrv, bookingSvc)
	grpcserver.Serve(ctx, logger, grpcSrv, health, lis)

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

func startConsumers(ctx context.Context, logger *slog.Logger, brokers string, events consumer.Inbox, users storage.UserStore, attendance consumer.AttendanceRecorder) {
	groupID := config.String("KAFKA_GROUP_ID", "booking-service")
	start := func(topic string, handler consumer.Handler) {
		if strings.TrimSpace(topic) == "" {
			return
		}
		c := consumer.New(logger, events, consumer.Config{Brokers: brokers, GroupID: groupID, Topic: topic}, handler)
		go c.Run(ctx)
	}
	start(config.String("KAFKA_USER_TOPIC", consumer.TopicUserUpserted), consumer.UserProjection(users))
	start(config.String("KAFKA_ATTENDANCE_TOPIC", consumer.TopicAttendance), consumer.Attendance(attendance, logger))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

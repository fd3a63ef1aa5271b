package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"

	"ms-checkin/internal/analytics"
	analytics_api "ms-checkin/internal/analytics/api"
	"ms-checkin/internal/audit"
	"ms-checkin/internal/auth"
	"ms-checkin/internal/checkin/checkin_api"
	checkindb "ms-checkin/internal/checkin/db"
	checkin "ms-checkin/internal/checkin/service"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/config"
	"ms-checkin/internal/database"
	"ms-checkin/internal/database/migrations"
	eventsdb "ms-checkin/internal/events/db"
	"ms-checkin/internal/events/event_api"
	events "ms-checkin/internal/events/service"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/lock"
	"ms-checkin/internal/logger"
	participantsdb "ms-checkin/internal/participants/db"
	"ms-checkin/internal/participants/participant_api"
	participants "ms-checkin/internal/participants/service"
	"ms-checkin/internal/sse"
	"ms-checkin/internal/telemetry"
	ticketsdb "ms-checkin/internal/tickets/db"
	"ms-checkin/internal/tickets/qr"
	tickets "ms-checkin/internal/tickets/service"
	"ms-checkin/internal/tickets/template"
	"ms-checkin/internal/tickets/ticket_api"
	"ms-checkin/internal/tickets/token"
	usersdb "ms-checkin/internal/users/db"
	users "ms-checkin/internal/users/service"
	"ms-checkin/internal/users/user_api"
)

// deps are the infrastructure pieces the services are built on.
type deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *bun.DB
	Clock     clock.Clock
	Locker    lock.Locker
	Publisher kafka.Publisher
	Verifier  auth.TokenVerifier
	Issuer    users.TokenIssuer
	Cache     auth.UserCache
	Feed      *sse.CheckinEventEmitter
}

type services struct {
	Users        *users.UserService
	Events       *events.EventService
	Participants *participants.ParticipantService
	Tickets      *tickets.TicketService
	Checkin      *checkin.CheckinService
	Analytics    *analytics.Service
}

func newServices(d deps) *services {
	userStore := &usersdb.DB{Bun: d.DB}
	eventStore := &eventsdb.DB{Bun: d.DB}
	participantStore := &participantsdb.DB{Bun: d.DB}
	ticketStore := &ticketsdb.DB{Bun: d.DB}
	checkinStore := &checkindb.DB{Bun: d.DB}
	trail := audit.NewDB(d.DB, d.Clock, d.Logger)

	ticketService := tickets.NewTicketService(ticketStore, eventStore, token.Random{}, d.Config.Tickets.TokenAttempts, d.Publisher, trail, d.Clock, d.Logger)
	return &services{
		Users:        users.NewUserService(userStore, d.Issuer, d.Clock, d.Logger),
		Events:       events.NewEventService(eventStore, trail, d.Clock, d.Logger),
		Participants: participants.NewParticipantService(participantStore, eventStore, d.Locker, d.Publisher, trail, d.Clock, d.Logger),
		Tickets:      ticketService,
		Checkin:      checkin.NewCheckinService(checkinStore, ticketStore, ticketService, d.Feed, d.Publisher, trail, d.Clock, d.Logger),
		Analytics:    analytics.NewService(eventStore, participantStore, ticketStore, checkinStore),
	}
}

// accessLog reports every request through the category logger.
func accessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}

func newRouter(d deps, s *services) http.Handler {
	userHandler := user_api.NewHandler(s.Users, d.Logger)
	eventHandler := event_api.NewHandler(s.Events, d.Logger)
	participantHandler := participant_api.NewHandler(s.Participants, d.Logger)
	ticketHandler := ticket_api.NewHandler(s.Tickets, qr.NewGenerator(d.Config.Tickets.QRSize), template.NewTicketPDFGenerator(d.Config.Tickets.PDFFontPath), d.Logger)
	checkinHandler := checkin_api.NewHandler(s.Checkin, d.Feed, d.Logger)
	analyticsHandler := analytics_api.NewHandler(s.Analytics, d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(d.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// --- Public Routes ---
	r.Post("/api/auth/login", userHandler.Login)

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.Verifier, &usersdb.DB{Bun: d.DB}, d.Cache, d.Logger))

		r.Get("/api/auth/me", userHandler.Me)

		r.Route("/api/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Post("/", eventHandler.CreateEvent)
			r.Route("/{eventId}", func(r chi.Router) {
				r.Get("/", eventHandler.GetEvent)
				r.Post("/publish", eventHandler.Publish)
				r.Post("/finish", eventHandler.Finish)

				r.Get("/participants", participantHandler.ListParticipants)
				r.Post("/participants", participantHandler.RegisterParticipant)
				r.Post("/participants/import", participantHandler.ImportParticipants)

				r.Post("/tickets", ticketHandler.IssueTickets)

				r.Get("/checkins/stream", checkinHandler.Stream)
				analyticsHandler.RegisterRoutes(r)
			})
		})

		r.Route("/api/tickets", func(r chi.Router) {
			r.Post("/{ticketId}/sent", ticketHandler.MarkSent)
			r.Get("/by-token/{token}", ticketHandler.GetByToken)
			r.Get("/by-token/{token}/qr", ticketHandler.QRCode)
			r.Get("/by-token/{token}/pdf", ticketHandler.PDF)
		})

		r.Post("/api/checkins", checkinHandler.Confirm)
	})

	return r
}

func setupAuth(ctx context.Context, d *deps) error {
	cfg := d.Config.Auth
	if cfg.OIDCIssuer != "" {
		verifier, err := auth.NewOIDC(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			return err
		}
		d.Verifier = verifier
		d.Logger.Info("AUTH", fmt.Sprintf("Verifying bearer tokens against %s", cfg.OIDCIssuer))
		return nil
	}
	hmac := auth.NewHMAC(cfg.JWTSecret, cfg.TokenTTL, d.Clock)
	d.Verifier = hmac
	d.Issuer = hmac
	d.Logger.Warn("AUTH", "Using locally signed HS256 tokens")
	return nil
}

func setupRedis(ctx context.Context, d *deps) (*redis.Client, error) {
	cfg := d.Config.Redis
	if cfg.Addr == "" {
		d.Locker = lock.NewLocal()
		d.Logger.Info("REDIS", "REDIS_ADDR not set, using in-process locks")
		return nil, nil
	}
	client, err := database.OpenRedis(ctx, cfg, d.Logger)
	if err != nil {
		return nil, err
	}
	d.Locker = lock.NewRedis(client, cfg.LockPrefix, cfg.LockTTL, cfg.LockWait)
	d.Cache = auth.NewRedisUserCache(client, time.Minute)
	return client, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Dir, logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	log.Info("APP", "Starting check-in service initialization")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Warn("OTEL", fmt.Sprintf("Tracing disabled: %v", err))
	}

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := migrations.Migrate(ctx, bunDB, log); err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	if cfg.Database.Seed {
		if err := migrations.Seed(ctx, bunDB, time.Now().UTC()); err != nil {
			log.Fatal("SEED", err.Error())
		}
		log.Info("SEED", "Demo data ready")
	}

	d := deps{
		Config:    cfg,
		Logger:    log,
		DB:        bunDB,
		Clock:     clock.NewSystem(),
		Publisher: kafka.Nop{},
		Feed:      sse.NewCheckinEventEmitter(),
	}
	if err := setupAuth(ctx, &d); err != nil {
		log.Fatal("AUTH", err.Error())
	}
	redisClient, err := setupRedis(ctx, &d)
	if err != nil {
		log.Fatal("REDIS", err.Error())
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.TopicNames(cfg.Kafka.Topics), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
		defer producer.Close()
		d.Publisher = producer
		log.Info("KAFKA", fmt.Sprintf("Producer connected to %v", cfg.Kafka.Brokers))
	}

	svc := newServices(d)
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      telemetry.Wrap(newRouter(d, svc), cfg.Telemetry.ServiceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // the SSE feed keeps responses open
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP", fmt.Sprintf("Check-in service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.DeliveryReceipts, cfg.Kafka.GroupID, log)
		g.Go(func() error {
			defer consumer.Close()
			return consumer.ConsumeDeliveryReceipts(gctx, svc.Tickets.HandleDeliveryReceipt)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
		}
		if shutdownTracing != nil {
			_ = shutdownTracing(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("APP", err.Error())
		return
	}
	log.Info("APP", "Check-in service stopped")
}

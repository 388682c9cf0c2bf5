package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-rewards/internal/api/http"
	"github.com/spec-kit/ticket-rewards/internal/api/http/handlers"
	"github.com/spec-kit/ticket-rewards/internal/auth"
	"github.com/spec-kit/ticket-rewards/internal/config"
	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/events"
	"github.com/spec-kit/ticket-rewards/internal/lifecycle"
	"github.com/spec-kit/ticket-rewards/internal/notification"
	"github.com/spec-kit/ticket-rewards/internal/observability"
	"github.com/spec-kit/ticket-rewards/internal/persistence"
	"github.com/spec-kit/ticket-rewards/internal/points"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/repository/memory"
	"github.com/spec-kit/ticket-rewards/internal/service"
	"github.com/spec-kit/ticket-rewards/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	loc, err := cfg.App.Location()
	if err != nil {
		logger.Fatal("invalid timezone", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	var store repository.Store
	storeCheck := handlers.DependencyCheck{Name: "postgres", Ping: pg.Ping}
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewStore(pool)
	} else {
		mem := memory.NewStore()
		if cfg.App.SeedDemoData {
			logDemoTokens(logger, tokens, mem.SeedDemo())
		}
		store = mem
		storeCheck = handlers.DependencyCheck{Name: "store", Ping: func(context.Context) error { return nil }}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	queue := newQueue(cfg.Notification, redis, logger)
	dispatcher := events.NewInMemoryDispatcher(logger)
	machine := lifecycle.NewMachine(loc)

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Machine:    machine,
		Ledger:     points.NewLedger(nil),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{Store: store, Dispatcher: dispatcher})
	requestService := service.NewTicketRequestService(service.TicketRequestDependencies{
		Store:      store,
		Machine:    machine,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(dispatcher, queue, store, metrics, logger)

	rate, burst := cfg.Notification.ChannelRatePerSec, cfg.Notification.ChannelBurst
	sender := notification.NewSender(store, metrics, logger,
		notification.NewRateLimited(notification.NewEmailGateway(cfg.Notification.EmailFrom, logger), rate, burst),
		notification.NewRateLimited(notification.NewWhatsAppGateway(cfg.Notification.WhatsAppURL, logger), rate, burst),
	)
	notificationWorker := worker.NewNotificationWorker(queue, sender, cfg.Notification.Workers, metrics, logger)
	worker.StartNotificationWorker(ctx, notificationService, notificationWorker)

	checks := []handlers.DependencyCheck{storeCheck}
	if cfg.Notification.QueueDriver == config.QueueDriverRedis {
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Ping: redis.Ping})
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	ticketsHandler := handlers.NewTicketsHandler(ticketService, assignmentService, nil)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, checks...),
		Tickets:        ticketsHandler,
		TicketRequests: handlers.NewTicketRequestsHandler(requestService, nil),
		Points:         handlers.NewPointsHandler(service.NewPointsService(store)),
		Projects:       handlers.NewProjectsHandler(service.NewProjectService(store)),
		Notifications:  handlers.NewNotificationsHandler(service.NewInboxService(store, nil)),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users()),
	})

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	_ = queue.Close()
	notificationWorker.Wait()
}

func newQueue(cfg config.NotificationConfig, redis *persistence.Redis, logger *zap.Logger) notification.Queue {
	if cfg.QueueDriver == config.QueueDriverRedis {
		logger.Info("notification queue on redis", zap.String("key", cfg.RedisQueueKey))
		return notification.NewRedisQueue(redis.Client, cfg.RedisQueueKey)
	}
	return notification.NewMemoryQueue(cfg.BufferSize)
}

func logDemoTokens(logger *zap.Logger, tokens *auth.TokenManager, users []domain.User) {
	for _, u := range users {
		token, _, err := tokens.GenerateToken(u.ID, u.Role)
		if err != nil {
			logger.Warn("demo token", zap.Error(err))
			continue
		}
		logger.Info("demo user", zap.String("name", u.Name), zap.String("role", string(u.Role)), zap.String("token", token))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pocamarket/internal/config"
	"pocamarket/internal/domain/service/market"
	"pocamarket/internal/domain/service/user"
	"pocamarket/internal/infrastructure/memory"
	"pocamarket/internal/infrastructure/metrics"
	"pocamarket/internal/infrastructure/notifier"
	"pocamarket/internal/infrastructure/persistence"
	"pocamarket/internal/server"
	"pocamarket/internal/transport/bot"
	"pocamarket/internal/worker"
	"pocamarket/pkg/application/connectors"
	"pocamarket/pkg/application/modules"
	"pocamarket/pkg/contextx"
	"pocamarket/pkg/logx"
	"pocamarket/pkg/middlewarex"
)

// Store всё, что приложению нужно от хранилища.
type Store interface {
	market.Store
	market.CatalogStore
	user.Repository
}

func Run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx = contextx.WithLogger(ctx, log)

	// 1. Store
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// 2. Metrics
	settlementMetrics := metrics.NewSettlement(prometheus.DefaultRegisterer)
	taskMetrics := metrics.NewTasks(prometheus.DefaultRegisterer)

	// 3. Services
	catalog := market.NewCatalog(store).WithRecentPricesTTL(cfg.App.RecentPricesTTL)
	listeners := []market.SaleListener{catalog}

	g, ctx := errgroup.WithContext(ctx)

	// 4. Notifications
	var saleNotifier worker.Notifier = worker.LogNotifier{}

	if cfg.Bot.Enabled() {
		tgNotifier, err := notifier.NewTelegramBot(cfg.Bot.Token, cfg.Bot.ChatID)
		if err != nil {
			return fmt.Errorf("notifier.NewTelegramBot: %w", err)
		}
		saleNotifier = tgNotifier
	}

	if cfg.Redis.Enabled() {
		rds := &connectors.Redis{
			Username:           cfg.Redis.Username,
			Password:           cfg.Redis.Password,
			Address:            cfg.Redis.Address,
			DatabaseNumber:     cfg.Redis.DatabaseNumber,
			PoolSize:           cfg.Redis.PoolSize,
			MinIdleConnections: cfg.Redis.MinIdleConnections,
			MaxIdleConnections: cfg.Redis.MaxIdleConnections,
		}
		redisClient := rds.Client(ctx)
		defer rds.Close(ctx)

		// Клиент на общем соединении, закрывается вместе с rds.
		asynqClient := asynq.NewClientFromRedisClient(redisClient)

		listeners = append(listeners, worker.NewSaleEnqueuer(asynqClient))

		zapLogger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("zap.NewProduction: %w", err)
		}
		defer zapLogger.Sync() //nolint:errcheck

		saleSold := worker.NewSaleSoldHandler(saleNotifier).WithObserver(taskMetrics)

		modules.AsynqServer{
			Redis:       redisClient,
			Concurrency: cfg.Redis.WorkerConcurrency,
			Logger:      zapLogger.Sugar(),
		}.Run(ctx, g,
			modules.AsynqQueues{worker.QueueNotifications: 1},
			modules.AsynqHandler{Pattern: worker.TypeSaleSold, Handle: saleSold.ProcessTask},
		)
	} else {
		log.Warn("redis is not configured, sale notifications are disabled")
	}

	engine := market.NewEngine(store).
		WithMaxAttempts(cfg.App.SettleMaxAttempts).
		WithRetryDelay(cfg.App.SettleRetryDelay).
		WithMetrics(settlementMetrics).
		WithListeners(listeners...)

	users := user.NewService(store)

	// 5. HTTP
	srv := server.NewServer(
		server.NewSalesServer(catalog, engine),
		server.NewUsersServer(users),
		server.NewPhotoCardsServer(catalog),
	)

	modules.HTTPServer{
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}.Run(ctx, g, &http.Server{
		Addr:              cfg.HTTP.ListenAddress,
		Handler:           newHandler(srv, cfg.HTTP),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	})

	modules.ProbeServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.Probe.ListenAddress,
	}.Run(ctx, g)

	modules.MetricServer{
		ListenAddress: cfg.Metrics.ListenAddress,
	}.Run(ctx, g)

	// 6. Admin bot
	if cfg.Bot.Enabled() {
		adminBot, err := bot.New(cfg.Bot.Token, cfg.Bot.ChatID, catalog)
		if err != nil {
			return fmt.Errorf("bot.New: %w", err)
		}

		g.Go(func() error {
			if err := adminBot.Run(ctx); err != nil {
				return fmt.Errorf("adminBot.Run: %w", err)
			}
			return nil
		})
	}

	log.Info("application started",
		slog.String(logx.FieldAppName, cfg.App.Name),
		slog.String(logx.FieldAppVersion, cfg.App.Version),
		slog.String("store", string(cfg.App.Store)),
	)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("errgroup.Wait: %w", err)
	}

	return nil
}

func newStore(ctx context.Context, cfg config.Config) (Store, func(), error) {
	if cfg.App.Store == config.StoreMemory {
		logger(ctx).Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	db := pg.Client(ctx)

	if err := db.PingContext(ctx); err != nil {
		pg.Close(ctx)
		return nil, nil, fmt.Errorf("db.PingContext: %w", err)
	}

	return persistence.NewStore(db), func() { pg.Close(ctx) }, nil
}

func newHandler(srv server.Server, cfg config.HTTP) http.Handler {
	masker := logx.NewSensitiveDataMasker()

	router := chi.NewRouter()
	router.Use(
		middlewarex.TraceID,
		middlewarex.UserID,
		middlewarex.Logger,
		middlewarex.RequestLogging(masker, cfg.LogFieldMaxLen),
		middlewarex.ResponseLogging(masker, cfg.LogFieldMaxLen),
		middlewarex.Recovery,
	)

	srv.RegisterRoutes(router)

	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-Id", "X-Trace-Id"},
		ExposedHeaders: []string{"X-Trace-Id"},
	}).Handler(router)
}

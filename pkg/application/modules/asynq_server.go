package modules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AsynqQueues map[string]int

type AsynqHandler struct {
	Pattern string
	Handle  func(context.Context, *asynq.Task) error
}

// AsynqServer модуль фонового обработчика задач. Соединение с Redis
// переиспользуется из connectors.Redis.
type AsynqServer struct {
	Redis       redis.UniversalClient
	Concurrency int
	Logger      *zap.SugaredLogger
}

func (s AsynqServer) Run(
	ctx context.Context,
	g *errgroup.Group,
	queues AsynqQueues,
	handlers ...AsynqHandler,
) {
	g.Go(func() error {
		cfg := asynq.Config{
			BaseContext: func() context.Context { return ctx },
			Queues:      queues,
			Concurrency: s.Concurrency,
		}

		if s.Logger != nil {
			cfg.Logger = s.Logger
		}

		worker := asynq.NewServerFromRedisClient(s.Redis, cfg)

		mux := asynq.NewServeMux()

		for _, h := range handlers {
			mux.HandleFunc(h.Pattern, h.Handle)
		}

		if err := worker.Start(mux); err != nil {
			return fmt.Errorf("asynqServer.Start: %w", err)
		}

		logger(ctx).Info("asynq server started", slog.Int("handlers", len(handlers)))

		<-ctx.Done()

		worker.Shutdown()

		logger(ctx).Info("asynq server stopped")

		return nil
	})
}

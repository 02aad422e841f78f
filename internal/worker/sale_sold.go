// Package worker фоновые задачи рынка на asynq.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"pocamarket/internal/domain/entity"
	"pocamarket/pkg/logx"
)

const (
	TypeSaleSold = "sale:sold"

	QueueNotifications = "notifications"

	saleSoldMaxRetry = 5
	saleSoldTimeout  = 30 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// SaleSold полезная нагрузка задачи о проведённой продаже.
type SaleSold struct {
	ListingID int64     `json:"listingId"`
	CardID    int64     `json:"cardId"`
	SellerID  int64     `json:"sellerId"`
	BuyerID   int64     `json:"buyerId"`
	Price     int64     `json:"price"`
	Fee       int64     `json:"fee"`
	SoldAt    time.Time `json:"soldAt"`
}

func NewSaleSold(l entity.Listing) SaleSold {
	s := SaleSold{
		ListingID: l.ID,
		CardID:    l.CardID,
		SellerID:  l.SellerID,
		Price:     l.Price,
		Fee:       l.Fee,
	}
	if l.BuyerID != nil {
		s.BuyerID = *l.BuyerID
	}
	if l.SoldAt != nil {
		s.SoldAt = *l.SoldAt
	}
	return s
}

func (s SaleSold) Total() int64 {
	return s.Price + s.Fee
}

func NewSaleSoldTask(l entity.Listing) (*asynq.Task, error) {
	payload, err := json.Marshal(NewSaleSold(l))
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	return asynq.NewTask(
		TypeSaleSold,
		payload,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(saleSoldMaxRetry),
		asynq.Timeout(saleSoldTimeout),
	), nil
}

type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SaleEnqueuer ставит уведомление о продаже в очередь после фиксации расчёта.
// Ошибка постановки не отменяет продажу, только логируется.
type SaleEnqueuer struct {
	client TaskEnqueuer
}

func NewSaleEnqueuer(client TaskEnqueuer) *SaleEnqueuer {
	return &SaleEnqueuer{client: client}
}

func (e *SaleEnqueuer) OnSale(ctx context.Context, sale entity.Listing) {
	task, err := NewSaleSoldTask(sale)
	if err != nil {
		logger(ctx).Error("worker.NewSaleSoldTask", logx.Error(err))
		return
	}

	info, err := e.client.EnqueueContext(context.WithoutCancel(ctx), task)
	if err != nil {
		logger(ctx).Error("client.EnqueueContext",
			slog.Int64(logx.FieldListingID, sale.ID),
			logx.Error(err),
		)
		return
	}

	logger(ctx).Debug("sale task enqueued",
		slog.Int64(logx.FieldListingID, sale.ID),
		slog.String(logx.FieldTaskID, info.ID),
	)
}

type Notifier interface {
	NotifySale(ctx context.Context, sale SaleSold) error
}

type TaskObserver interface {
	ObserveTask(taskType string, err error)
}

// SaleSoldHandler обработчик задачи TypeSaleSold.
type SaleSoldHandler struct {
	notifier Notifier
	observer TaskObserver
}

func NewSaleSoldHandler(notifier Notifier) *SaleSoldHandler {
	return &SaleSoldHandler{notifier: notifier}
}

func (h *SaleSoldHandler) WithObserver(o TaskObserver) *SaleSoldHandler {
	h.observer = o
	return h
}

func (h *SaleSoldHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	err := h.process(ctx, task)

	if h.observer != nil {
		h.observer.ObserveTask(task.Type(), err)
	}

	return err
}

func (h *SaleSoldHandler) process(ctx context.Context, task *asynq.Task) error {
	var sale SaleSold
	if err := json.Unmarshal(task.Payload(), &sale); err != nil {
		return fmt.Errorf("json.Unmarshal: %v: %w", err, asynq.SkipRetry)
	}

	if sale.ListingID == 0 {
		return fmt.Errorf("empty listing id: %w", asynq.SkipRetry)
	}

	if err := h.notifier.NotifySale(ctx, sale); err != nil {
		return fmt.Errorf("notifier.NotifySale: %w", err)
	}

	logger(ctx).Info("sale notification sent",
		slog.Int64(logx.FieldListingID, sale.ListingID),
		slog.Int64(logx.FieldCardID, sale.CardID),
	)

	return nil
}

// LogNotifier пишет продажи в лог, когда Telegram не настроен.
type LogNotifier struct{}

func (LogNotifier) NotifySale(ctx context.Context, sale SaleSold) error {
	logger(ctx).Info("sale sold",
		slog.Int64(logx.FieldListingID, sale.ListingID),
		slog.Int64(logx.FieldSellerID, sale.SellerID),
		slog.Int64(logx.FieldBuyerID, sale.BuyerID),
		slog.Int64("total", sale.Total()),
	)
	return nil
}

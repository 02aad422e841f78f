package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/pkg/errcodes"
	"pocamarket/pkg/logx"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 10 * time.Millisecond
)

// Engine проводит покупку: проверки, смену состояния продажи и перевод средств
// в одной транзакции.
type Engine struct {
	store       Store
	now         func() time.Time
	maxAttempts int
	retryDelay  time.Duration
	metrics     Metrics
	listeners   []SaleListener
}

func NewEngine(store Store) *Engine {
	return &Engine{
		store:       store,
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// WithMaxAttempts сколько раз пытаться провести транзакцию при конфликте записи.
func (e *Engine) WithMaxAttempts(n int) *Engine {
	if n > 0 {
		e.maxAttempts = n
	}
	return e
}

func (e *Engine) WithRetryDelay(d time.Duration) *Engine {
	e.retryDelay = d
	return e
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) WithMetrics(m Metrics) *Engine {
	e.metrics = m
	return e
}

// WithListeners слушатели вызываются после фиксации транзакции.
func (e *Engine) WithListeners(listeners ...SaleListener) *Engine {
	e.listeners = append(e.listeners, listeners...)
	return e
}

// Settle покупка продажи listingID пользователем buyerID.
//
// Отказы по бизнес-правилам возвращаются как *SettleError. Конфликты записи
// повторяются до maxAttempts раз, после чего возвращается KindRetryExhausted.
func (e *Engine) Settle(ctx context.Context, listingID, buyerID int64) (entity.Listing, error) {
	start := time.Now()

	log := logger(ctx).With(
		slog.Int64(logx.FieldListingID, listingID),
		slog.Int64(logx.FieldBuyerID, buyerID),
	)

	var (
		sold    entity.Listing
		err     error
		attempt int
	)

	for attempt = 1; attempt <= e.maxAttempts; attempt++ {
		sold, err = e.settleOnce(ctx, listingID, buyerID)
		if !errors.Is(err, domain.ErrTxConflict) {
			break
		}

		if attempt == e.maxAttempts {
			log.Warn("settlement conflict, attempts exhausted", slog.Int(logx.FieldAttempt, attempt), logx.Error(err))
			err = &SettleError{Kind: KindRetryExhausted, ListingID: listingID, BuyerID: buyerID}
			break
		}

		log.Warn("settlement conflict, retrying", slog.Int(logx.FieldAttempt, attempt), logx.Error(err))

		if werr := e.wait(ctx, attempt); werr != nil {
			err = fmt.Errorf("settle listing %d: %w", listingID, werr)
			break
		}
	}

	attempt = min(attempt, e.maxAttempts)
	e.observe(outcome(err), attempt, time.Since(start))

	if err != nil {
		if se, ok := AsSettleError(err); ok {
			log.Info("settlement rejected", slog.String(logx.FieldOutcome, string(se.Kind)))
			return entity.Listing{}, err
		}

		log.Error("settlement failed", logx.Error(err))

		return entity.Listing{}, err
	}

	log.Info("settlement completed",
		slog.Int64(logx.FieldSellerID, sold.SellerID),
		slog.Int64(logx.FieldCardID, sold.CardID),
		slog.Int(logx.FieldAttempt, attempt),
	)

	for _, l := range e.listeners {
		l.OnSale(ctx, sold)
	}

	return sold, nil
}

func (e *Engine) settleOnce(ctx context.Context, listingID, buyerID int64) (entity.Listing, error) {
	var sold entity.Listing

	err := e.store.WithinTx(ctx, func(tx Tx) error {
		// 1. Продажа существует
		listing, err := tx.GetListingForUpdate(ctx, listingID)
		if err != nil {
			if domain.HasCode(err, errcodes.ListingNotFound) {
				return &SettleError{Kind: KindNotFound, Subject: SubjectListing, ListingID: listingID, BuyerID: buyerID}
			}
			return fmt.Errorf("tx.GetListingForUpdate: %w", err)
		}

		// 2. Продажа активна
		if !listing.IsActive() {
			return &SettleError{Kind: KindInvalidState, ListingID: listingID, BuyerID: buyerID}
		}

		// 3-4. Продажа имеет минимальную цену по карточке
		best, err := Resolve(ctx, tx, listing.CardID)
		if err != nil {
			if errors.Is(err, ErrNoActiveListing) {
				return &SettleError{Kind: KindResolutionFailed, ListingID: listingID, BuyerID: buyerID}
			}
			return fmt.Errorf("Resolve: %w", err)
		}

		if best.ID != listingID {
			return &SettleError{
				Kind:              KindNotMinimumPrice,
				ListingID:         listingID,
				BuyerID:           buyerID,
				MinPriceListingID: best.ID,
			}
		}

		// 5. Пользователи блокируются по возрастанию ID, чтобы не было взаимных блокировок
		users, err := lockParties(ctx, tx, buyerID, listing.SellerID)
		if err != nil {
			if domain.HasCode(err, errcodes.UserNotFound) {
				if _, buyerFound := users[buyerID]; !buyerFound {
					return &SettleError{Kind: KindNotFound, Subject: SubjectBuyer, ListingID: listingID, BuyerID: buyerID}
				}
			}
			return err
		}

		buyer := users[buyerID]

		// 6. Покупатель не продавец
		if buyer.ID == listing.SellerID {
			return &SettleError{Kind: KindSameParty, ListingID: listingID, BuyerID: buyerID}
		}

		seller := users[listing.SellerID]

		// 7. Баланс проверяется внутри транзакции вместе со списанием
		total := listing.TotalPrice()
		if buyer.Cash < total {
			return &SettleError{Kind: KindInsufficientFunds, ListingID: listingID, BuyerID: buyerID}
		}

		if err := listing.MarkSold(buyerID, e.now()); err != nil {
			return fmt.Errorf("listing.MarkSold: %w", err)
		}

		// Комиссия никому не зачисляется: продавец получает только price.
		buyer.Cash -= total
		seller.Cash += listing.Price

		if err := tx.SaveListing(ctx, &listing); err != nil {
			return fmt.Errorf("tx.SaveListing: %w", err)
		}
		if err := tx.SaveUser(ctx, buyer); err != nil {
			return fmt.Errorf("tx.SaveUser(buyer): %w", err)
		}
		if err := tx.SaveUser(ctx, seller); err != nil {
			return fmt.Errorf("tx.SaveUser(seller): %w", err)
		}

		sold = listing

		return nil
	})
	if err != nil {
		return entity.Listing{}, err
	}

	return sold, nil
}

// lockParties блокирует покупателя и продавца в порядке возрастания ID.
// Возвращает уже заблокированных пользователей даже при ошибке.
func lockParties(ctx context.Context, tx Tx, buyerID, sellerID int64) (map[int64]entity.User, error) {
	ids := []int64{buyerID, sellerID}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	users := make(map[int64]entity.User, len(ids))

	for _, id := range ids {
		u, err := tx.GetUserForUpdate(ctx, id)
		if err != nil {
			if id != buyerID && domain.HasCode(err, errcodes.UserNotFound) {
				return users, domain.WrapError(err, errcodes.InternalServerError, "seller of listing is missing")
			}
			return users, fmt.Errorf("tx.GetUserForUpdate: %w", err)
		}
		users[id] = u
	}

	return users, nil
}

func (e *Engine) wait(ctx context.Context, attempt int) error {
	if e.retryDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(e.retryDelay * time.Duration(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) observe(outcome string, attempts int, d time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveSettlement(outcome, attempts, d.Seconds())
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if se, ok := AsSettleError(err); ok {
		return string(se.Kind)
	}
	return "error"
}

// Package persistence хранилище рынка в PostgreSQL.
//
// Расчёт идёт в транзакции READ COMMITTED: продажа блокируется FOR UPDATE,
// затем карточка (чтобы набор активных продаж не менялся до фиксации),
// затем пользователи по возрастанию ID. Ошибки сериализации и взаимные
// блокировки возвращаются как domain.ErrTxConflict.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/market"
	"pocamarket/pkg/errcodes"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

var (
	_ market.Store        = (*Store)(nil)
	_ market.CatalogStore = (*Store)(nil)
)

// WithinTx выполняет fn в транзакции расчёта.
func (s *Store) WithinTx(ctx context.Context, fn func(tx market.Tx) error) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

// withTx выполняет функцию в транзакции.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return domain.WrapError(
				fmt.Errorf("%w; rollback: %v", err, rbErr),
				errcodes.InternalServerError,
				"transaction failed",
			)
		}
		return conflictOr(err)
	}

	if err := tx.Commit(); err != nil {
		if isConflict(err) {
			return fmt.Errorf("commit: %w", domain.ErrTxConflict)
		}
		return domain.WrapError(err, errcodes.InternalServerError, "failed to commit")
	}

	return nil
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// conflictOr переводит ошибку сериализации в domain.ErrTxConflict.
func conflictOr(err error) error {
	if isConflict(err) {
		return fmt.Errorf("%w: %v", domain.ErrTxConflict, err)
	}
	return err
}

func (s *Store) GetListing(ctx context.Context, id int64) (entity.Listing, error) {
	return getListing(ctx, s.db, id, "")
}

func (s *Store) ListActiveByCard(ctx context.Context, cardID int64) ([]entity.Listing, error) {
	return listActiveByCard(ctx, s.db, cardID)
}

func (s *Store) ListActive(ctx context.Context) ([]entity.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM sales WHERE state = $1 ORDER BY id`

	var schemas []listingSchema
	if err := s.db.SelectContext(ctx, &schemas, query, int16(entity.ListingActive)); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list active listings")
	}

	return toListings(schemas), nil
}

func (s *Store) RecentSoldPrices(ctx context.Context, cardID int64, limit int) ([]int64, error) {
	query := `
		SELECT price
		FROM sales
		WHERE photocard_id = $1 AND state = $2
		ORDER BY sold_at DESC, id DESC
		LIMIT $3`

	prices := make([]int64, 0, limit)
	if err := s.db.SelectContext(ctx, &prices, query, cardID, int16(entity.ListingSold), limit); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get recent prices")
	}

	return prices, nil
}

// CreateListing сохраняет новую продажу. Карточка блокируется, чтобы
// вставка не прошла мимо идущего расчёта по той же карточке.
func (s *Store) CreateListing(ctx context.Context, listing *entity.Listing) error {
	if err := listing.Validate(); err != nil {
		return fmt.Errorf("listing.Validate: %w", err)
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockPhotoCard(ctx, tx, listing.CardID); err != nil {
			return err
		}

		var sellerExists bool
		if err := tx.GetContext(ctx, &sellerExists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, listing.SellerID); err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to check seller")
		}
		if !sellerExists {
			return domain.NewError(errcodes.UserNotFound, "user not found")
		}

		query := `
			INSERT INTO sales (photocard_id, seller_id, buyer_id, price, fee, state, created_at, updated_at, sold_at)
			VALUES (:photocard_id, :seller_id, :buyer_id, :price, :fee, :state, :created_at, :updated_at, :sold_at)
			RETURNING id`

		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to prepare listing insert")
		}
		defer stmt.Close()

		if err := stmt.GetContext(ctx, &listing.ID, fromListing(listing)); err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to create listing")
		}

		return nil
	})
}

func lockPhotoCard(ctx context.Context, q sqlx.QueryerContext, cardID int64) error {
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, `SELECT id FROM photocards WHERE id = $1 FOR UPDATE`, cardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewError(errcodes.PhotoCardNotFound, "photocard not found")
		}
		return domain.WrapError(err, errcodes.InternalServerError, "failed to lock photocard")
	}
	return nil
}

func getListing(ctx context.Context, q sqlx.QueryerContext, id int64, suffix string) (entity.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM sales WHERE id = $1 ` + suffix

	var schema listingSchema
	if err := sqlx.GetContext(ctx, q, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Listing{}, domain.NewError(errcodes.ListingNotFound, "listing not found")
		}
		return entity.Listing{}, domain.WrapError(conflictOr(err), errcodes.InternalServerError, "failed to get listing")
	}

	return schema.toDomain(), nil
}

func listActiveByCard(ctx context.Context, q sqlx.QueryerContext, cardID int64) ([]entity.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM sales WHERE photocard_id = $1 AND state = $2 ORDER BY id`

	var schemas []listingSchema
	if err := sqlx.SelectContext(ctx, q, &schemas, query, cardID, int16(entity.ListingActive)); err != nil {
		return nil, domain.WrapError(conflictOr(err), errcodes.InternalServerError, "failed to list listings of card")
	}

	return toListings(schemas), nil
}

func toListings(schemas []listingSchema) []entity.Listing {
	result := make([]entity.Listing, 0, len(schemas))
	for _, s := range schemas {
		result = append(result, s.toDomain())
	}
	return result
}

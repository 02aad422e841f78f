package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/pkg/errcodes"
)

// pgTx транзакция расчёта поверх *sqlx.Tx.
type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) GetListing(ctx context.Context, id int64) (entity.Listing, error) {
	return getListing(ctx, t.tx, id, "")
}

func (t *pgTx) GetListingForUpdate(ctx context.Context, id int64) (entity.Listing, error) {
	return getListing(ctx, t.tx, id, "FOR UPDATE")
}

// ListActiveByCard блокирует карточку до конца транзакции: новые продажи по ней
// ждут фиксации, и минимальная цена не меняется между проверкой и записью.
func (t *pgTx) ListActiveByCard(ctx context.Context, cardID int64) ([]entity.Listing, error) {
	if err := lockPhotoCard(ctx, t.tx, cardID); err != nil {
		return nil, conflictOr(err)
	}

	return listActiveByCard(ctx, t.tx, cardID)
}

func (t *pgTx) GetUserForUpdate(ctx context.Context, id int64) (entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	var schema userSchema
	if err := t.tx.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.User{}, domain.NewError(errcodes.UserNotFound, "user not found")
		}
		return entity.User{}, domain.WrapError(conflictOr(err), errcodes.InternalServerError, "failed to lock user")
	}

	return schema.toDomain(), nil
}

func (t *pgTx) SaveListing(ctx context.Context, listing *entity.Listing) error {
	if err := listing.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE sales SET
			seller_id = :seller_id,
			buyer_id = :buyer_id,
			price = :price,
			fee = :fee,
			state = :state,
			updated_at = :updated_at,
			sold_at = :sold_at
		WHERE id = :id`

	res, err := t.tx.NamedExecContext(ctx, query, fromListing(listing))
	if err != nil {
		return domain.WrapError(conflictOr(err), errcodes.InternalServerError, "failed to save listing")
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.NewError(errcodes.ListingNotFound, "listing not found")
	}

	return nil
}

func (t *pgTx) SaveUser(ctx context.Context, user entity.User) error {
	if user.Cash < 0 {
		return domain.WrapError(errors.New("negative cash"), errcodes.InvariantViolation, "invariant violation")
	}

	query := `UPDATE users SET cash = :cash WHERE id = :id`

	res, err := t.tx.NamedExecContext(ctx, query, fromUser(&user))
	if err != nil {
		return domain.WrapError(conflictOr(err), errcodes.InternalServerError, "failed to save user")
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.NewError(errcodes.UserNotFound, "user not found")
	}

	return nil
}

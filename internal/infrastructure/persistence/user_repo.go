package persistence

import (
	"context"
	"database/sql"
	"errors"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/pkg/errcodes"
)

func (s *Store) GetUser(ctx context.Context, id int64) (entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var schema userSchema
	if err := s.db.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.User{}, domain.NewError(errcodes.UserNotFound, "user not found")
		}
		return entity.User{}, domain.WrapError(err, errcodes.InternalServerError, "failed to get user")
	}

	return schema.toDomain(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	var schemas []userSchema
	if err := s.db.SelectContext(ctx, &schemas, query); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list users")
	}

	users := make([]entity.User, 0, len(schemas))
	for _, u := range schemas {
		users = append(users, u.toDomain())
	}

	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, gender, birth, cash)
		VALUES (:name, :email, :password_hash, :gender, :birth, :cash)
		RETURNING id`

	stmt, err := s.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to prepare user insert")
	}
	defer stmt.Close()

	if err := stmt.GetContext(ctx, &user.ID, fromUser(user)); err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(errcodes.EmailAlreadyInUse, "email already in use")
		}
		return domain.WrapError(err, errcodes.InternalServerError, "failed to create user")
	}

	return nil
}

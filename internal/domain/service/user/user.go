package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/pkg/contextx"
	"pocamarket/pkg/errcodes"
	"pocamarket/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type Repository interface {
	GetUser(ctx context.Context, id int64) (entity.User, error)
	ListUsers(ctx context.Context) ([]entity.User, error)
	CreateUser(ctx context.Context, user *entity.User) error
}

// NewUser данные регистрации. Пароль хранится только в виде хэша.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Gender   *string
	Birth    *time.Time
}

type Service struct {
	repo        Repository
	hashCost    int
	defaultCash int64
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:        repo,
		hashCost:    bcrypt.DefaultCost,
		defaultCash: entity.DefaultCash,
	}
}

// WithHashCost стоимость bcrypt, в тестах удобно bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.hashCost = cost
	return s
}

func (s *Service) Create(ctx context.Context, in NewUser) (entity.User, error) {
	if in.Password == "" {
		return entity.User{}, domain.NewError(errcodes.ValidationError, "password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return entity.User{}, domain.WrapError(err, errcodes.InternalServerError, "failed to hash password")
	}

	u := entity.User{
		Name:         in.Name,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		Gender:       in.Gender,
		Birth:        in.Birth,
		Cash:         s.defaultCash,
	}

	if err := s.repo.CreateUser(ctx, &u); err != nil {
		return entity.User{}, fmt.Errorf("repo.CreateUser: %w", err)
	}

	logger(ctx).Info("user created", slog.Int64(logx.FieldUserID, u.ID))

	return u, nil
}

func (s *Service) List(ctx context.Context) ([]entity.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.ListUsers: %w", err)
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id int64) (entity.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return entity.User{}, fmt.Errorf("repo.GetUser: %w", err)
	}
	return u, nil
}

// CheckPassword сверяет пароль с сохранённым хэшем.
func CheckPassword(u entity.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

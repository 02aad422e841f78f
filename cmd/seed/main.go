// Заполняет базу тестовыми данными:
//
//	go run ./cmd/seed
//
// Пять групп, десять артистов, пять пользователей с паролем 1234, десять
// карточек и тридцать продаж со случайной ценой кратной 500.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/lo"

	"pocamarket/internal/config"
	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/market"
	"pocamarket/internal/domain/service/user"
	"pocamarket/internal/infrastructure/persistence"
	"pocamarket/pkg/application/connectors"
	"pocamarket/pkg/contextx"
	"pocamarket/pkg/logx"
)

const (
	groupsCount  = 5
	artistsCount = 10
	usersCount   = 5
	cardsCount   = 10
	salesCount   = 30

	maxPrice  = 30000
	priceStep = 500
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logx.NewLogger(os.Stdout, slog.LevelInfo, false)
	ctx = contextx.WithLogger(ctx, log)

	if err := run(ctx, log); err != nil {
		log.Error("seed failed", logx.Error(err))
		os.Exit(1) //nolint:gocritic
	}

	log.Info("seed finished")
}

func run(ctx context.Context, log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	db := pg.Client(ctx)
	defer pg.Close(ctx)

	store := persistence.NewStore(db)

	groups := make([]entity.Group, 0, groupsCount)
	for i := range groupsCount {
		g := entity.Group{Name: fmt.Sprintf("group_%d", i)}
		if err := store.CreateGroup(ctx, &g); err != nil {
			return fmt.Errorf("store.CreateGroup: %w", err)
		}
		groups = append(groups, g)
	}

	artists := make([]entity.Artist, 0, artistsCount)
	for i := range artistsCount {
		group := lo.Sample(groups)
		a := entity.Artist{Name: fmt.Sprintf("artist_%d", i), Group: &group}
		if err := store.CreateArtist(ctx, &a); err != nil {
			return fmt.Errorf("store.CreateArtist: %w", err)
		}
		artists = append(artists, a)
	}

	users := user.NewService(store)
	sellers := make([]entity.User, 0, usersCount)
	for i := range usersCount {
		u, err := users.Create(ctx, user.NewUser{
			Name:     fmt.Sprintf("user_%d", i),
			Email:    fmt.Sprintf("test%d@test.com", i),
			Password: "1234",
		})
		if err != nil {
			return fmt.Errorf("users.Create: %w", err)
		}
		sellers = append(sellers, u)
	}

	cards := make([]entity.PhotoCard, 0, cardsCount)
	for i := range cardsCount {
		c := entity.PhotoCard{
			Title:   fmt.Sprintf("photocard_ver%d", i),
			Artists: []entity.Artist{lo.Sample(artists)},
		}
		if err := store.CreatePhotoCard(ctx, &c); err != nil {
			return fmt.Errorf("store.CreatePhotoCard: %w", err)
		}
		cards = append(cards, c)
	}

	catalog := market.NewCatalog(store)
	for range salesCount {
		price := int64(rand.IntN(maxPrice/priceStep)) * priceStep //nolint:gosec

		if _, err := catalog.CreateListing(ctx, lo.Sample(cards).ID, lo.Sample(sellers).ID, price); err != nil {
			return fmt.Errorf("catalog.CreateListing: %w", err)
		}
	}

	log.Info("seeded",
		slog.Int("groups", len(groups)),
		slog.Int("artists", len(artists)),
		slog.Int("users", len(sellers)),
		slog.Int("photocards", len(cards)),
		slog.Int("sales", salesCount),
	)

	return nil
}

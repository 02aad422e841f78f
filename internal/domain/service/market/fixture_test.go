package market_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pocamarket/internal/domain/entity"
	"pocamarket/internal/infrastructure/memory"
)

type fixture struct {
	store  *memory.Store
	card   entity.PhotoCard
	seller entity.User
	buyer  entity.User
	base   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	rq := require.New(t)
	ctx := context.Background()
	store := memory.NewStore()

	group := entity.Group{Name: "group_1"}
	rq.NoError(store.CreateGroup(ctx, &group))

	artist := entity.Artist{Name: "artist_1", Group: &group}
	rq.NoError(store.CreateArtist(ctx, &artist))

	card := entity.PhotoCard{Title: "photocard_ver1", Artists: []entity.Artist{artist}}
	rq.NoError(store.CreatePhotoCard(ctx, &card))

	seller := entity.User{Name: "user_1", Email: "test1@test.com", Cash: 10000}
	rq.NoError(store.CreateUser(ctx, &seller))

	buyer := entity.User{Name: "user_2", Email: "test2@test.com", Cash: 10000}
	rq.NoError(store.CreateUser(ctx, &buyer))

	return &fixture{
		store:  store,
		card:   card,
		seller: seller,
		buyer:  buyer,
		base:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) listing(t *testing.T, cardID, sellerID, price int64, updatedAt time.Time) entity.Listing {
	t.Helper()

	l, err := entity.NewListing(cardID, sellerID, price, updatedAt)
	require.NoError(t, err)
	require.NoError(t, f.store.CreateListing(context.Background(), &l))

	return l
}

func (f *fixture) user(t *testing.T, name string, cash int64) entity.User {
	t.Helper()

	u := entity.User{Name: name, Email: name + "@test.com", Cash: cash}
	require.NoError(t, f.store.CreateUser(context.Background(), &u))

	return u
}

func (f *fixture) cash(t *testing.T, userID int64) int64 {
	t.Helper()

	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)

	return u.Cash
}

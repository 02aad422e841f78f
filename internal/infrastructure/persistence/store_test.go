package persistence_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/market"
	"pocamarket/internal/infrastructure/persistence"
	"pocamarket/pkg/dbtest"
	"pocamarket/pkg/errcodes"
)

// newStore поднимает схему в базе из PG_TEST_DSN. Без неё тесты пропускаются.
func newStore(t *testing.T) *persistence.Store {
	t.Helper()

	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN is not set")
	}

	rq := require.New(t)

	db, err := sqlx.Connect("pgx", dsn)
	rq.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	rq.NoError(dbtest.MigrateFromFile(db, "../../../migrations/001_init.sql"))

	_, err = db.Exec(`TRUNCATE sales, photocard_artists, photocards, artists, groups, users RESTART IDENTITY CASCADE`)
	rq.NoError(err)

	return persistence.NewStore(db)
}

type pgFixture struct {
	store  *persistence.Store
	card   entity.PhotoCard
	seller entity.User
	buyer  entity.User
	base   time.Time
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()

	rq := require.New(t)
	ctx := context.Background()
	s := newStore(t)

	group := entity.Group{Name: "group_1"}
	rq.NoError(s.CreateGroup(ctx, &group))

	artist := entity.Artist{Name: "artist_1", Group: &group}
	rq.NoError(s.CreateArtist(ctx, &artist))

	card := entity.PhotoCard{Title: "photocard_ver1", Artists: []entity.Artist{artist}}
	rq.NoError(s.CreatePhotoCard(ctx, &card))

	seller := entity.User{Name: "user_1", Email: "test1@test.com", Cash: entity.DefaultCash}
	rq.NoError(s.CreateUser(ctx, &seller))

	buyer := entity.User{Name: "user_2", Email: "test2@test.com", Cash: entity.DefaultCash}
	rq.NoError(s.CreateUser(ctx, &buyer))

	return &pgFixture{
		store:  s,
		card:   card,
		seller: seller,
		buyer:  buyer,
		base:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *pgFixture) listing(t *testing.T, price int64) entity.Listing {
	t.Helper()

	l, err := entity.NewListing(f.card.ID, f.seller.ID, price, f.base)
	require.NoError(t, err)
	require.NoError(t, f.store.CreateListing(context.Background(), &l))

	return l
}

func (f *pgFixture) cash(t *testing.T, id int64) int64 {
	t.Helper()

	u, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)

	return u.Cash
}

func TestStoreCatalog(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newPGFixture(t)

	card, err := f.store.GetPhotoCard(ctx, f.card.ID)
	rq.NoError(err)
	rq.Equal("photocard_ver1", card.Title)
	rq.Len(card.Artists, 1)
	rq.Equal("group_1", card.Artists[0].Group.Name)

	_, err = f.store.GetPhotoCard(ctx, 100)
	rq.True(domain.HasCode(err, errcodes.PhotoCardNotFound))

	cards, err := f.store.GetPhotoCards(ctx, []int64{f.card.ID, 100})
	rq.NoError(err)
	rq.Len(cards, 1)

	err = f.store.CreateUser(ctx, &entity.User{Name: "dup", Email: "TEST1@test.com"})
	rq.True(domain.HasCode(err, errcodes.EmailAlreadyInUse))

	users, err := f.store.ListUsers(ctx)
	rq.NoError(err)
	rq.Len(users, 2)
}

func TestStoreListings(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newPGFixture(t)

	l := f.listing(t, 2000)
	rq.NotZero(l.ID)

	got, err := f.store.GetListing(ctx, l.ID)
	rq.NoError(err)
	rq.Equal(l.Price, got.Price)
	rq.Equal(l.Fee, got.Fee)
	rq.Equal(entity.ListingActive, got.State)
	rq.True(l.UpdatedAt.Equal(got.UpdatedAt))

	_, err = f.store.GetListing(ctx, 100)
	rq.True(domain.HasCode(err, errcodes.ListingNotFound))

	orphan, err := entity.NewListing(100, f.seller.ID, 100, f.base)
	rq.NoError(err)
	rq.True(domain.HasCode(f.store.CreateListing(ctx, &orphan), errcodes.PhotoCardNotFound))

	active, err := f.store.ListActive(ctx)
	rq.NoError(err)
	rq.Len(active, 1)
}

func TestStoreSettle(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newPGFixture(t)

	expensive := f.listing(t, 2000)
	cheap := f.listing(t, 1500)

	engine := market.NewEngine(f.store).WithClock(func() time.Time { return f.base.Add(time.Hour) })

	_, err := engine.Settle(ctx, expensive.ID, f.buyer.ID)
	se, ok := market.AsSettleError(err)
	rq.True(ok, err)
	rq.Equal(market.KindNotMinimumPrice, se.Kind)
	rq.Equal(cheap.ID, se.MinPriceListingID)

	sold, err := engine.Settle(ctx, cheap.ID, f.buyer.ID)
	rq.NoError(err)
	rq.Equal(entity.ListingSold, sold.State)

	rq.Equal(int64(10000-1800), f.cash(t, f.buyer.ID))
	rq.Equal(int64(10000+1500), f.cash(t, f.seller.ID))

	prices, err := f.store.RecentSoldPrices(ctx, f.card.ID, 5)
	rq.NoError(err)
	rq.Equal([]int64{1500}, prices)

	_, err = engine.Settle(ctx, cheap.ID, f.buyer.ID)
	rq.True(market.IsKind(err, market.KindInvalidState), err)
}

func TestStoreSettleConcurrentBuyers(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newPGFixture(t)

	const buyers = 8

	listing := f.listing(t, 2000)

	ids := make([]int64, buyers)
	for i := range ids {
		u := entity.User{Name: "b", Email: string(rune('a'+i)) + "@test.com", Cash: entity.DefaultCash}
		rq.NoError(f.store.CreateUser(ctx, &u))
		ids[i] = u.ID
	}

	engine := market.NewEngine(f.store).WithMaxAttempts(buyers)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)

	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.Settle(ctx, listing.ID, id); err == nil {
				successes.Add(1)
			}
		}()
	}

	wg.Wait()

	rq.Equal(int32(1), successes.Load())
	rq.Equal(int64(10000+2000), f.cash(t, f.seller.ID))

	var total int64
	for _, id := range ids {
		total += f.cash(t, id)
	}
	rq.Equal(int64(buyers*10000-2400), total)
}

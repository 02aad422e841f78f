package market_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/market"
	"pocamarket/pkg/tests"
)

func TestMinPrice(t *testing.T) {
	rq := require.New(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	buyer := int64(99)

	active := func(id, price int64, updated time.Duration) entity.Listing {
		return entity.Listing{ID: id, CardID: 1, Price: price, Fee: entity.FeeFor(price), State: entity.ListingActive, UpdatedAt: base.Add(updated)}
	}

	sold := active(10, 1, 0)
	sold.State, sold.BuyerID = entity.ListingSold, &buyer

	testCases := []struct {
		name     string
		listings []entity.Listing
		wantID   int64
		found    bool
	}{
		{
			name: "Empty",
		},
		{
			name:     "Cheapest wins",
			listings: []entity.Listing{active(1, 2000, 0), active(2, 1500, 0), active(3, 1800, time.Hour)},
			wantID:   2,
			found:    true,
		},
		{
			name:     "Equal price, most recently touched wins",
			listings: []entity.Listing{active(1, 1500, time.Hour), active(2, 1500, 2 * time.Hour), active(3, 1500, 0)},
			wantID:   2,
			found:    true,
		},
		{
			name:     "Full tie falls back to higher id",
			listings: []entity.Listing{active(4, 1500, 0), active(7, 1500, 0), active(5, 1500, 0)},
			wantID:   7,
			found:    true,
		},
		{
			name:     "Sold listings are ignored",
			listings: []entity.Listing{sold, active(2, 3000, 0)},
			wantID:   2,
			found:    true,
		},
		{
			name:     "Only sold",
			listings: []entity.Listing{sold},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			got, ok := market.MinPrice(tc.listings)
			rq.Equal(tc.found, ok)
			if tc.found {
				rq.Equal(tc.wantID, got.ID)
			}
		})
	}
}

func TestMinPriceIsOrderIndependent(t *testing.T) {
	rq := require.New(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	listings := []entity.Listing{
		{ID: 1, Price: 1500, State: entity.ListingActive, UpdatedAt: base},
		{ID: 2, Price: 1500, State: entity.ListingActive, UpdatedAt: base.Add(time.Minute)},
		{ID: 3, Price: 1400, State: entity.ListingActive, UpdatedAt: base.Add(-time.Hour)},
		{ID: 4, Price: 1400, State: entity.ListingActive, UpdatedAt: base.Add(-time.Hour)},
	}

	want, ok := market.MinPrice(listings)
	rq.True(ok)
	rq.Equal(int64(4), want.ID)

	reversed := []entity.Listing{listings[3], listings[2], listings[1], listings[0]}
	got, ok := market.MinPrice(reversed)
	rq.True(ok)
	rq.Equal(want.ID, got.ID)

	random := tests.NewRandomizer()

	for range 50 {
		shuffled := slices.Clone(listings)
		random.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, ok := market.MinPrice(shuffled)
		rq.True(ok)
		rq.Equal(want.ID, got.ID)
	}
}

func TestMinPriceRandomSets(t *testing.T) {
	rq := require.New(t)
	random := tests.NewRandomizer()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for range 100 {
		listings := make([]entity.Listing, 1+random.Int63n(20))
		for i := range listings {
			listings[i] = entity.Listing{
				ID:        int64(i + 1),
				Price:     random.Int63n(5) * 500,
				State:     entity.ListingActive,
				UpdatedAt: base.Add(time.Duration(random.Int63n(3)) * time.Minute),
			}
			if random.Bool() && i > 0 {
				listings[i].State = entity.ListingSold
			}
		}

		best, ok := market.MinPrice(listings)
		rq.True(ok)

		for _, l := range listings {
			if !l.IsActive() {
				continue
			}
			rq.LessOrEqual(best.Price, l.Price)
			if l.Price == best.Price {
				rq.False(l.UpdatedAt.After(best.UpdatedAt))
			}
		}
	}
}

func TestCheapestPerCard(t *testing.T) {
	rq := require.New(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	listings := []entity.Listing{
		{ID: 1, CardID: 1, Price: 2000, State: entity.ListingActive, UpdatedAt: base},
		{ID: 2, CardID: 1, Price: 1500, State: entity.ListingActive, UpdatedAt: base},
		{ID: 3, CardID: 2, Price: 500, State: entity.ListingActive, UpdatedAt: base},
		{ID: 4, CardID: 3, Price: 100, State: entity.ListingSold, UpdatedAt: base},
		{ID: 5, CardID: 2, Price: 500, State: entity.ListingActive, UpdatedAt: base.Add(time.Second)},
	}

	got := market.CheapestPerCard(listings)
	rq.Len(got, 2)
	rq.Equal(int64(5), got[0].ID)
	rq.Equal(int64(2), got[1].ID)
}

func TestResolve(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	_, err := market.Resolve(ctx, f.store, f.card.ID)
	rq.ErrorIs(err, market.ErrNoActiveListing)

	f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)
	cheap := f.listing(t, f.card.ID, f.seller.ID, 1500, f.base)

	got, err := market.Resolve(ctx, f.store, f.card.ID)
	rq.NoError(err)
	rq.Equal(cheap.ID, got.ID)

	// Обновлённая продажа с той же ценой становится первой.
	renewed := f.listing(t, f.card.ID, f.seller.ID, 1500, f.base.Add(time.Minute))

	got, err = market.Resolve(ctx, f.store, f.card.ID)
	rq.NoError(err)
	rq.Equal(renewed.ID, got.ID)
}

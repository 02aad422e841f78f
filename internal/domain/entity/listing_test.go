package entity_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/pkg/errcodes"
)

func TestFeeFor(t *testing.T) {
	rq := require.New(t)

	testCases := []struct {
		price int64
		fee   int64
	}{
		{price: 0, fee: 0},
		{price: 1, fee: 0},
		{price: 4, fee: 0},
		{price: 5, fee: 1},
		{price: 1500, fee: 300},
		{price: 2000, fee: 400},
		{price: 2499, fee: 499},
		{price: entity.MaxListingPrice, fee: 200_000_000_000},
		{price: 500_000_000_000_000_000, fee: 100_000_000_000_000_000},
		{price: math.MaxInt64, fee: math.MaxInt64 / 5},
	}

	for _, tc := range testCases {
		rq.Equal(tc.fee, entity.FeeFor(tc.price), "price %d", tc.price)
	}
}

func TestNewListing(t *testing.T) {
	rq := require.New(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	l, err := entity.NewListing(7, 1, 2000, now)
	rq.NoError(err)
	rq.Equal(entity.ListingActive, l.State)
	rq.Equal(int64(400), l.Fee)
	rq.Equal(int64(2400), l.TotalPrice())
	rq.Equal(now, l.CreatedAt)
	rq.Equal(now, l.UpdatedAt)
	rq.Nil(l.BuyerID)
	rq.Nil(l.SoldAt)
	rq.NoError(l.Validate())

	_, err = entity.NewListing(7, 1, -1, now)
	rq.True(domain.HasCode(err, errcodes.InvalidListingPrice))
}

func TestNewListingPriceBounds(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	testCases := []struct {
		name  string
		price int64
		ok    bool
	}{
		{name: "Zero", price: 0, ok: true},
		{name: "Max", price: entity.MaxListingPrice, ok: true},
		{name: "Above max", price: entity.MaxListingPrice + 1},
		{name: "Huge", price: 500_000_000_000_000_000},
		{name: "MaxInt64", price: math.MaxInt64},
		{name: "Negative", price: -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			l, err := entity.NewListing(1, 1, tc.price, now)
			if !tc.ok {
				rq.True(domain.HasCode(err, errcodes.InvalidListingPrice))
				return
			}

			rq.NoError(err)
			rq.NoError(l.Validate())
			rq.GreaterOrEqual(l.Fee, int64(0))
			rq.GreaterOrEqual(l.TotalPrice(), l.Price)
		})
	}
}

func TestListingSetPrice(t *testing.T) {
	rq := require.New(t)
	now := time.Now()

	l, err := entity.NewListing(1, 1, 1000, now)
	rq.NoError(err)

	later := now.Add(time.Minute)
	rq.NoError(l.SetPrice(3000, later))
	rq.Equal(int64(600), l.Fee)
	rq.Equal(later, l.UpdatedAt)
	rq.NoError(l.Validate())

	rq.Error(l.SetPrice(-5, later))
	rq.True(domain.HasCode(l.SetPrice(entity.MaxListingPrice+1, later), errcodes.InvalidListingPrice))
	rq.Equal(int64(3000), l.Price)
}

func TestListingMarkSold(t *testing.T) {
	rq := require.New(t)
	now := time.Now()

	l, err := entity.NewListing(1, 1, 1000, now)
	rq.NoError(err)

	soldAt := now.Add(time.Hour)
	rq.NoError(l.MarkSold(2, soldAt))
	rq.Equal(entity.ListingSold, l.State)
	rq.Equal(int64(2), *l.BuyerID)
	rq.Equal(soldAt, *l.SoldAt)
	rq.NoError(l.Validate())

	err = l.MarkSold(3, soldAt.Add(time.Hour))
	rq.True(domain.HasCode(err, errcodes.ListingNotOnSale))
	rq.Equal(int64(2), *l.BuyerID)
	rq.Equal(soldAt, *l.SoldAt)

	rq.Error(l.SetPrice(10, now))
}

func TestListingValidate(t *testing.T) {
	rq := require.New(t)
	now := time.Now()
	buyer := int64(9)

	testCases := []struct {
		name   string
		mutate func(l *entity.Listing)
	}{
		{name: "Fee mismatch", mutate: func(l *entity.Listing) { l.Fee++ }},
		{name: "Price changed without fee", mutate: func(l *entity.Listing) { l.Price = 5000 }},
		{name: "Negative price", mutate: func(l *entity.Listing) { l.Price, l.Fee = -10, -2 }},
		{name: "Price above max", mutate: func(l *entity.Listing) {
			l.Price = entity.MaxListingPrice + 5
			l.Fee = entity.FeeFor(l.Price)
		}},
		{name: "Unknown state", mutate: func(l *entity.Listing) { l.State = 3 }},
		{name: "Buyer on active", mutate: func(l *entity.Listing) { l.BuyerID = &buyer }},
		{name: "Sold without sold_at", mutate: func(l *entity.Listing) { l.State, l.BuyerID = entity.ListingSold, &buyer }},
		{name: "Sold_at on active", mutate: func(l *entity.Listing) { l.SoldAt = &now }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			l, err := entity.NewListing(1, 1, 2000, now)
			rq.NoError(err)

			tc.mutate(&l)

			rq.ErrorIs(l.Validate(), domain.ErrInvariantViolation)
		})
	}
}

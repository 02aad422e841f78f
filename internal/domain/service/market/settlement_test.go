package market_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/market"
)

type saleRecorder struct {
	mu    sync.Mutex
	sales []entity.Listing
}

func (r *saleRecorder) OnSale(_ context.Context, sale entity.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, sale)
}

type metricsRecorder struct {
	mu       sync.Mutex
	outcomes []string
	attempts []int
}

func (m *metricsRecorder) ObserveSettlement(outcome string, attempts int, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	m.attempts = append(m.attempts, attempts)
}

func newEngine(f *fixture) *market.Engine {
	return market.NewEngine(f.store).
		WithRetryDelay(0).
		WithClock(func() time.Time { return f.base.Add(time.Hour) })
}

func TestSettleSuccess(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)

	sales := &saleRecorder{}
	metrics := &metricsRecorder{}

	sold, err := newEngine(f).WithListeners(sales).WithMetrics(metrics).Settle(ctx, listing.ID, f.buyer.ID)
	rq.NoError(err)
	rq.Equal(entity.ListingSold, sold.State)
	rq.Equal(f.buyer.ID, *sold.BuyerID)
	rq.Equal(f.base.Add(time.Hour), *sold.SoldAt)

	stored, err := f.store.GetListing(ctx, listing.ID)
	rq.NoError(err)
	rq.Equal(entity.ListingSold, stored.State)
	rq.Equal(f.buyer.ID, *stored.BuyerID)
	rq.NotNil(stored.SoldAt)
	rq.NoError(stored.Validate())

	// Покупатель платит price + fee, продавец получает только price.
	rq.Equal(int64(10000-2400), f.cash(t, f.buyer.ID))
	rq.Equal(int64(10000+2000), f.cash(t, f.seller.ID))

	rq.Len(sales.sales, 1)
	rq.Equal(listing.ID, sales.sales[0].ID)
	rq.Equal([]string{"success"}, metrics.outcomes)
	rq.Equal([]int{1}, metrics.attempts)
}

func TestSettleNotMinimumPrice(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	expensive := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)
	cheap := f.listing(t, f.card.ID, f.seller.ID, 1500, f.base)

	_, err := newEngine(f).Settle(ctx, expensive.ID, f.buyer.ID)

	se, ok := market.AsSettleError(err)
	rq.True(ok)
	rq.Equal(market.KindNotMinimumPrice, se.Kind)
	rq.Equal(cheap.ID, se.MinPriceListingID)

	rq.Equal(int64(10000), f.cash(t, f.buyer.ID))
	rq.Equal(int64(10000), f.cash(t, f.seller.ID))

	stored, err := f.store.GetListing(ctx, expensive.ID)
	rq.NoError(err)
	rq.Equal(entity.ListingActive, stored.State)
}

func TestSettleSoldListing(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)
	other := f.user(t, "user_3", 50000)
	engine := newEngine(f)

	_, err := engine.Settle(ctx, listing.ID, f.buyer.ID)
	rq.NoError(err)

	for _, buyerID := range []int64{f.buyer.ID, other.ID, f.seller.ID} {
		_, err = engine.Settle(ctx, listing.ID, buyerID)
		rq.True(market.IsKind(err, market.KindInvalidState), "buyer %d: %v", buyerID, err)
	}

	stored, err := f.store.GetListing(ctx, listing.ID)
	rq.NoError(err)
	rq.Equal(f.buyer.ID, *stored.BuyerID)
	rq.Equal(int64(50000), f.cash(t, other.ID))
}

func TestSettleSameParty(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)

	_, err := newEngine(f).Settle(ctx, listing.ID, f.seller.ID)
	rq.True(market.IsKind(err, market.KindSameParty), err)
	rq.Equal(int64(10000), f.cash(t, f.seller.ID))

	stored, err := f.store.GetListing(ctx, listing.ID)
	rq.NoError(err)
	rq.True(stored.IsActive())
}

func TestSettleInsufficientFunds(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	poor := f.user(t, "poor", 500)
	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)
	rq.Equal(int64(2400), listing.TotalPrice())

	sales := &saleRecorder{}

	_, err := newEngine(f).WithListeners(sales).Settle(ctx, listing.ID, poor.ID)
	rq.True(market.IsKind(err, market.KindInsufficientFunds), err)

	rq.Equal(int64(500), f.cash(t, poor.ID))
	rq.Equal(int64(10000), f.cash(t, f.seller.ID))

	stored, err := f.store.GetListing(ctx, listing.ID)
	rq.NoError(err)
	rq.True(stored.IsActive())
	rq.Nil(stored.BuyerID)
	rq.Nil(stored.SoldAt)
	rq.Empty(sales.sales)
}

func TestSettleExactFunds(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)

	exact := f.user(t, "exact", 2400)
	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)

	_, err := newEngine(f).Settle(context.Background(), listing.ID, exact.ID)
	rq.NoError(err)
	rq.Zero(f.cash(t, exact.ID))
}

func TestSettleNotFound(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)
	engine := newEngine(f)

	_, err := engine.Settle(ctx, 999, f.buyer.ID)
	se, ok := market.AsSettleError(err)
	rq.True(ok)
	rq.Equal(market.KindNotFound, se.Kind)
	rq.Equal(market.SubjectListing, se.Subject)

	_, err = engine.Settle(ctx, listing.ID, 999)
	se, ok = market.AsSettleError(err)
	rq.True(ok)
	rq.Equal(market.KindNotFound, se.Kind)
	rq.Equal(market.SubjectBuyer, se.Subject)
	rq.Equal(int64(10000), f.cash(t, f.seller.ID))
}

// blindStore скрывает активные продажи от резолвера внутри транзакции.
type blindStore struct {
	*fixture
}

type blindTx struct {
	market.Tx
}

func (blindTx) ListActiveByCard(context.Context, int64) ([]entity.Listing, error) {
	return nil, nil
}

func (b blindStore) GetListing(ctx context.Context, id int64) (entity.Listing, error) {
	return b.store.GetListing(ctx, id)
}

func (b blindStore) ListActiveByCard(ctx context.Context, cardID int64) ([]entity.Listing, error) {
	return b.store.ListActiveByCard(ctx, cardID)
}

func (b blindStore) WithinTx(ctx context.Context, fn func(tx market.Tx) error) error {
	return b.store.WithinTx(ctx, func(tx market.Tx) error {
		return fn(blindTx{Tx: tx})
	})
}

func TestSettleResolutionFailed(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)

	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)

	_, err := market.NewEngine(blindStore{f}).Settle(context.Background(), listing.ID, f.buyer.ID)
	rq.True(market.IsKind(err, market.KindResolutionFailed), err)
	rq.Equal(int64(10000), f.cash(t, f.buyer.ID))
}

// corruptStore подменяет комиссию прочитанной продажи.
type corruptStore struct {
	*fixture
}

type corruptTx struct {
	market.Tx
}

func (c corruptTx) GetListingForUpdate(ctx context.Context, id int64) (entity.Listing, error) {
	l, err := c.Tx.GetListingForUpdate(ctx, id)
	l.Fee = 0
	return l, err
}

func (c corruptStore) GetListing(ctx context.Context, id int64) (entity.Listing, error) {
	return c.store.GetListing(ctx, id)
}

func (c corruptStore) ListActiveByCard(ctx context.Context, cardID int64) ([]entity.Listing, error) {
	return c.store.ListActiveByCard(ctx, cardID)
}

func (c corruptStore) WithinTx(ctx context.Context, fn func(tx market.Tx) error) error {
	return c.store.WithinTx(ctx, func(tx market.Tx) error {
		return fn(corruptTx{Tx: tx})
	})
}

func TestSettleInvariantViolationAborts(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)

	_, err := market.NewEngine(corruptStore{f}).Settle(ctx, listing.ID, f.buyer.ID)
	rq.ErrorIs(err, domain.ErrInvariantViolation)

	_, isSettle := market.AsSettleError(err)
	rq.False(isSettle)

	stored, err := f.store.GetListing(ctx, listing.ID)
	rq.NoError(err)
	rq.True(stored.IsActive())
	rq.Equal(int64(10000), f.cash(t, f.buyer.ID))
	rq.Equal(int64(10000), f.cash(t, f.seller.ID))
}

func TestSettleConcurrentBuyersSingleWinner(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	const buyers = 32

	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)

	ids := make([]int64, buyers)
	for i := range ids {
		ids[i] = f.user(t, "buyer_"+string(rune('a'+i)), 10000).ID
	}

	engine := newEngine(f)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		winner    atomic.Int64
		start     = make(chan struct{})
		errs      = make([]error, buyers)
	)

	for i, buyerID := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			if _, err := engine.Settle(ctx, listing.ID, buyerID); err != nil {
				errs[i] = err
				return
			}
			successes.Add(1)
			winner.Store(buyerID)
		}()
	}

	close(start)
	wg.Wait()

	rq.Equal(int32(1), successes.Load())

	for _, err := range errs {
		if err == nil {
			continue
		}
		se, ok := market.AsSettleError(err)
		rq.True(ok, err)
		rq.Contains([]market.FailureKind{market.KindInvalidState, market.KindNotMinimumPrice}, se.Kind)
	}

	stored, err := f.store.GetListing(ctx, listing.ID)
	rq.NoError(err)
	rq.Equal(entity.ListingSold, stored.State)
	rq.Equal(winner.Load(), *stored.BuyerID)

	for _, id := range ids {
		want := int64(10000)
		if id == winner.Load() {
			want -= 2400
		}
		rq.Equal(want, f.cash(t, id))
	}
	rq.Equal(int64(12000), f.cash(t, f.seller.ID))
}

func TestSettleConcurrentSalesOfSameSeller(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	const sales = 10

	engine := newEngine(f).WithMaxAttempts(sales + 1)

	type order struct {
		listingID int64
		buyerID   int64
	}

	orders := make([]order, sales)
	for i := range orders {
		card := entity.PhotoCard{Title: "card"}
		rq.NoError(f.store.CreatePhotoCard(ctx, &card))

		l := f.listing(t, card.ID, f.seller.ID, 1000, f.base)
		u := f.user(t, "b"+string(rune('a'+i)), 5000)

		orders[i] = order{listingID: l.ID, buyerID: u.ID}
	}

	var wg sync.WaitGroup
	errs := make([]error, sales)

	for i, o := range orders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.Settle(ctx, o.listingID, o.buyerID)
		}()
	}

	wg.Wait()

	for _, err := range errs {
		rq.NoError(err)
	}

	// Ни одно зачисление продавцу не потеряно.
	rq.Equal(int64(10000+sales*1000), f.cash(t, f.seller.ID))

	for _, o := range orders {
		rq.Equal(int64(5000-1200), f.cash(t, o.buyerID))
	}
}

func TestSettleRetriesConflict(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)

	var calls int
	f.store.OnBeforeCommit(func() {
		calls++
		if calls == 1 {
			// Конкурирующая продажа дороже текущей: меняет набор продаж, но не минимум.
			f.listing(t, f.card.ID, f.seller.ID, 99999, f.base)
		}
	})

	metrics := &metricsRecorder{}

	_, err := newEngine(f).WithMetrics(metrics).Settle(ctx, listing.ID, f.buyer.ID)
	rq.NoError(err)
	rq.Equal(2, calls)
	rq.Equal([]int{2}, metrics.attempts)
	rq.Equal(int64(7600), f.cash(t, f.buyer.ID))
}

func TestSettleConflictRevealsCheaperListing(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)

	var cheaper entity.Listing
	var once sync.Once
	f.store.OnBeforeCommit(func() {
		once.Do(func() {
			cheaper = f.listing(t, f.card.ID, f.seller.ID, 100, f.base)
		})
	})

	_, err := newEngine(f).Settle(ctx, listing.ID, f.buyer.ID)

	se, ok := market.AsSettleError(err)
	rq.True(ok, err)
	rq.Equal(market.KindNotMinimumPrice, se.Kind)
	rq.Equal(cheaper.ID, se.MinPriceListingID)
	rq.Equal(int64(10000), f.cash(t, f.buyer.ID))
}

func TestSettleRetryExhausted(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	listing := f.listing(t, f.card.ID, f.seller.ID, 2000, f.base)

	var calls int
	f.store.OnBeforeCommit(func() {
		calls++
		f.listing(t, f.card.ID, f.seller.ID, 99999, f.base)
	})

	metrics := &metricsRecorder{}

	_, err := newEngine(f).WithMaxAttempts(3).WithMetrics(metrics).Settle(ctx, listing.ID, f.buyer.ID)
	rq.True(market.IsKind(err, market.KindRetryExhausted), err)
	rq.Equal(3, calls)
	rq.Equal([]string{string(market.KindRetryExhausted)}, metrics.outcomes)
	rq.Equal([]int{3}, metrics.attempts)

	stored, err := f.store.GetListing(ctx, listing.ID)
	rq.NoError(err)
	rq.True(stored.IsActive())
	rq.Equal(int64(10000), f.cash(t, f.buyer.ID))
}

func TestSettleErrorCodes(t *testing.T) {
	rq := require.New(t)

	for _, kind := range []market.FailureKind{
		market.KindNotFound,
		market.KindInvalidState,
		market.KindResolutionFailed,
		market.KindNotMinimumPrice,
		market.KindSameParty,
		market.KindInsufficientFunds,
		market.KindRetryExhausted,
	} {
		se := &market.SettleError{Kind: kind, ListingID: 1, BuyerID: 2, MinPriceListingID: 3}
		rq.NotEmpty(se.Error())
		rq.NotEqual("InternalServerError", se.Code().String(), kind)
	}
}

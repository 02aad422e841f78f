package market

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/value"
	"pocamarket/pkg/logx"
	"pocamarket/pkg/lox"
)

const (
	// RecentPricesLimit сколько последних цен сделок показывать в карточке продажи.
	RecentPricesLimit = 5

	recentPricesTTL = 30 * time.Second
)

// CatalogEntry продажа вместе с карточкой.
type CatalogEntry struct {
	Listing   entity.Listing
	PhotoCard entity.PhotoCard
}

// ListingDetail продажа с историей цен по карточке.
type ListingDetail struct {
	CatalogEntry
	RecentPrices []int64
}

// Catalog сторона чтения рынка и регистрация новых продаж.
type Catalog struct {
	store        CatalogStore
	now          func() time.Time
	recentPrices *cache.Cache
}

func NewCatalog(store CatalogStore) *Catalog {
	return &Catalog{
		store:        store,
		now:          time.Now,
		recentPrices: cache.New(recentPricesTTL, time.Minute),
	}
}

func (c *Catalog) WithClock(now func() time.Time) *Catalog {
	c.now = now
	return c
}

// WithRecentPricesTTL время жизни кэша цен сделок; сбрасывает уже закэшированное.
func (c *Catalog) WithRecentPricesTTL(ttl time.Duration) *Catalog {
	c.recentPrices = cache.New(ttl, 2*ttl)
	return c
}

// ListCheapest по одной самой дешёвой активной продаже на карточку, постранично.
func (c *Catalog) ListCheapest(ctx context.Context, page value.Page) ([]CatalogEntry, int, error) {
	active, err := c.store.ListActive(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("store.ListActive: %w", err)
	}

	cheapest := CheapestPerCard(active)
	total := len(cheapest)

	from := page.Offset()
	if from < 0 || from > total {
		from = total
	}
	to := min(from+page.Size, total)
	cheapest = cheapest[from:to]

	cardIDs := lox.Map(cheapest, func(l entity.Listing) int64 { return l.CardID })

	cards, err := c.store.GetPhotoCards(ctx, cardIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("store.GetPhotoCards: %w", err)
	}

	cardByID := lox.FilterAssociate(cards, func(pc entity.PhotoCard) (int64, bool) { return pc.ID, true })

	entries := lox.Map(cheapest, func(l entity.Listing) CatalogEntry {
		return CatalogEntry{Listing: l, PhotoCard: cardByID[l.CardID]}
	})

	return entries, total, nil
}

// Cheapest продажа первого ранга для карточки.
func (c *Catalog) Cheapest(ctx context.Context, cardID int64) (entity.Listing, error) {
	if _, err := c.store.GetPhotoCard(ctx, cardID); err != nil {
		return entity.Listing{}, fmt.Errorf("store.GetPhotoCard: %w", err)
	}

	return Resolve(ctx, c.store, cardID)
}

func (c *Catalog) GetPhotoCard(ctx context.Context, id int64) (entity.PhotoCard, error) {
	card, err := c.store.GetPhotoCard(ctx, id)
	if err != nil {
		return entity.PhotoCard{}, fmt.Errorf("store.GetPhotoCard: %w", err)
	}
	return card, nil
}

// GetDetail продажа с карточкой, комиссией и последними ценами сделок.
func (c *Catalog) GetDetail(ctx context.Context, id int64) (ListingDetail, error) {
	listing, err := c.store.GetListing(ctx, id)
	if err != nil {
		return ListingDetail{}, fmt.Errorf("store.GetListing: %w", err)
	}

	card, err := c.store.GetPhotoCard(ctx, listing.CardID)
	if err != nil {
		return ListingDetail{}, fmt.Errorf("store.GetPhotoCard: %w", err)
	}

	prices, err := c.RecentSettledPrices(ctx, listing.CardID, RecentPricesLimit)
	if err != nil {
		return ListingDetail{}, err
	}

	return ListingDetail{
		CatalogEntry: CatalogEntry{Listing: listing, PhotoCard: card},
		RecentPrices: prices,
	}, nil
}

// RecentSettledPrices цены последних limit сделок по карточке, новые первыми.
func (c *Catalog) RecentSettledPrices(ctx context.Context, cardID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = RecentPricesLimit
	}

	key := recentPricesKey(cardID, limit)

	if cached, ok := c.recentPrices.Get(key); ok {
		return slices.Clone(cached.([]int64)), nil //nolint:forcetypeassert
	}

	prices, err := c.store.RecentSoldPrices(ctx, cardID, limit)
	if err != nil {
		return nil, fmt.Errorf("store.RecentSoldPrices: %w", err)
	}

	if prices == nil {
		prices = []int64{}
	}

	c.recentPrices.SetDefault(key, prices)

	return slices.Clone(prices), nil
}

// CreateListing выставляет карточку на продажу.
func (c *Catalog) CreateListing(ctx context.Context, cardID, sellerID, price int64) (entity.Listing, error) {
	if _, err := c.store.GetPhotoCard(ctx, cardID); err != nil {
		return entity.Listing{}, fmt.Errorf("store.GetPhotoCard: %w", err)
	}

	if _, err := c.store.GetUser(ctx, sellerID); err != nil {
		return entity.Listing{}, fmt.Errorf("store.GetUser: %w", err)
	}

	listing, err := entity.NewListing(cardID, sellerID, price, c.now())
	if err != nil {
		return entity.Listing{}, fmt.Errorf("entity.NewListing: %w", err)
	}

	if err := c.store.CreateListing(ctx, &listing); err != nil {
		return entity.Listing{}, fmt.Errorf("store.CreateListing: %w", err)
	}

	logger(ctx).Info("listing created",
		slog.Int64(logx.FieldListingID, listing.ID),
		slog.Int64(logx.FieldCardID, cardID),
		slog.Int64("price", price),
	)

	return listing, nil
}

// OnSale сбрасывает кэш цен сделок по проданной карточке.
func (c *Catalog) OnSale(_ context.Context, sale entity.Listing) {
	prefix := strconv.FormatInt(sale.CardID, 10) + ":"

	for key := range c.recentPrices.Items() {
		if strings.HasPrefix(key, prefix) {
			c.recentPrices.Delete(key)
		}
	}
}

func recentPricesKey(cardID int64, limit int) string {
	return strconv.FormatInt(cardID, 10) + ":" + strconv.Itoa(limit)
}

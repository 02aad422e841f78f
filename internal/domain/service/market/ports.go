package market

import (
	"context"

	"pocamarket/internal/domain/entity"
)

// ListingReader чтение продаж. Реализуется как самим хранилищем, так и открытой транзакцией.
type ListingReader interface {
	GetListing(ctx context.Context, id int64) (entity.Listing, error)
	ListActiveByCard(ctx context.Context, cardID int64) ([]entity.Listing, error)
}

// Tx единица работы расчёта. Все изменения видны другим только после фиксации.
type Tx interface {
	ListingReader
	GetListingForUpdate(ctx context.Context, id int64) (entity.Listing, error)
	GetUserForUpdate(ctx context.Context, id int64) (entity.User, error)
	SaveListing(ctx context.Context, listing *entity.Listing) error
	SaveUser(ctx context.Context, user entity.User) error
}

// Store хранилище, на котором работает движок расчёта.
//
// WithinTx фиксирует транзакцию, если fn вернула nil, и откатывает её
// при ошибке или панике. Конкурентная запись сообщается как domain.ErrTxConflict.
type Store interface {
	ListingReader
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// CatalogStore чтение каталога и регистрация продаж.
type CatalogStore interface {
	ListingReader
	ListActive(ctx context.Context) ([]entity.Listing, error)
	RecentSoldPrices(ctx context.Context, cardID int64, limit int) ([]int64, error)
	CreateListing(ctx context.Context, listing *entity.Listing) error
	GetUser(ctx context.Context, id int64) (entity.User, error)
	GetPhotoCard(ctx context.Context, id int64) (entity.PhotoCard, error)
	GetPhotoCards(ctx context.Context, ids []int64) ([]entity.PhotoCard, error)
}

// SaleListener получает уведомление о зафиксированной продаже.
type SaleListener interface {
	OnSale(ctx context.Context, sale entity.Listing)
}

// Metrics наблюдение за расчётами.
type Metrics interface {
	ObserveSettlement(outcome string, attempts int, seconds float64)
}

package handler

import (
	"context"

	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/market"
	"pocamarket/internal/domain/value"
)

// Market чтение витрины рынка.
type Market interface {
	ListCheapest(ctx context.Context, page value.Page) ([]market.CatalogEntry, int, error)
	Cheapest(ctx context.Context, cardID int64) (entity.Listing, error)
	RecentSettledPrices(ctx context.Context, cardID int64, limit int) ([]int64, error)
}

type Handler struct {
	market Market
}

func New(m Market) *Handler {
	return &Handler{market: m}
}

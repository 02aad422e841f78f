package market

import (
	"context"
	"fmt"
	"sort"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/pkg/errcodes"
)

// ErrNoActiveListing для карточки нет ни одной активной продажи.
var ErrNoActiveListing = domain.NewError(errcodes.MinPriceListingNotFound, "no active listing for card")

// outranks задаёт порядок: цена по возрастанию, затем более свежая продажа,
// затем больший ID.
func outranks(a, b entity.Listing) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID > b.ID
}

// MinPrice возвращает продажу первого ранга среди активных.
func MinPrice(listings []entity.Listing) (entity.Listing, bool) {
	var (
		best  entity.Listing
		found bool
	)

	for _, l := range listings {
		if !l.IsActive() {
			continue
		}
		if !found || outranks(l, best) {
			best, found = l, true
		}
	}

	return best, found
}

// CheapestPerCard оставляет по одной продаже первого ранга на карточку,
// результат упорядочен по ID по убыванию.
func CheapestPerCard(listings []entity.Listing) []entity.Listing {
	byCard := make(map[int64]entity.Listing)

	for _, l := range listings {
		if !l.IsActive() {
			continue
		}
		if cur, ok := byCard[l.CardID]; !ok || outranks(l, cur) {
			byCard[l.CardID] = l
		}
	}

	result := make([]entity.Listing, 0, len(byCard))
	for _, l := range byCard {
		result = append(result, l)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return result
}

// Resolve находит продажу с минимальной ценой для карточки. Результат не кэшируется:
// состояние продаж меняется в любой момент.
func Resolve(ctx context.Context, r ListingReader, cardID int64) (entity.Listing, error) {
	listings, err := r.ListActiveByCard(ctx, cardID)
	if err != nil {
		return entity.Listing{}, fmt.Errorf("ListActiveByCard: %w", err)
	}

	best, ok := MinPrice(listings)
	if !ok {
		return entity.Listing{}, ErrNoActiveListing
	}

	return best, nil
}

package entity

import (
	"fmt"
	"time"

	"pocamarket/internal/domain"
	"pocamarket/pkg/errcodes"
)

// ListingState состояние продажи. Значения совпадают с хранимыми в БД.
type ListingState int16

const (
	ListingActive ListingState = 1
	ListingSold   ListingState = 2
)

func (s ListingState) String() string {
	switch s {
	case ListingActive:
		return "active"
	case ListingSold:
		return "sold"
	default:
		return fmt.Sprintf("unknown(%d)", int16(s))
	}
}

// MaxListingPrice верхняя граница цены; с ней price+fee и баланс продавца
// не выходят за int64.
const MaxListingPrice int64 = 1_000_000_000_000

// FeeFor возвращает комиссию floor(price * 0.2) для неотрицательной цены.
func FeeFor(price int64) int64 {
	return price / 5
}

func checkPrice(price int64) error {
	switch {
	case price < 0:
		return domain.NewError(errcodes.InvalidListingPrice, "price must not be negative")
	case price > MaxListingPrice:
		return domain.NewError(errcodes.InvalidListingPrice,
			fmt.Sprintf("price must not exceed %d", MaxListingPrice))
	}
	return nil
}

// Listing выставленная на продажу фотокарточка.
type Listing struct {
	ID        int64
	CardID    int64
	SellerID  int64
	BuyerID   *int64
	Price     int64
	Fee       int64
	State     ListingState
	CreatedAt time.Time
	UpdatedAt time.Time
	SoldAt    *time.Time
}

// NewListing создаёт активную продажу с рассчитанной комиссией.
func NewListing(cardID, sellerID, price int64, now time.Time) (Listing, error) {
	if err := checkPrice(price); err != nil {
		return Listing{}, err
	}

	return Listing{
		CardID:    cardID,
		SellerID:  sellerID,
		Price:     price,
		Fee:       FeeFor(price),
		State:     ListingActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TotalPrice сумма, которую платит покупатель.
func (l Listing) TotalPrice() int64 {
	return l.Price + l.Fee
}

func (l Listing) IsActive() bool {
	return l.State == ListingActive
}

// SetPrice меняет цену активной продажи и пересчитывает комиссию.
func (l *Listing) SetPrice(price int64, now time.Time) error {
	if !l.IsActive() {
		return domain.NewError(errcodes.ListingNotOnSale, "listing is not on sale")
	}
	if err := checkPrice(price); err != nil {
		return err
	}

	l.Price = price
	l.Fee = FeeFor(price)
	l.UpdatedAt = now

	return nil
}

// Renew поднимает продажу: при равной цене выигрывает последняя обновлённая.
func (l *Listing) Renew(now time.Time) {
	l.UpdatedAt = now
}

// MarkSold единственный переход ACTIVE -> SOLD.
func (l *Listing) MarkSold(buyerID int64, now time.Time) error {
	if !l.IsActive() {
		return domain.NewError(errcodes.ListingNotOnSale, "listing is not on sale")
	}

	soldAt := now
	l.BuyerID = &buyerID
	l.SoldAt = &soldAt
	l.State = ListingSold
	l.UpdatedAt = now

	return nil
}

// Validate проверяет инварианты перед сохранением.
func (l Listing) Validate() error {
	switch {
	case l.Price < 0:
		return invariant("negative price %d", l.Price)
	case l.Price > MaxListingPrice:
		return invariant("price %d exceeds %d", l.Price, MaxListingPrice)
	case l.Fee != FeeFor(l.Price):
		return invariant("fee %d does not match price %d", l.Fee, l.Price)
	case l.State != ListingActive && l.State != ListingSold:
		return invariant("unknown state %d", l.State)
	}

	sold := l.State == ListingSold
	if (l.BuyerID != nil) != sold || (l.SoldAt != nil) != sold {
		return invariant("listing %d: buyer/sold_at must be set iff state is sold", l.ID)
	}

	return nil
}

func invariant(format string, args ...any) error {
	return domain.WrapError(fmt.Errorf(format, args...), errcodes.InvariantViolation, "invariant violation")
}

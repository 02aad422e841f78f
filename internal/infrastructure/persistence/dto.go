package persistence

import (
	"time"

	"pocamarket/internal/domain/entity"
)

// listingSchema строка таблицы sales.
type listingSchema struct {
	ID          int64      `db:"id"`
	PhotoCardID int64      `db:"photocard_id"`
	SellerID    int64      `db:"seller_id"`
	BuyerID     *int64     `db:"buyer_id"`
	Price       int64      `db:"price"`
	Fee         int64      `db:"fee"`
	State       int16      `db:"state"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	SoldAt      *time.Time `db:"sold_at"`
}

func fromListing(l *entity.Listing) *listingSchema {
	return &listingSchema{
		ID:          l.ID,
		PhotoCardID: l.CardID,
		SellerID:    l.SellerID,
		BuyerID:     l.BuyerID,
		Price:       l.Price,
		Fee:         l.Fee,
		State:       int16(l.State),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		SoldAt:      l.SoldAt,
	}
}

func (s *listingSchema) toDomain() entity.Listing {
	return entity.Listing{
		ID:        s.ID,
		CardID:    s.PhotoCardID,
		SellerID:  s.SellerID,
		BuyerID:   s.BuyerID,
		Price:     s.Price,
		Fee:       s.Fee,
		State:     entity.ListingState(s.State),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		SoldAt:    s.SoldAt,
	}
}

// userSchema строка таблицы users.
type userSchema struct {
	ID           int64      `db:"id"`
	Name         string     `db:"name"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Gender       *string    `db:"gender"`
	Birth        *time.Time `db:"birth"`
	Cash         int64      `db:"cash"`
}

func fromUser(u *entity.User) *userSchema {
	return &userSchema{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Gender:       u.Gender,
		Birth:        u.Birth,
		Cash:         u.Cash,
	}
}

func (s *userSchema) toDomain() entity.User {
	return entity.User{
		ID:           s.ID,
		Name:         s.Name,
		Email:        s.Email,
		PasswordHash: s.PasswordHash,
		Gender:       s.Gender,
		Birth:        s.Birth,
		Cash:         s.Cash,
	}
}

// artistSchema артист карточки вместе с группой.
type artistSchema struct {
	PhotoCardID int64   `db:"photocard_id"`
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	GroupID     *int64  `db:"group_id"`
	GroupName   *string `db:"group_name"`
}

func (s *artistSchema) toDomain() entity.Artist {
	a := entity.Artist{ID: s.ID, Name: s.Name}
	if s.GroupID != nil && s.GroupName != nil {
		a.Group = &entity.Group{ID: *s.GroupID, Name: *s.GroupName}
	}
	return a
}

type photoCardSchema struct {
	ID    int64  `db:"id"`
	Title string `db:"title"`
}

const (
	listingColumns = `id, photocard_id, seller_id, buyer_id, price, fee, state, created_at, updated_at, sold_at`
	userColumns    = `id, name, email, password_hash, gender, birth, cash`
)

package server

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/market"
	"pocamarket/internal/domain/service/user"
	"pocamarket/internal/domain/value"
	"pocamarket/pkg/lox"
	"pocamarket/pkg/rest"
)

const dateLayout = time.DateOnly

func newRESTPhotoCard(card entity.PhotoCard) rest.PhotoCard {
	return rest.PhotoCard{
		ID:        card.ID,
		Title:     card.Title,
		ArtistSet: lox.Map(card.Artists, newRESTArtist),
	}
}

func newRESTArtist(a entity.Artist) rest.Artist {
	artist := rest.Artist{ID: a.ID, Name: a.Name}
	if a.Group != nil {
		artist.Group = &rest.Group{ID: a.Group.ID, Name: a.Group.Name}
	}
	return artist
}

func newRESTSale(e market.CatalogEntry) rest.Sale {
	return rest.Sale{
		ID:        e.Listing.ID,
		PhotoCard: newRESTPhotoCard(e.PhotoCard),
		Price:     e.Listing.Price,
	}
}

func newRESTSaleDetail(d market.ListingDetail) rest.SaleDetail {
	return rest.SaleDetail{
		ID:                   d.Listing.ID,
		PhotoCard:            newRESTPhotoCard(d.PhotoCard),
		Price:                d.Listing.Price,
		Fee:                  d.Listing.Fee,
		TotalPrice:           d.Listing.TotalPrice(),
		RecentOrderPriceList: d.RecentPrices,
	}
}

func newRESTSaleCreated(l entity.Listing) rest.SaleCreated {
	return rest.SaleCreated{
		ID:        l.ID,
		State:     int16(l.State),
		PhotoCard: l.CardID,
		Seller:    l.SellerID,
		Price:     l.Price,
		Fee:       l.Fee,
		CreatedAt: l.CreatedAt,
	}
}

func newRESTOrderResult(l entity.Listing) rest.OrderResult {
	result := rest.OrderResult{
		Detail: "purchase completed",
		SaleID: l.ID,
	}
	if l.BuyerID != nil {
		result.Buyer = *l.BuyerID
	}
	if l.SoldAt != nil {
		result.SoldAt = *l.SoldAt
	}
	return result
}

func newRESTSalePage(path string, page value.Page, entries []market.CatalogEntry, total int) rest.SalePage {
	result := rest.SalePage{
		Count:   total,
		Results: lox.Map(entries, newRESTSale),
	}

	if page.HasNext(total) {
		next := pageURL(path, page.Number+1, page.Size)
		result.Next = &next
	}

	if page.HasPrevious() {
		previous := pageURL(path, page.Number-1, page.Size)
		result.Previous = &previous
	}

	return result
}

func pageURL(path string, number, size int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(number))
	q.Set("page_size", strconv.Itoa(size))

	return path + "?" + q.Encode()
}

func newRESTUser(u entity.User) rest.User {
	result := rest.User{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Gender: u.Gender,
		Cash:   u.Cash,
	}
	if u.Birth != nil {
		birth := u.Birth.Format(dateLayout)
		result.Birth = &birth
	}
	return result
}

func newDomainUser(r rest.UserCreate) (user.NewUser, error) {
	in := user.NewUser{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Gender:   r.Gender,
	}

	if r.Birth != nil {
		birth, err := time.Parse(dateLayout, *r.Birth)
		if err != nil {
			return user.NewUser{}, fmt.Errorf("time.Parse: %w", err)
		}
		in.Birth = &birth
	}

	return in, nil
}

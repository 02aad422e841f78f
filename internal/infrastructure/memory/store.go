// Package memory хранилище рынка в памяти процесса. Транзакции оптимистичные:
// при фиксации проверяется, что прочитанные строки не изменились, иначе
// возвращается domain.ErrTxConflict.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/market"
	"pocamarket/pkg/errcodes"
)

type listingRow struct {
	value   entity.Listing
	version uint64
}

type userRow struct {
	value   entity.User
	version uint64
}

type artistRow struct {
	id      int64
	name    string
	groupID *int64
}

type cardRow struct {
	id        int64
	title     string
	artistIDs []int64
}

type Store struct {
	mu sync.Mutex

	listings map[int64]*listingRow
	users    map[int64]*userRow
	groups   map[int64]entity.Group
	artists  map[int64]artistRow
	cards    map[int64]cardRow

	// версия набора продаж карточки, растёт при любой записи продажи этой карточки
	cardVersions map[int64]uint64

	nextListingID int64
	nextUserID    int64
	nextGroupID   int64
	nextArtistID  int64
	nextCardID    int64

	beforeCommit func()
}

func NewStore() *Store {
	return &Store{
		listings:     make(map[int64]*listingRow),
		users:        make(map[int64]*userRow),
		groups:       make(map[int64]entity.Group),
		artists:      make(map[int64]artistRow),
		cards:        make(map[int64]cardRow),
		cardVersions: make(map[int64]uint64),
	}
}

// OnBeforeCommit вызывает fn перед каждой фиксацией транзакции, вне блокировки.
// Нужен тестам, чтобы вклиниться между чтением и фиксацией.
func (s *Store) OnBeforeCommit(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeCommit = fn
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx market.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := newTx(s)

	if err := fn(t); err != nil {
		return err
	}

	s.mu.Lock()
	hook := s.beforeCommit
	s.mu.Unlock()

	if hook != nil {
		hook()
	}

	return t.commit()
}

func (s *Store) GetListing(_ context.Context, id int64) (entity.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.listings[id]
	if !ok {
		return entity.Listing{}, domain.NewError(errcodes.ListingNotFound, "listing not found")
	}

	return cloneListing(row.value), nil
}

func (s *Store) ListActiveByCard(_ context.Context, cardID int64) ([]entity.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeByCardLocked(cardID), nil
}

func (s *Store) ListActive(_ context.Context) ([]entity.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []entity.Listing
	for _, row := range s.listings {
		if row.value.IsActive() {
			result = append(result, cloneListing(row.value))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (s *Store) RecentSoldPrices(_ context.Context, cardID int64, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sold []entity.Listing
	for _, row := range s.listings {
		if row.value.CardID == cardID && row.value.State == entity.ListingSold {
			sold = append(sold, row.value)
		}
	}

	sort.Slice(sold, func(i, j int) bool {
		a, b := sold[i], sold[j]
		if !a.SoldAt.Equal(*b.SoldAt) {
			return a.SoldAt.After(*b.SoldAt)
		}
		return a.ID > b.ID
	})

	if len(sold) > limit {
		sold = sold[:limit]
	}

	prices := make([]int64, 0, len(sold))
	for _, l := range sold {
		prices = append(prices, l.Price)
	}

	return prices, nil
}

func (s *Store) CreateListing(_ context.Context, listing *entity.Listing) error {
	if err := listing.Validate(); err != nil {
		return fmt.Errorf("listing.Validate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[listing.CardID]; !ok {
		return domain.NewError(errcodes.PhotoCardNotFound, "photocard not found")
	}
	if _, ok := s.users[listing.SellerID]; !ok {
		return domain.NewError(errcodes.UserNotFound, "user not found")
	}

	s.nextListingID++
	listing.ID = s.nextListingID

	s.listings[listing.ID] = &listingRow{value: cloneListing(*listing), version: 1}
	s.cardVersions[listing.CardID]++

	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.users[id]
	if !ok {
		return entity.User{}, domain.NewError(errcodes.UserNotFound, "user not found")
	}

	return row.value, nil
}

func (s *Store) ListUsers(_ context.Context) ([]entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]entity.User, 0, len(s.users))
	for _, row := range s.users {
		result = append(result, row.value)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.users {
		if strings.EqualFold(row.value.Email, user.Email) {
			return domain.NewError(errcodes.EmailAlreadyInUse, "email already in use")
		}
	}

	s.nextUserID++
	user.ID = s.nextUserID

	s.users[user.ID] = &userRow{value: *user, version: 1}

	return nil
}

func (s *Store) CreateGroup(_ context.Context, group *entity.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextGroupID++
	group.ID = s.nextGroupID
	s.groups[group.ID] = *group

	return nil
}

func (s *Store) CreateArtist(_ context.Context, artist *entity.Artist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := artistRow{name: artist.Name}

	if artist.Group != nil {
		if _, ok := s.groups[artist.Group.ID]; !ok {
			return domain.NewError(errcodes.NotFound, "group not found")
		}
		groupID := artist.Group.ID
		row.groupID = &groupID
	}

	s.nextArtistID++
	artist.ID = s.nextArtistID
	row.id = artist.ID
	s.artists[artist.ID] = row

	return nil
}

func (s *Store) CreatePhotoCard(_ context.Context, card *entity.PhotoCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := cardRow{title: card.Title}

	for _, a := range card.Artists {
		if _, ok := s.artists[a.ID]; !ok {
			return domain.NewError(errcodes.NotFound, "artist not found")
		}
		row.artistIDs = append(row.artistIDs, a.ID)
	}

	s.nextCardID++
	card.ID = s.nextCardID
	row.id = card.ID
	s.cards[card.ID] = row

	return nil
}

func (s *Store) GetPhotoCard(_ context.Context, id int64) (entity.PhotoCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.cards[id]
	if !ok {
		return entity.PhotoCard{}, domain.NewError(errcodes.PhotoCardNotFound, "photocard not found")
	}

	return s.photoCardLocked(row), nil
}

func (s *Store) GetPhotoCards(_ context.Context, ids []int64) ([]entity.PhotoCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]entity.PhotoCard, 0, len(ids))
	for _, id := range ids {
		if row, ok := s.cards[id]; ok {
			result = append(result, s.photoCardLocked(row))
		}
	}

	return result, nil
}

func (s *Store) photoCardLocked(row cardRow) entity.PhotoCard {
	card := entity.PhotoCard{ID: row.id, Title: row.title}

	for _, artistID := range row.artistIDs {
		a := s.artists[artistID]
		artist := entity.Artist{ID: a.id, Name: a.name}
		if a.groupID != nil {
			g := s.groups[*a.groupID]
			artist.Group = &g
		}
		card.Artists = append(card.Artists, artist)
	}

	return card
}

func (s *Store) activeByCardLocked(cardID int64) []entity.Listing {
	var result []entity.Listing
	for _, row := range s.listings {
		if row.value.CardID == cardID && row.value.IsActive() {
			result = append(result, cloneListing(row.value))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result
}

func cloneListing(l entity.Listing) entity.Listing {
	if l.BuyerID != nil {
		buyerID := *l.BuyerID
		l.BuyerID = &buyerID
	}
	if l.SoldAt != nil {
		soldAt := *l.SoldAt
		l.SoldAt = &soldAt
	}
	return l
}

var _ market.Store = (*Store)(nil)
var _ market.CatalogStore = (*Store)(nil)

// sortedKeys ключи в детерминированном порядке.
func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

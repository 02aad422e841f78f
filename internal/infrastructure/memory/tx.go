package memory

import (
	"context"
	"fmt"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/pkg/errcodes"
)

type tx struct {
	s *Store

	listingReads map[int64]uint64
	userReads    map[int64]uint64
	cardReads    map[int64]uint64

	listingWrites map[int64]entity.Listing
	userWrites    map[int64]entity.User
}

func newTx(s *Store) *tx {
	return &tx{
		s:             s,
		listingReads:  make(map[int64]uint64),
		userReads:     make(map[int64]uint64),
		cardReads:     make(map[int64]uint64),
		listingWrites: make(map[int64]entity.Listing),
		userWrites:    make(map[int64]entity.User),
	}
}

func (t *tx) GetListing(_ context.Context, id int64) (entity.Listing, error) {
	if l, ok := t.listingWrites[id]; ok {
		return cloneListing(l), nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	row, ok := t.s.listings[id]
	if !ok {
		return entity.Listing{}, domain.NewError(errcodes.ListingNotFound, "listing not found")
	}

	t.trackListing(id, row.version)

	return cloneListing(row.value), nil
}

// GetListingForUpdate в оптимистичной модели блокировка заменяется проверкой версии при фиксации.
func (t *tx) GetListingForUpdate(ctx context.Context, id int64) (entity.Listing, error) {
	return t.GetListing(ctx, id)
}

func (t *tx) ListActiveByCard(_ context.Context, cardID int64) ([]entity.Listing, error) {
	t.s.mu.Lock()
	active := t.s.activeByCardLocked(cardID)
	if _, seen := t.cardReads[cardID]; !seen {
		t.cardReads[cardID] = t.s.cardVersions[cardID]
	}
	t.s.mu.Unlock()

	result := make([]entity.Listing, 0, len(active))
	for _, l := range active {
		if w, ok := t.listingWrites[l.ID]; ok {
			l = w
		}
		if l.IsActive() {
			result = append(result, cloneListing(l))
		}
	}

	return result, nil
}

func (t *tx) GetUserForUpdate(_ context.Context, id int64) (entity.User, error) {
	if u, ok := t.userWrites[id]; ok {
		return u, nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	row, ok := t.s.users[id]
	if !ok {
		return entity.User{}, domain.NewError(errcodes.UserNotFound, "user not found")
	}

	if _, seen := t.userReads[id]; !seen {
		t.userReads[id] = row.version
	}

	return row.value, nil
}

func (t *tx) SaveListing(_ context.Context, listing *entity.Listing) error {
	if err := listing.Validate(); err != nil {
		return fmt.Errorf("listing.Validate: %w", err)
	}

	if _, read := t.listingReads[listing.ID]; !read {
		return domain.NewError(errcodes.InternalServerError, "listing must be read before save")
	}

	t.listingWrites[listing.ID] = cloneListing(*listing)

	return nil
}

func (t *tx) SaveUser(_ context.Context, user entity.User) error {
	if _, read := t.userReads[user.ID]; !read {
		return domain.NewError(errcodes.InternalServerError, "user must be read before save")
	}

	if user.Cash < 0 {
		return domain.WrapError(fmt.Errorf("user %d: negative cash %d", user.ID, user.Cash),
			errcodes.InvariantViolation, "invariant violation")
	}

	t.userWrites[user.ID] = user

	return nil
}

func (t *tx) trackListing(id int64, version uint64) {
	if _, seen := t.listingReads[id]; !seen {
		t.listingReads[id] = version
	}
}

// commit проверяет версии прочитанного и атомарно применяет записи.
func (t *tx) commit() error {
	if len(t.listingWrites) == 0 && len(t.userWrites) == 0 {
		return nil
	}

	s := t.s

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, version := range t.listingReads {
		if row, ok := s.listings[id]; !ok || row.version != version {
			return fmt.Errorf("listing %d changed: %w", id, domain.ErrTxConflict)
		}
	}

	for id, version := range t.userReads {
		if row, ok := s.users[id]; !ok || row.version != version {
			return fmt.Errorf("user %d changed: %w", id, domain.ErrTxConflict)
		}
	}

	for cardID, version := range t.cardReads {
		if s.cardVersions[cardID] != version {
			return fmt.Errorf("listings of card %d changed: %w", cardID, domain.ErrTxConflict)
		}
	}

	for _, id := range sortedKeys(t.listingWrites) {
		l := t.listingWrites[id]
		row := s.listings[id]
		row.value = l
		row.version++
		s.cardVersions[l.CardID]++
	}

	for _, id := range sortedKeys(t.userWrites) {
		row := s.users[id]
		row.value = t.userWrites[id]
		row.version++
	}

	return nil
}

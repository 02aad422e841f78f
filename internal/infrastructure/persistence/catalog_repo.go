package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/entity"
	"pocamarket/pkg/errcodes"
)

func (s *Store) CreateGroup(ctx context.Context, group *entity.Group) error {
	if err := s.db.GetContext(ctx, &group.ID, `INSERT INTO groups (name) VALUES ($1) RETURNING id`, group.Name); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to create group")
	}
	return nil
}

func (s *Store) CreateArtist(ctx context.Context, artist *entity.Artist) error {
	var groupID *int64
	if artist.Group != nil {
		groupID = &artist.Group.ID
	}

	query := `INSERT INTO artists (name, group_id) VALUES ($1, $2) RETURNING id`
	if err := s.db.GetContext(ctx, &artist.ID, query, artist.Name, groupID); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to create artist")
	}
	return nil
}

// CreatePhotoCard сохраняет карточку вместе со связями с артистами.
func (s *Store) CreatePhotoCard(ctx context.Context, card *entity.PhotoCard) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &card.ID, `INSERT INTO photocards (title) VALUES ($1) RETURNING id`, card.Title); err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to create photocard")
		}

		for _, a := range card.Artists {
			query := `INSERT INTO photocard_artists (photocard_id, artist_id) VALUES ($1, $2)`
			if _, err := tx.ExecContext(ctx, query, card.ID, a.ID); err != nil {
				return domain.WrapError(err, errcodes.InternalServerError, "failed to link artist")
			}
		}

		return nil
	})
}

func (s *Store) GetPhotoCard(ctx context.Context, id int64) (entity.PhotoCard, error) {
	var schema photoCardSchema
	if err := s.db.GetContext(ctx, &schema, `SELECT id, title FROM photocards WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.PhotoCard{}, domain.NewError(errcodes.PhotoCardNotFound, "photocard not found")
		}
		return entity.PhotoCard{}, domain.WrapError(err, errcodes.InternalServerError, "failed to get photocard")
	}

	cards, err := s.withArtists(ctx, []photoCardSchema{schema})
	if err != nil {
		return entity.PhotoCard{}, err
	}

	return cards[0], nil
}

func (s *Store) GetPhotoCards(ctx context.Context, ids []int64) ([]entity.PhotoCard, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT id, title FROM photocards WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to build query")
	}

	var schemas []photoCardSchema
	if err := s.db.SelectContext(ctx, &schemas, s.db.Rebind(query), args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get photocards")
	}

	return s.withArtists(ctx, schemas)
}

// withArtists подгружает артистов и группы одним запросом.
func (s *Store) withArtists(ctx context.Context, schemas []photoCardSchema) ([]entity.PhotoCard, error) {
	if len(schemas) == 0 {
		return []entity.PhotoCard{}, nil
	}

	ids := make([]int64, 0, len(schemas))
	for _, c := range schemas {
		ids = append(ids, c.ID)
	}

	query, args, err := sqlx.In(`
		SELECT pa.photocard_id, a.id, a.name, g.id AS group_id, g.name AS group_name
		FROM photocard_artists pa
		JOIN artists a ON a.id = pa.artist_id
		LEFT JOIN groups g ON g.id = a.group_id
		WHERE pa.photocard_id IN (?)
		ORDER BY pa.photocard_id, a.id`, ids)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to build query")
	}

	var artists []artistSchema
	if err := s.db.SelectContext(ctx, &artists, s.db.Rebind(query), args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get artists")
	}

	byCard := make(map[int64][]entity.Artist, len(schemas))
	for _, a := range artists {
		byCard[a.PhotoCardID] = append(byCard[a.PhotoCardID], a.toDomain())
	}

	cards := make([]entity.PhotoCard, 0, len(schemas))
	for _, c := range schemas {
		cards = append(cards, entity.PhotoCard{ID: c.ID, Title: c.Title, Artists: byCard[c.ID]})
	}

	return cards, nil
}

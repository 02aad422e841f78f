package server

import (
	"context"
	"fmt"
	"net/http"

	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/value"
	"pocamarket/pkg/errcodes"
	"pocamarket/pkg/httpx/reply"
)

type photoCardReader interface {
	GetPhotoCard(ctx context.Context, id int64) (entity.PhotoCard, error)
}

type PhotoCardsServer struct {
	photoCards photoCardReader
}

func NewPhotoCardsServer(photoCards photoCardReader) PhotoCardsServer {
	return PhotoCardsServer{
		photoCards: photoCards,
	}
}

func (s PhotoCardsServer) getV1PhotoCard(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := value.ParseID(r.PathValue("id"))
	if err != nil {
		return invalidArgument(err, errcodes.InvalidPhotoCardID, "Invalid photocard id")
	}

	card, err := s.photoCards.GetPhotoCard(ctx, id)
	if err != nil {
		return fmt.Errorf("photoCards.GetPhotoCard: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTPhotoCard(card))

	return nil
}

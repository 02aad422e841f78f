package server

import (
	"context"
	"fmt"
	"net/http"

	"git.appkode.ru/pub/go/failure"

	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/market"
	"pocamarket/internal/domain/value"
	"pocamarket/pkg/contextx"
	"pocamarket/pkg/errcodes"
	"pocamarket/pkg/httpx/reply"
	"pocamarket/pkg/httpx/req"
	"pocamarket/pkg/rest"
)

type salesCatalog interface {
	ListCheapest(ctx context.Context, page value.Page) ([]market.CatalogEntry, int, error)
	GetDetail(ctx context.Context, id int64) (market.ListingDetail, error)
	Cheapest(ctx context.Context, cardID int64) (entity.Listing, error)
	CreateListing(ctx context.Context, cardID, sellerID, price int64) (entity.Listing, error)
}

type settlementEngine interface {
	Settle(ctx context.Context, listingID, buyerID int64) (entity.Listing, error)
}

type SalesServer struct {
	catalog salesCatalog
	engine  settlementEngine
}

func NewSalesServer(catalog salesCatalog, engine settlementEngine) SalesServer {
	return SalesServer{
		catalog: catalog,
		engine:  engine,
	}
}

func (s SalesServer) getV1Sales(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	query := r.URL.Query()

	page, err := value.ParsePage(query.Get("page"), query.Get("page_size"))
	if err != nil {
		return fmt.Errorf("value.ParsePage: %w", err)
	}

	entries, total, err := s.catalog.ListCheapest(ctx, page)
	if err != nil {
		return fmt.Errorf("catalog.ListCheapest: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTSalePage(r.URL.Path, page, entries, total))

	return nil
}

func (s SalesServer) getV1Sale(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := value.ParseID(r.PathValue("id"))
	if err != nil {
		return invalidArgument(err, errcodes.InvalidListingID, "Invalid sale id")
	}

	detail, err := s.catalog.GetDetail(ctx, id)
	if err != nil {
		return fmt.Errorf("catalog.GetDetail: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTSaleDetail(detail))

	return nil
}

func (s SalesServer) postV1Sales(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.SaleCreate

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	listing, err := s.catalog.CreateListing(ctx, request.PhotoCard, request.Seller, request.Price)
	if err != nil {
		return fmt.Errorf("catalog.CreateListing: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTSaleCreated(listing))

	return nil
}

// postV1SaleOrder покупка продажи. Покупатель берётся из тела запроса,
// а если его нет, из заголовка X-User-Id.
func (s SalesServer) postV1SaleOrder(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := value.ParseID(r.PathValue("id"))
	if err != nil {
		return invalidArgument(err, errcodes.InvalidListingID, "Invalid sale id")
	}

	var request rest.Order

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	buyerID := request.Buyer
	if buyerID == 0 {
		userID, err := contextx.UserIDFromContext(ctx)
		if err != nil {
			return failure.NewInvalidArgumentError(
				fmt.Errorf("contextx.UserIDFromContext: %w", err).Error(),
				failure.WithCode(errcodes.InvalidUserID),
				failure.WithDescription("Buyer is required"),
			)
		}
		buyerID = userID.Int64()
	}

	sold, err := s.engine.Settle(ctx, id, buyerID)
	if err != nil {
		return fmt.Errorf("engine.Settle: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTOrderResult(sold))

	return nil
}

func (s SalesServer) getV1CheapestSale(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	cardID, err := value.ParseID(r.PathValue("cardId"))
	if err != nil {
		return invalidArgument(err, errcodes.InvalidPhotoCardID, "Invalid photocard id")
	}

	listing, err := s.catalog.Cheapest(ctx, cardID)
	if err != nil {
		return fmt.Errorf("catalog.Cheapest: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.CheapestSale{PhotoCard: cardID, SaleID: listing.ID})

	return nil
}

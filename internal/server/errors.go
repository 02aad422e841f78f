package server

import (
	"errors"

	"git.appkode.ru/pub/go/failure"

	"pocamarket/internal/domain"
	"pocamarket/internal/domain/service/market"
	"pocamarket/internal/domain/value"
	"pocamarket/pkg/errcodes"
	"pocamarket/pkg/httpx/reply"
)

// toFailure переводит ошибки домена в ошибки транспорта. Неизвестные ошибки
// остаются как есть и отдаются как 500.
func toFailure(err error) error {
	if se, ok := market.AsSettleError(err); ok {
		switch se.Kind {
		case market.KindNotFound:
			return failure.NewNotFoundErrorFromError(err,
				failure.WithCode(se.Code()),
				failure.WithDescription(se.Error()),
			)
		case market.KindRetryExhausted:
			return failure.NewConflictErrorFromError(err,
				failure.WithCode(se.Code()),
				failure.WithDescription(se.Error()),
			)
		default:
			// Отказы по правилам покупки отдаются как 400.
			return failure.NewInvalidArgumentErrorFromError(err,
				failure.WithCode(se.Code()),
				failure.WithDescription(se.Error()),
			)
		}
	}

	if errors.Is(err, value.ErrInvalidPage) {
		return failure.NewInvalidArgumentErrorFromError(err,
			failure.WithCode(errcodes.InvalidPaging),
			failure.WithDescription("Invalid page or page_size"),
		)
	}

	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		return err
	}

	switch appErr.Code {
	case errcodes.ListingNotFound, errcodes.PhotoCardNotFound, errcodes.UserNotFound,
		errcodes.MinPriceListingNotFound, errcodes.NotFound:
		return failure.NewNotFoundErrorFromError(err,
			failure.WithCode(appErr.Code),
			failure.WithDescription(appErr.Message),
		)
	case errcodes.InvalidListingPrice, errcodes.ValidationError:
		return failure.NewInvalidArgumentErrorFromError(err,
			failure.WithCode(appErr.Code),
			failure.WithDescription(appErr.Message),
		)
	case errcodes.EmailAlreadyInUse:
		return failure.NewConflictErrorFromError(err,
			failure.WithCode(appErr.Code),
			failure.WithDescription(appErr.Message),
		)
	default:
		return err
	}
}

func errorOptions(err error) []reply.ErrorOption {
	se, ok := market.AsSettleError(err)
	if !ok || se.Kind != market.KindNotMinimumPrice {
		return nil
	}

	return []reply.ErrorOption{reply.WithMinPriceSaleID(se.MinPriceListingID)}
}

func invalidArgument(err error, code failure.ErrorCode, description string) error {
	return failure.NewInvalidArgumentErrorFromError(err,
		failure.WithCode(code),
		failure.WithDescription(description),
	)
}

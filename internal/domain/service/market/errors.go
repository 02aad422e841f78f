package market

import (
	"errors"
	"fmt"

	"git.appkode.ru/pub/go/failure"

	"pocamarket/pkg/errcodes"
)

// FailureKind причина отказа в покупке.
type FailureKind string

const (
	KindNotFound          FailureKind = "not_found"
	KindInvalidState      FailureKind = "invalid_state"
	KindResolutionFailed  FailureKind = "resolution_failed"
	KindNotMinimumPrice   FailureKind = "not_minimum_price"
	KindSameParty         FailureKind = "same_party"
	KindInsufficientFunds FailureKind = "insufficient_funds"
	KindRetryExhausted    FailureKind = "retry_exhausted"
)

// Subject указывает, какая сущность не найдена при KindNotFound.
type Subject string

const (
	SubjectListing Subject = "listing"
	SubjectBuyer   Subject = "buyer"
)

// SettleError ожидаемый отказ в покупке. Это не сбой системы: каждая причина
// доходит до клиента отдельным кодом.
type SettleError struct {
	Kind              FailureKind
	Subject           Subject
	ListingID         int64
	BuyerID           int64
	MinPriceListingID int64
}

func (e *SettleError) Error() string {
	switch e.Kind {
	case KindNotFound:
		if e.Subject == SubjectBuyer {
			return fmt.Sprintf("buyer %d not found", e.BuyerID)
		}
		return fmt.Sprintf("listing %d not found", e.ListingID)
	case KindInvalidState:
		return fmt.Sprintf("listing %d is not currently for sale", e.ListingID)
	case KindResolutionFailed:
		return fmt.Sprintf("no minimum-price listing found for listing %d", e.ListingID)
	case KindNotMinimumPrice:
		return fmt.Sprintf("listing %d is not the minimum-price listing, buy %d instead", e.ListingID, e.MinPriceListingID)
	case KindSameParty:
		return fmt.Sprintf("buyer %d is the seller of listing %d", e.BuyerID, e.ListingID)
	case KindInsufficientFunds:
		return fmt.Sprintf("buyer %d has insufficient cash for listing %d", e.BuyerID, e.ListingID)
	case KindRetryExhausted:
		return fmt.Sprintf("listing %d is contended, try again", e.ListingID)
	default:
		return fmt.Sprintf("settlement of listing %d failed: %s", e.ListingID, e.Kind)
	}
}

// Code код ошибки для клиента.
func (e *SettleError) Code() failure.ErrorCode {
	switch e.Kind {
	case KindNotFound:
		if e.Subject == SubjectBuyer {
			return errcodes.BuyerNotFound
		}
		return errcodes.ListingNotFound
	case KindInvalidState:
		return errcodes.ListingNotOnSale
	case KindResolutionFailed:
		return errcodes.MinPriceListingNotFound
	case KindNotMinimumPrice:
		return errcodes.NotMinPriceListing
	case KindSameParty:
		return errcodes.SameBuyerAndSeller
	case KindInsufficientFunds:
		return errcodes.InsufficientCash
	case KindRetryExhausted:
		return errcodes.SettlementConflict
	default:
		return errcodes.InternalServerError
	}
}

// AsSettleError извлекает SettleError из цепочки.
func AsSettleError(err error) (*SettleError, bool) {
	var se *SettleError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsKind проверяет причину отказа.
func IsKind(err error, kind FailureKind) bool {
	se, ok := AsSettleError(err)
	return ok && se.Kind == kind
}

package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	Forbidden           failure.ErrorCode = "Forbidden"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"
	InvalidPaging       failure.ErrorCode = "InvalidPaging"
	InvalidUserID       failure.ErrorCode = "InvalidUserID"
	EmailAlreadyInUse   failure.ErrorCode = "EmailAlreadyInUse"

	// Каталог
	PhotoCardNotFound  failure.ErrorCode = "PhotoCardNotFound"
	InvalidPhotoCardID failure.ErrorCode = "InvalidPhotoCardID"
	UserNotFound       failure.ErrorCode = "UserNotFound"

	// Продажи
	ListingNotFound         failure.ErrorCode = "ListingNotFound"
	InvalidListingID        failure.ErrorCode = "InvalidListingID"
	InvalidListingPrice     failure.ErrorCode = "InvalidListingPrice"
	ListingNotOnSale        failure.ErrorCode = "ListingNotOnSale"
	MinPriceListingNotFound failure.ErrorCode = "MinPriceListingNotFound"
	NotMinPriceListing      failure.ErrorCode = "NotMinPriceListing"
	BuyerNotFound           failure.ErrorCode = "BuyerNotFound"
	SameBuyerAndSeller      failure.ErrorCode = "SameBuyerAndSeller"
	InsufficientCash        failure.ErrorCode = "InsufficientCash"
	SettlementConflict      failure.ErrorCode = "SettlementConflict"
	InvariantViolation      failure.ErrorCode = "InvariantViolation"
)

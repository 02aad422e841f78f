// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

import "time"

type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Artist struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Group *Group `json:"group"`
}

type PhotoCard struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	ArtistSet []Artist `json:"artist_set"`
}

// Sale элемент списка продаж
type Sale struct {
	ID        int64     `json:"id"`
	PhotoCard PhotoCard `json:"photocard"`
	Price     int64     `json:"price"`
}

// SaleDetail детальная информация о продаже
type SaleDetail struct {
	ID                   int64     `json:"id"`
	PhotoCard            PhotoCard `json:"photocard"`
	Price                int64     `json:"price"`
	Fee                  int64     `json:"fee"`
	TotalPrice           int64     `json:"total_price"`
	RecentOrderPriceList []int64   `json:"recent_order_price_list"`
}

type SaleCreate struct {
	PhotoCard int64 `json:"photocard" validate:"required,gt=0"`
	Seller    int64 `json:"seller" validate:"required,gt=0"`
	Price     int64 `json:"price" validate:"gte=0,lte=1000000000000"`
}

type SaleCreated struct {
	ID        int64     `json:"id"`
	State     int16     `json:"state"`
	PhotoCard int64     `json:"photocard"`
	Seller    int64     `json:"seller"`
	Price     int64     `json:"price"`
	Fee       int64     `json:"fee"`
	CreatedAt time.Time `json:"create_date"`
}

type Order struct {
	Buyer int64 `json:"buyer" validate:"omitempty,gt=0"`
}

type OrderResult struct {
	Detail string    `json:"detail"`
	SaleID int64     `json:"sale_id"`
	Buyer  int64     `json:"buyer"`
	SoldAt time.Time `json:"sold_date"`
}

type CheapestSale struct {
	PhotoCard int64 `json:"photocard"`
	SaleID    int64 `json:"sale_id"`
}

type SalePage struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Sale  `json:"results"`
}

type User struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Gender *string `json:"gender"`
	Birth  *string `json:"birth"`
	Cash   int64   `json:"cash"`
}

type UserCreate struct {
	Name     string  `json:"name" validate:"required,max=12"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	Gender   *string `json:"gender" validate:"omitempty,oneof=M F"`
	Birth    *string `json:"birth" validate:"omitempty,datetime=2006-01-02"`
}

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`

	// SupportID Идентификатор запроса для обращения в поддержку
	SupportID string `json:"supportId"`

	// MinPriceSaleID Идентификатор продажи с минимальной ценой (для повторной попытки покупки)
	MinPriceSaleID *int64 `json:"minPriceSaleId,omitempty"`
}

// ErrorCode Код ошибки
type ErrorCode string

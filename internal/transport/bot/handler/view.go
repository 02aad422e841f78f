package handler

import (
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/market"
)

const (
	salesPageSize = 10

	startMessage = "👋 <b>pocamarket</b>\n\n" +
		"/sales - витрина\n" +
		"/cheapest <code>ID</code> - самая дешёвая продажа карточки\n" +
		"/recent <code>ID</code> - последние сделки по карточке"

	salesEmpty         = "📭 Активных продаж нет"
	salesError         = "❌ Не удалось получить витрину"
	cardIDMissing      = "❌ Использование: /%s <code>ID</code>"
	cardIDInvalid      = "❌ Неверный формат ID"
	cheapestNotFound   = "📭 Нет активных продаж карточки <code>%d</code>"
	recentEmpty        = "📭 По карточке <code>%d</code> сделок ещё не было"
	salesPageTemplate  = "🛍 <b>Витрина</b> (Стр. %d/%d)\n\n"
	salesItemTemplate  = "🃏 <b>%s</b> - продажа <code>%d</code>: %d + %d = <b>%d</b>\n"
	cheapestTemplate   = "🏷 Карточка <code>%d</code>: продажа <code>%d</code>, цена %d, комиссия %d, итого <b>%d</b>"
	recentHeadTemplate = "📈 <b>Последние сделки карточки</b> <code>%d</code>\n\n"
)

func renderSalesPage(entries []market.CatalogEntry, page, totalPages int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(salesPageTemplate, page, totalPages))

	for _, e := range entries {
		sb.WriteString(fmt.Sprintf(salesItemTemplate,
			e.PhotoCard.Title,
			e.Listing.ID,
			e.Listing.Price,
			e.Listing.Fee,
			e.Listing.TotalPrice(),
		))
	}

	return sb.String()
}

func renderCheapest(l entity.Listing) string {
	return fmt.Sprintf(cheapestTemplate, l.CardID, l.ID, l.Price, l.Fee, l.TotalPrice())
}

func renderRecent(cardID int64, prices []int64) string {
	if len(prices) == 0 {
		return fmt.Sprintf(recentEmpty, cardID)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(recentHeadTemplate, cardID))

	for i, p := range prices {
		sb.WriteString(fmt.Sprintf("%d. %d\n", i+1, p))
	}

	return sb.String()
}

func totalPages(total, size int) int {
	return max(1, (total+size-1)/size)
}

func createPaginationKeyboard(page, totalPages int) *telego.InlineKeyboardMarkup {
	var buttons []telego.InlineKeyboardButton

	if page > 1 {
		buttons = append(buttons, tu.InlineKeyboardButton("⬅️").
			WithCallbackData(fmt.Sprintf("sales_page:%d", page-1)))
	}

	buttons = append(buttons, tu.InlineKeyboardButton(fmt.Sprintf("%d / %d", page, totalPages)).
		WithCallbackData("noop"))

	if page < totalPages {
		buttons = append(buttons, tu.InlineKeyboardButton("➡️").
			WithCallbackData(fmt.Sprintf("sales_page:%d", page+1)))
	}

	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(buttons...),
	)
}

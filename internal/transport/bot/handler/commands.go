package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"pocamarket/internal/domain/service/market"
	"pocamarket/internal/domain/value"
)

func (h *Handler) OnStart(ctx *th.Context, msg telego.Message) error {
	return h.sendHTML(ctx, msg.Chat.ID, startMessage)
}

func (h *Handler) OnSales(ctx *th.Context, msg telego.Message) error {
	text, keyboard, err := h.salesPage(ctx, 1)
	if err != nil {
		return h.sendHTML(ctx, msg.Chat.ID, salesError)
	}

	if keyboard == nil {
		return h.sendHTML(ctx, msg.Chat.ID, text)
	}

	_, err = ctx.Bot().SendMessage(ctx, &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: msg.Chat.ID},
		Text:        text,
		ParseMode:   telego.ModeHTML,
		ReplyMarkup: keyboard,
	})
	return err
}

func (h *Handler) OnSalesCallback(ctx *th.Context, query telego.CallbackQuery) error {
	var page int
	if _, err := fmt.Sscanf(query.Data, "sales_page:%d", &page); err != nil || page < 1 {
		page = 1
	}

	text, keyboard, err := h.salesPage(ctx, page)
	if err != nil {
		_ = ctx.Bot().AnswerCallbackQuery(ctx, tu.CallbackQuery(query.ID).
			WithText(salesError).WithShowAlert())
		return err
	}

	if query.Message != nil && keyboard != nil {
		_, _ = ctx.Bot().EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:      tu.ID(query.Message.GetChat().ID),
			MessageID:   query.Message.GetMessageID(),
			Text:        text,
			ParseMode:   telego.ModeHTML,
			ReplyMarkup: keyboard,
		})
	}

	return ctx.Bot().AnswerCallbackQuery(ctx, tu.CallbackQuery(query.ID))
}

func (h *Handler) salesPage(ctx *th.Context, page int) (string, *telego.InlineKeyboardMarkup, error) {
	entries, total, err := h.market.ListCheapest(ctx, value.Page{Number: page, Size: salesPageSize})
	if err != nil {
		return "", nil, err
	}

	if total == 0 {
		return salesEmpty, nil, nil
	}

	pages := totalPages(total, salesPageSize)
	if page > pages {
		page = pages
		if entries, _, err = h.market.ListCheapest(ctx, value.Page{Number: page, Size: salesPageSize}); err != nil {
			return "", nil, err
		}
	}

	return renderSalesPage(entries, page, pages), createPaginationKeyboard(page, pages), nil
}

func (h *Handler) OnCheapest(ctx *th.Context, msg telego.Message) error {
	cardID, errText := parseCardID(msg.Text, "cheapest")
	if errText != "" {
		return h.sendHTML(ctx, msg.Chat.ID, errText)
	}

	l, err := h.market.Cheapest(ctx, cardID)
	if err != nil {
		if errors.Is(err, market.ErrNoActiveListing) {
			return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(cheapestNotFound, cardID))
		}
		return h.sendHTML(ctx, msg.Chat.ID, "❌ "+err.Error())
	}

	return h.sendHTML(ctx, msg.Chat.ID, renderCheapest(l))
}

func (h *Handler) OnRecent(ctx *th.Context, msg telego.Message) error {
	cardID, errText := parseCardID(msg.Text, "recent")
	if errText != "" {
		return h.sendHTML(ctx, msg.Chat.ID, errText)
	}

	prices, err := h.market.RecentSettledPrices(ctx, cardID, market.RecentPricesLimit)
	if err != nil {
		return h.sendHTML(ctx, msg.Chat.ID, "❌ "+err.Error())
	}

	return h.sendHTML(ctx, msg.Chat.ID, renderRecent(cardID, prices))
}

// parseCardID разбирает "/command ID". Вторым значением возвращается текст ошибки для пользователя.
func parseCardID(text, command string) (int64, string) {
	args := strings.Fields(text)
	if len(args) < 2 {
		return 0, fmt.Sprintf(cardIDMissing, command)
	}

	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, cardIDInvalid
	}

	return id, ""
}

func (h *Handler) sendHTML(ctx *th.Context, chatID int64, text string) error {
	_, err := ctx.Bot().SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: telego.ModeHTML,
	})
	return err
}

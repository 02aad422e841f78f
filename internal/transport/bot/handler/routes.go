package handler

import (
	th "github.com/mymmrac/telego/telegohandler"

	"pocamarket/internal/transport/bot/middleware"
)

func (h *Handler) RegisterRoutes(bh *th.BotHandler, adminID int64) {
	adminGroup := bh.Group(th.AnyMessage())
	adminGroup.Use(middleware.AdminOnly(adminID))

	adminGroup.HandleMessage(h.OnStart, th.CommandEqual("start"))
	adminGroup.HandleMessage(h.OnSales, th.CommandEqual("sales"))
	adminGroup.HandleMessage(h.OnCheapest, th.CommandEqual("cheapest"))
	adminGroup.HandleMessage(h.OnRecent, th.CommandEqual("recent"))

	cbGroup := bh.Group(th.AnyCallbackQuery())
	cbGroup.Use(middleware.AdminOnly(adminID))

	cbGroup.HandleCallbackQuery(h.OnSalesCallback, th.CallbackDataPrefix("sales_page"))
}

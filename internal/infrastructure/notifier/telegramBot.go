package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"pocamarket/internal/worker"
)

// TelegramBot отправляет уведомления о продажах в чат.
type TelegramBot struct {
	bot    *telego.Bot
	chatID int64
}

func NewTelegramBot(token string, chatID int64) (*TelegramBot, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramBot{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (b *TelegramBot) NotifySale(ctx context.Context, sale worker.SaleSold) error {
	msg := tu.Message(
		tu.ID(b.chatID),
		FormatSale(sale),
	).WithParseMode(telego.ModeHTML)

	if _, err := b.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	logger(ctx).Debug("telegram sale message sent", "chat_id", b.chatID)

	return nil
}

// SendText отправляет простое текстовое сообщение.
func (b *TelegramBot) SendText(ctx context.Context, text string) error {
	msg := tu.Message(tu.ID(b.chatID), text)

	_, err := b.bot.SendMessage(ctx, msg)
	return err
}

func FormatSale(sale worker.SaleSold) string {
	return fmt.Sprintf(
		"🛒 <b>Продажа #%d</b>\n\n"+
			"🃏 <b>Карточка:</b> %d\n"+
			"👤 <b>Продавец:</b> %d\n"+
			"👤 <b>Покупатель:</b> %d\n"+
			"💰 <b>Цена:</b> %d\n"+
			"🧾 <b>Комиссия:</b> %d\n"+
			"💳 <b>Итого:</b> %d\n"+
			"🕒 %s",
		sale.ListingID,
		sale.CardID,
		sale.SellerID,
		sale.BuyerID,
		sale.Price,
		sale.Fee,
		sale.Total(),
		sale.SoldAt.UTC().Format(time.DateTime),
	)
}

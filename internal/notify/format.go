package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/safar/go-ticket-desk/internal/telegram"
)

const (
	ActionConfirm = "confirm"
	ActionReject  = "reject"
)

const timestampLayout = "02.01.2006 15:04:05"

// CallbackData encodes an admin action on an order as button payload.
func CallbackData(action string, orderID int64) string {
	return action + "_" + strconv.FormatInt(orderID, 10)
}

func actionKeyboard(orderID int64) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "✅ Confirm payment", CallbackData: CallbackData(ActionConfirm, orderID)},
			{Text: "❌ Reject", CallbackData: CallbackData(ActionReject, orderID)},
		}},
	}
}

// EscapeMarkdownV2 escapes every character MarkdownV2 treats as markup.
func EscapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeCode escapes text placed inside a `code` span, where only the
// backtick and backslash are special.
func escapeCode(s string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(s)
}

func formatOrderCard(order *models.Order, title, status string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "📋 *Order code:* `%s`\n\n", escapeCode(order.OrderCode))

	fmt.Fprintf(&b, "🎭 *Event:* %s\n", EscapeMarkdownV2(order.EventName))
	if order.CityName != "" {
		fmt.Fprintf(&b, "📍 *City:* %s\n", EscapeMarkdownV2(order.CityName))
	}
	if order.VenueAddress != "" {
		fmt.Fprintf(&b, "🏛 *Venue:* %s\n", EscapeMarkdownV2(order.VenueAddress))
	}
	fmt.Fprintf(&b, "📅 *Date:* %s\n", EscapeMarkdownV2(order.EventDate))
	fmt.Fprintf(&b, "⏰ *Time:* %s\n\n", EscapeMarkdownV2(order.EventTime))

	fmt.Fprintf(&b, "👤 *Buyer:* %s\n", EscapeMarkdownV2(order.CustomerName))
	fmt.Fprintf(&b, "📞 *Phone:* %s\n", EscapeMarkdownV2(order.CustomerPhone))
	if order.CustomerEmail != nil && *order.CustomerEmail != "" {
		fmt.Fprintf(&b, "📧 *Email:* %s\n", EscapeMarkdownV2(*order.CustomerEmail))
	}

	fmt.Fprintf(&b, "\n🎟 *Seats:* %d\n", order.SeatsCount)
	fmt.Fprintf(&b, "💰 *Total:* %s ₽\n\n", EscapeMarkdownV2(order.TotalPrice.String()))
	fmt.Fprintf(&b, "⏳ *Status:* %s", EscapeMarkdownV2(status))
	return b.String()
}

func formatChannelMessage(event ChannelEvent, order *models.Order) string {
	var title string
	switch event {
	case ChannelOrderCreated:
		title = "🆕 *New order*"
	case ChannelPaymentPending:
		title = "💳 *Payment pending confirmation*"
	case ChannelOrderConfirmed:
		title = "✅ *Payment confirmed*"
	case ChannelOrderRejected:
		title = "❌ *Order rejected*"
	default:
		title = "*" + EscapeMarkdownV2(string(event)) + "*"
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "📋 `%s`\n", escapeCode(order.OrderCode))
	fmt.Fprintf(&b, "🎭 %s\n", EscapeMarkdownV2(order.EventName))
	if order.CityName != "" || order.EventDate != "" {
		place := strings.TrimSpace(strings.Join([]string{order.CityName, order.EventDate, order.EventTime}, " "))
		fmt.Fprintf(&b, "📍 %s\n", EscapeMarkdownV2(place))
	}
	fmt.Fprintf(&b, "👤 %s\n", EscapeMarkdownV2(order.CustomerName))
	fmt.Fprintf(&b, "🎟 %d · 💰 %s ₽", order.SeatsCount, EscapeMarkdownV2(order.TotalPrice.String()))
	return b.String()
}

func formatFinalStatus(order *models.Order, actor string, at time.Time) string {
	var b strings.Builder
	switch order.Status {
	case models.OrderStatusConfirmed:
		b.WriteString("✅ *PAYMENT CONFIRMED*")
	case models.OrderStatusRejected:
		b.WriteString("❌ *ORDER REJECTED*")
	default:
		b.WriteString("⏳ *" + EscapeMarkdownV2(strings.ToUpper(order.Status)) + "*")
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "📋 *Order code:* `%s`\n", escapeCode(order.OrderCode))
	fmt.Fprintf(&b, "📅 *Processed:* %s", EscapeMarkdownV2(at.Format(timestampLayout)))
	if actor != "" {
		fmt.Fprintf(&b, "\n👤 *By:* %s", EscapeMarkdownV2(actor))
	}
	return b.String()
}

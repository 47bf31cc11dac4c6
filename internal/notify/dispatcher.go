package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-ticket-desk/internal/clock"
	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/safar/go-ticket-desk/internal/telegram"
	"go.uber.org/zap"
)

// ErrDeliveryFailed wraps every transport failure returned by the Dispatcher.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Transport is the subset of the bot API the Dispatcher sends through.
type Transport interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
	SendPhoto(ctx context.Context, req telegram.SendPhotoRequest) (*telegram.Message, error)
	EditMessageText(ctx context.Context, req telegram.EditMessageTextRequest) error
	EditMessageCaption(ctx context.Context, req telegram.EditMessageCaptionRequest) error
	AnswerCallbackQuery(ctx context.Context, req telegram.AnswerCallbackQueryRequest) error
}

type ChannelEvent string

const (
	ChannelOrderCreated   ChannelEvent = "created"
	ChannelPaymentPending ChannelEvent = "paid"
	ChannelOrderConfirmed ChannelEvent = "confirmed"
	ChannelOrderRejected  ChannelEvent = "rejected"
)

// MessageRef points at a message sent to the admin chat. Caption is set for
// photo messages, whose text can only be changed through their caption.
type MessageRef struct {
	ChatID    string
	MessageID int64
	Caption   bool
}

// Proof is an uploaded payment screenshot.
type Proof struct {
	Data     []byte
	FileName string
}

type Config struct {
	AdminChatID string
	ChannelID   string
	Location    *time.Location
}

type Dispatcher struct {
	transport   Transport
	adminChatID string
	channelID   string
	location    *time.Location
	clock       clock.Clock
	logger      *zap.Logger
}

// NewDispatcher builds a Dispatcher. A nil transport yields a disabled
// Dispatcher whose Enabled method reports false.
func NewDispatcher(transport Transport, cfg Config, clk clock.Clock, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{
		transport:   transport,
		adminChatID: cfg.AdminChatID,
		channelID:   cfg.ChannelID,
		location:    loc,
		clock:       clk,
		logger:      logger,
	}
}

func (d *Dispatcher) Enabled() bool {
	return d != nil && d.transport != nil && d.adminChatID != ""
}

// AdminChatID is the only chat whose interactions may change orders.
func (d *Dispatcher) AdminChatID() string {
	return d.adminChatID
}

// NotifyAdminNewOrder sends the new-order card with confirm and reject
// buttons to the admin chat.
func (d *Dispatcher) NotifyAdminNewOrder(ctx context.Context, order *models.Order) (MessageRef, error) {
	msg, err := d.transport.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      d.adminChatID,
		Text:        formatOrderCard(order, "🎫 *New order*", "awaiting payment"),
		ParseMode:   telegram.ParseModeMarkdownV2,
		ReplyMarkup: actionKeyboard(order.ID),
	})
	if err != nil {
		return MessageRef{}, fmt.Errorf("%w: admin new order %s: %w", ErrDeliveryFailed, order.OrderCode, err)
	}
	return MessageRef{ChatID: d.adminChatID, MessageID: msg.MessageID}, nil
}

// NotifyAdminPaymentProof tells the admin the buyer reports payment. With a
// proof the card is sent as the screenshot's caption.
func (d *Dispatcher) NotifyAdminPaymentProof(ctx context.Context, order *models.Order, proof *Proof) (MessageRef, error) {
	text := formatOrderCard(order, "💳 *Payment submitted*", "waiting for confirmation")

	if proof != nil && len(proof.Data) > 0 {
		msg, err := d.transport.SendPhoto(ctx, telegram.SendPhotoRequest{
			ChatID:      d.adminChatID,
			Photo:       proof.Data,
			FileName:    proof.FileName,
			Caption:     text,
			ParseMode:   telegram.ParseModeMarkdownV2,
			ReplyMarkup: actionKeyboard(order.ID),
		})
		if err != nil {
			return MessageRef{}, fmt.Errorf("%w: admin payment proof %s: %w", ErrDeliveryFailed, order.OrderCode, err)
		}
		return MessageRef{ChatID: d.adminChatID, MessageID: msg.MessageID, Caption: true}, nil
	}

	msg, err := d.transport.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      d.adminChatID,
		Text:        text + "\n\n_" + EscapeMarkdownV2("No screenshot attached") + "_",
		ParseMode:   telegram.ParseModeMarkdownV2,
		ReplyMarkup: actionKeyboard(order.ID),
	})
	if err != nil {
		return MessageRef{}, fmt.Errorf("%w: admin payment notice %s: %w", ErrDeliveryFailed, order.OrderCode, err)
	}
	return MessageRef{ChatID: d.adminChatID, MessageID: msg.MessageID}, nil
}

// NotifyChannel broadcasts event to the channel. Failures are logged and
// never returned.
func (d *Dispatcher) NotifyChannel(ctx context.Context, event ChannelEvent, order *models.Order) {
	if d.transport == nil || d.channelID == "" {
		return
	}

	_, err := d.transport.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:    d.channelID,
		Text:      formatChannelMessage(event, order),
		ParseMode: telegram.ParseModeMarkdownV2,
	})
	if err != nil {
		d.logger.Warn("channel notification failed",
			zap.String("event", string(event)),
			zap.String("order_code", order.OrderCode),
			zap.Error(err))
	}
}

// EditAdminMessage replaces the text (or caption) of ref and drops its
// buttons. An edit that changes nothing counts as success.
func (d *Dispatcher) EditAdminMessage(ctx context.Context, ref MessageRef, text string) error {
	var err error
	if ref.Caption {
		err = d.transport.EditMessageCaption(ctx, telegram.EditMessageCaptionRequest{
			ChatID:    ref.ChatID,
			MessageID: ref.MessageID,
			Caption:   text,
			ParseMode: telegram.ParseModeMarkdownV2,
		})
	} else {
		err = d.transport.EditMessageText(ctx, telegram.EditMessageTextRequest{
			ChatID:    ref.ChatID,
			MessageID: ref.MessageID,
			Text:      text,
			ParseMode: telegram.ParseModeMarkdownV2,
		})
	}
	if err != nil && !telegram.IsNotModified(err) {
		return fmt.Errorf("%w: edit admin message %d: %w", ErrDeliveryFailed, ref.MessageID, err)
	}
	return nil
}

func (d *Dispatcher) AnswerInteraction(ctx context.Context, interactionID, text string) error {
	err := d.transport.AnswerCallbackQuery(ctx, telegram.AnswerCallbackQueryRequest{
		CallbackQueryID: interactionID,
		Text:            text,
	})
	if err != nil {
		return fmt.Errorf("%w: answer interaction: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// FinalStatusText renders the admin message body for an order that reached
// a terminal state, stamped with the acting admin and the current time.
func (d *Dispatcher) FinalStatusText(order *models.Order, actor string) string {
	return formatFinalStatus(order, actor, d.clock.Now().In(d.location))
}

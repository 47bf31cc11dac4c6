package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/safar/go-ticket-desk/internal/notify"
	"github.com/safar/go-ticket-desk/internal/telegram"
	"go.uber.org/zap"
)

// Decider applies terminal transitions.
type Decider interface {
	Confirm(ctx context.Context, orderID int64) (TransitionResult, error)
	Reject(ctx context.Context, orderID int64) (TransitionResult, error)
}

// AdminMessages lists the admin messages sent for an order.
type AdminMessages interface {
	ListAdminMessages(ctx context.Context, orderID int64) ([]models.AdminMessage, error)
}

// Interaction is an admin button press.
type Interaction struct {
	ID        string
	Data      string
	ChatID    string
	MessageID int64
	// Caption is set when the source message is a photo.
	Caption bool
	Actor   string
}

// InteractionFromCallback extracts an Interaction from a bot callback query.
func InteractionFromCallback(q *telegram.CallbackQuery) Interaction {
	in := Interaction{
		ID:    q.ID,
		Data:  q.Data,
		Actor: actorName(q.From),
	}
	if q.Message != nil {
		in.ChatID = strconv.FormatInt(q.Message.Chat.ID, 10)
		in.MessageID = q.Message.MessageID
		in.Caption = len(q.Message.Photo) > 0
	}
	return in
}

func actorName(u telegram.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

const (
	toastConfirmed        = "✅ Payment confirmed!"
	toastRejected         = "❌ Order rejected"
	toastAlreadyConfirmed = "ℹ️ Order is already confirmed"
	toastAlreadyRejected  = "ℹ️ Order is already rejected"
	toastInvalidOrder     = "❌ Error: invalid order id"
	toastUnknownAction    = "❌ Unknown action"
	toastNotFound         = "❌ Order not found"
	toastUnauthorized     = "⛔ Not authorized"
	toastFailed           = "❌ Something went wrong, try again"
)

// Gateway turns admin actions into Controller transitions and keeps the
// admin chat and channel in step with the outcome.
type Gateway struct {
	orders   Decider
	messages AdminMessages
	notifier Notifier
	timeout  time.Duration
	logger   *zap.Logger
}

func NewGateway(orders Decider, messages AdminMessages, notifier Notifier, timeout time.Duration, logger *zap.Logger) *Gateway {
	if timeout <= 0 {
		timeout = defaultNotifyTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		orders:   orders,
		messages: messages,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger,
	}
}

// ParseAction splits callback data of the form <action>_<orderID>.
func ParseAction(data string) (action string, orderID int64, err error) {
	action, idPart, ok := strings.Cut(data, "_")
	if !ok {
		return "", 0, fmt.Errorf("malformed action %q", data)
	}
	if action != notify.ActionConfirm && action != notify.ActionReject {
		return action, 0, fmt.Errorf("unknown action %q", action)
	}
	orderID, err = strconv.ParseInt(idPart, 10, 64)
	if err != nil || orderID <= 0 {
		return action, 0, fmt.Errorf("invalid order id %q", idPart)
	}
	return action, orderID, nil
}

// HandleInteraction processes one admin tap and always acknowledges it. The
// returned text is the toast shown to the admin.
func (g *Gateway) HandleInteraction(ctx context.Context, in Interaction) string {
	toast := g.handle(ctx, in)
	if g.notifier != nil && g.notifier.Enabled() && in.ID != "" {
		if err := g.notifier.AnswerInteraction(ctx, in.ID, toast); err != nil {
			g.logger.Warn("answer interaction failed", zap.String("interaction_id", in.ID), zap.Error(err))
		}
	}
	return toast
}

func (g *Gateway) handle(ctx context.Context, in Interaction) string {
	action, orderID, err := ParseAction(in.Data)
	if err != nil {
		g.logger.Info("ignoring interaction", zap.String("data", in.Data), zap.Error(err))
		if action == notify.ActionConfirm || action == notify.ActionReject {
			return toastInvalidOrder
		}
		return toastUnknownAction
	}

	if g.notifier == nil || in.ChatID != g.notifier.AdminChatID() {
		g.logger.Warn("interaction from unauthorized chat",
			zap.String("chat_id", in.ChatID),
			zap.String("actor", in.Actor),
			zap.Int64("order_id", orderID))
		return toastUnauthorized
	}

	var source *notify.MessageRef
	if in.MessageID != 0 {
		source = &notify.MessageRef{ChatID: in.ChatID, MessageID: in.MessageID, Caption: in.Caption}
	}

	res, err := g.Apply(ctx, action, orderID, in.Actor, source)
	switch {
	case errors.Is(err, ErrNotFound):
		return toastNotFound
	case err != nil:
		g.logger.Error("apply interaction failed", zap.Int64("order_id", orderID), zap.Error(err))
		return toastFailed
	}

	return toastFor(res)
}

func toastFor(res TransitionResult) string {
	confirmed := res.Order.Status == models.OrderStatusConfirmed
	switch {
	case res.Changed && confirmed:
		return toastConfirmed
	case res.Changed:
		return toastRejected
	case confirmed:
		return toastAlreadyConfirmed
	default:
		return toastAlreadyRejected
	}
}

// Apply runs action against the order, rewrites every admin message sent for
// it to show the final state and broadcasts the decision on a first
// transition. source is the message the admin tapped, if any; it is edited
// even when it was never recorded.
func (g *Gateway) Apply(ctx context.Context, action string, orderID int64, actor string, source *notify.MessageRef) (TransitionResult, error) {
	var (
		res TransitionResult
		err error
	)
	switch action {
	case notify.ActionConfirm:
		res, err = g.orders.Confirm(ctx, orderID)
	case notify.ActionReject:
		res, err = g.orders.Reject(ctx, orderID)
	default:
		return TransitionResult{}, invalid("action", "unknown action %q", action)
	}
	if err != nil {
		return TransitionResult{}, err
	}

	if g.notifier == nil || !g.notifier.Enabled() {
		return res, nil
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	text := g.notifier.FinalStatusText(res.Order, actor)
	for _, ref := range g.messageRefs(sendCtx, orderID, source) {
		if err := g.notifier.EditAdminMessage(sendCtx, ref, text); err != nil {
			g.logger.Warn("edit admin message failed",
				zap.String("order_code", res.Order.OrderCode),
				zap.Int64("message_id", ref.MessageID),
				zap.Error(err))
		}
	}

	if res.Changed {
		event := notify.ChannelOrderConfirmed
		if res.Order.Status == models.OrderStatusRejected {
			event = notify.ChannelOrderRejected
		}
		g.notifier.NotifyChannel(sendCtx, event, res.Order)
	}

	return res, nil
}

// messageRefs returns source followed by every other recorded admin message
// for the order. Both the new-order card and the payment card carry action
// buttons, so all of them are finalized.
func (g *Gateway) messageRefs(ctx context.Context, orderID int64, source *notify.MessageRef) []notify.MessageRef {
	var refs []notify.MessageRef
	if source != nil {
		refs = append(refs, *source)
	}
	if g.messages == nil {
		return refs
	}

	recorded, err := g.messages.ListAdminMessages(ctx, orderID)
	if err != nil {
		g.logger.Warn("lookup admin messages failed", zap.Int64("order_id", orderID), zap.Error(err))
		return refs
	}
	for _, msg := range recorded {
		if source != nil && msg.ChatID == source.ChatID && msg.MessageID == source.MessageID {
			continue
		}
		refs = append(refs, notify.MessageRef{ChatID: msg.ChatID, MessageID: msg.MessageID, Caption: msg.IsPhoto()})
	}
	return refs
}

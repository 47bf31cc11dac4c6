package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/safar/go-ticket-desk/internal/notify"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repository is the Inventory Ledger and Order Store the Controller drives.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Reserve(ctx context.Context, item models.ItemRef, seats int) error
	Release(ctx context.Context, item models.ItemRef, seats int) error
	CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByCode(ctx context.Context, code string) (*models.Order, error)
	TransitionStatus(ctx context.Context, id int64, from []string, to, paymentStatus string) (bool, error)
	RecordAdminMessage(ctx context.Context, msg models.AdminMessage) error
	ListAdminMessages(ctx context.Context, orderID int64) ([]models.AdminMessage, error)
}

// Catalog resolves the sellable item an order is placed against.
type Catalog interface {
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*models.Event, error)
	GetActiveLinkByCode(ctx context.Context, code string) (*models.GeneratedLink, error)
}

// Notifier is the Notification Dispatcher.
type Notifier interface {
	Enabled() bool
	AdminChatID() string
	NotifyAdminNewOrder(ctx context.Context, order *models.Order) (notify.MessageRef, error)
	NotifyAdminPaymentProof(ctx context.Context, order *models.Order, proof *notify.Proof) (notify.MessageRef, error)
	NotifyChannel(ctx context.Context, event notify.ChannelEvent, order *models.Order)
	EditAdminMessage(ctx context.Context, ref notify.MessageRef, text string) error
	AnswerInteraction(ctx context.Context, interactionID, text string) error
	FinalStatusText(order *models.Order, actor string) string
}

type Options struct {
	// ReleaseOnReject returns an order's seats when it is rejected.
	ReleaseOnReject bool
	LinkUnitPrice   decimal.Decimal
	MaxSeats        int
	// NotifyTimeout bounds each outbound notification.
	NotifyTimeout time.Duration
}

const (
	minNameLen       = 2
	minPhoneLen      = 5
	maxCodeAttempts  = 5
	defaultMaxSeats  = 10
	defaultNotifyTTL = 10 * time.Second
)

// Controller is the order lifecycle state machine. It is the only component
// that mutates order state or inventory.
type Controller struct {
	repo     Repository
	catalog  Catalog
	notifier Notifier
	opts     Options
	logger   *zap.Logger
	newCode  CodeGenerator

	inflight sync.WaitGroup
}

func NewController(repo Repository, catalog Catalog, notifier Notifier, opts Options, logger *zap.Logger) *Controller {
	if opts.MaxSeats < 1 {
		opts.MaxSeats = defaultMaxSeats
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		newCode:  NewOrderCode,
	}
}

type CreateOrderInput struct {
	// Exactly one of EventID, EventSlug or LinkCode selects the item.
	EventID   int64
	EventSlug string
	LinkCode  string

	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	SeatsCount    int
	// TotalPrice overrides unit price × seats when set.
	TotalPrice *decimal.Decimal
}

// CreateOrder validates in, reserves seats and persists the order in one
// transaction, then notifies the admin and channel in the background.
func (c *Controller) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	in, err := c.validate(in)
	if err != nil {
		return nil, err
	}

	draft, err := c.draft(ctx, in)
	if err != nil {
		return nil, err
	}

	prefix := EventOrderPrefix
	if draft.Item.Kind == models.ItemLink {
		prefix = LinkOrderPrefix
	}

	var order *models.Order
	for attempt := 1; ; attempt++ {
		draft.OrderCode = c.newCode(prefix)
		order, err = c.reserveAndCreate(ctx, draft)
		if errors.Is(err, database.ErrDuplicateOrderCode) && attempt < maxCodeAttempts {
			c.logger.Debug("order code collision, retrying", zap.String("order_code", draft.OrderCode))
			continue
		}
		break
	}
	if err != nil {
		return nil, c.createFailure(draft, err)
	}

	c.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_code", order.OrderCode),
		zap.String("item_kind", string(draft.Item.Kind)),
		zap.Int64("item_id", draft.Item.ID),
		zap.Int("seats", order.SeatsCount))

	if c.notifier != nil && c.notifier.Enabled() {
		c.dispatch("admin new order", order, func(ctx context.Context) error {
			ref, err := c.notifier.NotifyAdminNewOrder(ctx, order)
			if err != nil {
				return err
			}
			return c.recordAdminMessage(ctx, order, ref, models.AdminMessageNewOrder)
		})
		c.dispatch("channel created", order, func(ctx context.Context) error {
			c.notifier.NotifyChannel(ctx, notify.ChannelOrderCreated, order)
			return nil
		})
	}

	return order, nil
}

func (c *Controller) validate(in CreateOrderInput) (CreateOrderInput, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.EventSlug = strings.TrimSpace(in.EventSlug)
	in.LinkCode = strings.TrimSpace(in.LinkCode)

	selectors := 0
	for _, set := range []bool{in.EventID != 0, in.EventSlug != "", in.LinkCode != ""} {
		if set {
			selectors++
		}
	}
	switch {
	case selectors == 0:
		return in, invalid("event", "an event id, event slug or link code is required")
	case selectors > 1:
		return in, invalid("event", "only one of event id, event slug or link code may be given")
	case in.EventID < 0:
		return in, invalid("event_id", "must be positive")
	}

	if len([]rune(in.CustomerName)) < minNameLen {
		return in, invalid("customer_name", "must be at least %d characters", minNameLen)
	}
	if len([]rune(in.CustomerPhone)) < minPhoneLen {
		return in, invalid("customer_phone", "must be at least %d characters", minPhoneLen)
	}
	if in.SeatsCount < 1 || in.SeatsCount > c.opts.MaxSeats {
		return in, invalid("seats_count", "must be between 1 and %d", c.opts.MaxSeats)
	}
	if in.TotalPrice != nil && in.TotalPrice.IsNegative() {
		return in, invalid("total_price", "must not be negative")
	}
	return in, nil
}

func (c *Controller) draft(ctx context.Context, in CreateOrderInput) (models.OrderDraft, error) {
	draft := models.OrderDraft{
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		SeatsCount:    in.SeatsCount,
	}
	if in.CustomerEmail != "" {
		email := in.CustomerEmail
		draft.CustomerEmail = &email
	}

	var unitPrice decimal.Decimal
	if in.LinkCode != "" {
		link, err := c.catalog.GetActiveLinkByCode(ctx, in.LinkCode)
		if err != nil {
			return draft, classify(err)
		}
		templateID, code := link.EventTemplateID, link.LinkCode
		draft.Item = models.ItemRef{Kind: models.ItemLink, ID: link.ID}
		draft.EventTemplateID = &templateID
		draft.LinkCode = &code
		unitPrice = c.opts.LinkUnitPrice
	} else {
		var (
			event *models.Event
			err   error
		)
		if in.EventSlug != "" {
			event, err = c.catalog.GetEventBySlug(ctx, in.EventSlug)
		} else {
			event, err = c.catalog.GetEvent(ctx, in.EventID)
		}
		if err != nil {
			return draft, classify(err)
		}
		draft.Item = models.ItemRef{Kind: models.ItemEvent, ID: event.ID}
		draft.AdminID = event.AdminID
		unitPrice = event.Price
	}

	if in.TotalPrice != nil {
		draft.TotalPrice = *in.TotalPrice
	} else {
		draft.TotalPrice = unitPrice.Mul(decimal.NewFromInt(int64(in.SeatsCount)))
	}
	return draft, nil
}

func (c *Controller) reserveAndCreate(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	var order *models.Order
	err := c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.Reserve(txCtx, draft.Item, draft.SeatsCount); err != nil {
			return err
		}
		created, err := c.repo.CreateOrder(txCtx, draft)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	return order, err
}

func (c *Controller) createFailure(draft models.OrderDraft, err error) error {
	if isNotFound(err) || errors.Is(err, database.ErrInsufficientSeats) {
		return classify(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	fields := []zap.Field{
		zap.String("item_kind", string(draft.Item.Kind)),
		zap.Int64("item_id", draft.Item.ID),
		zap.Int("seats", draft.SeatsCount),
		zap.Error(err),
	}
	if errors.Is(err, database.ErrRollbackFailed) {
		c.logger.Error("create order rollback failed, inventory may be leaked", fields...)
	} else {
		c.logger.Error("create order failed", fields...)
	}
	return fmt.Errorf("%w: create order: %w", ErrPersistenceFault, err)
}

// MarkPaid moves a pending order to waiting_confirmation and sends the admin
// the payment proof. Orders past pending are returned unchanged and nothing
// is sent.
func (c *Controller) MarkPaid(ctx context.Context, code string, proof *notify.Proof) (*models.Order, error) {
	order, err := c.repo.GetOrderByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, classify(err)
	}

	changed, err := c.repo.TransitionStatus(ctx, order.ID,
		[]string{models.OrderStatusPending},
		models.OrderStatusWaitingConfirmation,
		models.PaymentStatusPending)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	order, err = c.repo.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, classify(err)
	}
	if !changed {
		return order, nil
	}

	c.logger.Info("order marked paid",
		zap.String("order_code", order.OrderCode),
		zap.Bool("proof", proof != nil))

	if c.notifier != nil && c.notifier.Enabled() {
		c.dispatch("admin payment proof", order, func(ctx context.Context) error {
			ref, err := c.notifier.NotifyAdminPaymentProof(ctx, order, proof)
			if err != nil {
				return err
			}
			kind := models.AdminMessagePaymentNotice
			if ref.Caption {
				kind = models.AdminMessagePaymentProof
			}
			return c.recordAdminMessage(ctx, order, ref, kind)
		})
		c.dispatch("channel paid", order, func(ctx context.Context) error {
			c.notifier.NotifyChannel(ctx, notify.ChannelPaymentPending, order)
			return nil
		})
	}

	return order, nil
}

// TransitionResult is the fresh state of an order after Confirm or Reject.
// Changed is false when the order was already terminal.
type TransitionResult struct {
	Order   *models.Order
	Changed bool
}

func (c *Controller) Confirm(ctx context.Context, orderID int64) (TransitionResult, error) {
	return c.finish(ctx, orderID, models.OrderStatusConfirmed, models.PaymentStatusConfirmed)
}

func (c *Controller) Reject(ctx context.Context, orderID int64) (TransitionResult, error) {
	return c.finish(ctx, orderID, models.OrderStatusRejected, models.PaymentStatusPending)
}

func (c *Controller) finish(ctx context.Context, orderID int64, status, paymentStatus string) (TransitionResult, error) {
	var changed bool
	err := c.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		changed, err = c.repo.TransitionStatus(txCtx, orderID,
			[]string{models.OrderStatusPending, models.OrderStatusWaitingConfirmation},
			status, paymentStatus)
		if err != nil {
			return err
		}
		if !changed || status != models.OrderStatusRejected || !c.opts.ReleaseOnReject {
			return nil
		}

		order, err := c.repo.GetOrder(txCtx, orderID)
		if err != nil {
			return err
		}
		return c.repo.Release(txCtx, order.Item(), order.SeatsCount)
	})
	if err != nil {
		if errors.Is(err, database.ErrRollbackFailed) {
			c.logger.Error("order transition rollback failed",
				zap.Int64("order_id", orderID),
				zap.String("status", status),
				zap.Error(err))
			return TransitionResult{}, fmt.Errorf("%w: %w", ErrPersistenceFault, err)
		}
		return TransitionResult{}, fmt.Errorf("%s order %d: %w", status, orderID, classify(err))
	}

	order, err := c.repo.GetOrder(ctx, orderID)
	if err != nil {
		return TransitionResult{}, classify(err)
	}

	if changed {
		c.logger.Info("order finalized",
			zap.Int64("order_id", orderID),
			zap.String("order_code", order.OrderCode),
			zap.String("status", order.Status),
			zap.Bool("seats_released", status == models.OrderStatusRejected && c.opts.ReleaseOnReject))
	}

	return TransitionResult{Order: order, Changed: changed}, nil
}

// Order returns the current state of the order with code.
func (c *Controller) Order(ctx context.Context, code string) (*models.Order, error) {
	order, err := c.repo.GetOrderByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, classify(err)
	}
	return order, nil
}

// Wait blocks until background notifications finish or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) dispatch(name string, order *models.Order, fn func(ctx context.Context) error) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.NotifyTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			c.logger.Warn("notification failed",
				zap.String("notification", name),
				zap.String("order_code", order.OrderCode),
				zap.Error(err))
		}
	}()
}

func (c *Controller) recordAdminMessage(ctx context.Context, order *models.Order, ref notify.MessageRef, kind string) error {
	err := c.repo.RecordAdminMessage(ctx, models.AdminMessage{
		OrderID:   order.ID,
		ChatID:    ref.ChatID,
		MessageID: ref.MessageID,
		Kind:      kind,
	})
	if err != nil {
		return fmt.Errorf("record admin message: %w", err)
	}
	return nil
}

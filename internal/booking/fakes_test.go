package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/safar/go-ticket-desk/internal/telegram"
)

// fakeRepo is an in-memory Repository and Catalog. WithTx serializes
// transactions and restores inventory and orders when fn fails.
type fakeRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seats    map[models.ItemRef]int
	events   map[int64]*models.Event
	links    map[string]*models.GeneratedLink
	orders   map[int64]*models.Order
	nextID   int64
	messages []models.AdminMessage

	createErr   error
	rollbackErr error
	dupCodes    int
	codesSeen   []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		seats:  map[models.ItemRef]int{},
		events: map[int64]*models.Event{},
		links:  map[string]*models.GeneratedLink{},
		orders: map[int64]*models.Order{},
	}
}

type fakeTxKey struct{}

func (r *fakeRepo) addEvent(event models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = &event
	r.seats[models.ItemRef{Kind: models.ItemEvent, ID: event.ID}] = event.AvailableSeats
}

func (r *fakeRepo) addLink(link models.GeneratedLink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[link.LinkCode] = &link
	r.seats[models.ItemRef{Kind: models.ItemLink, ID: link.ID}] = link.AvailableSeats
}

func (r *fakeRepo) available(item models.ItemRef) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seats[item]
}

func (r *fakeRepo) orderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *fakeRepo) adminMessages() []models.AdminMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.messages)
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	seats := make(map[models.ItemRef]int, len(r.seats))
	for k, v := range r.seats {
		seats[k] = v
	}
	orders := make(map[int64]*models.Order, len(r.orders))
	for k, v := range r.orders {
		copied := *v
		orders[k] = &copied
	}
	r.mu.Unlock()

	err := fn(context.WithValue(ctx, fakeTxKey{}, true))
	if err == nil {
		return nil
	}
	if r.rollbackErr != nil {
		return fmt.Errorf("%w: %v (original error: %w)", database.ErrRollbackFailed, r.rollbackErr, err)
	}

	r.mu.Lock()
	r.seats = seats
	r.orders = orders
	r.mu.Unlock()
	return err
}

func (r *fakeRepo) Reserve(_ context.Context, item models.ItemRef, seats int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.seats[item]
	if !ok {
		if item.Kind == models.ItemLink {
			return database.ErrLinkNotFound
		}
		return database.ErrEventNotFound
	}
	if current < seats {
		return database.ErrInsufficientSeats
	}
	r.seats[item] = current - seats
	return nil
}

func (r *fakeRepo) Release(_ context.Context, item models.ItemRef, seats int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seats[item] += seats
	return nil
}

func (r *fakeRepo) CreateOrder(_ context.Context, draft models.OrderDraft) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codesSeen = append(r.codesSeen, draft.OrderCode)
	if r.dupCodes > 0 {
		r.dupCodes--
		return nil, database.ErrDuplicateOrderCode
	}
	if r.createErr != nil {
		return nil, r.createErr
	}

	r.nextID++
	order := &models.Order{
		ID:              r.nextID,
		OrderCode:       draft.OrderCode,
		EventTemplateID: draft.EventTemplateID,
		LinkCode:        draft.LinkCode,
		AdminID:         draft.AdminID,
		CustomerName:    draft.CustomerName,
		CustomerPhone:   draft.CustomerPhone,
		CustomerEmail:   draft.CustomerEmail,
		SeatsCount:      draft.SeatsCount,
		TotalPrice:      draft.TotalPrice,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		CreatedAt:       time.Now(),
	}
	id := draft.Item.ID
	switch draft.Item.Kind {
	case models.ItemEvent:
		order.EventID = &id
		if event, ok := r.events[id]; ok {
			order.EventName = event.Name
		}
	case models.ItemLink:
		order.LinkID = &id
	}
	r.orders[order.ID] = order

	copied := *order
	return &copied, nil
}

func (r *fakeRepo) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *fakeRepo) GetOrderByCode(_ context.Context, code string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.OrderCode == code {
			copied := *order
			return &copied, nil
		}
	}
	return nil, database.ErrOrderNotFound
}

func (r *fakeRepo) TransitionStatus(_ context.Context, id int64, from []string, to, paymentStatus string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || !slices.Contains(from, order.Status) {
		return false, nil
	}
	order.Status = to
	order.PaymentStatus = paymentStatus
	return true, nil
}

func (r *fakeRepo) RecordAdminMessage(_ context.Context, msg models.AdminMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeRepo) ListAdminMessages(_ context.Context, orderID int64) ([]models.AdminMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AdminMessage
	for _, msg := range r.messages {
		if msg.OrderID == orderID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetEvent(_ context.Context, id int64) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, database.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeRepo) GetEventBySlug(_ context.Context, slug string) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.Slug == slug {
			copied := *event
			return &copied, nil
		}
	}
	return nil, database.ErrEventNotFound
}

func (r *fakeRepo) GetActiveLinkByCode(_ context.Context, code string) (*models.GeneratedLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[code]
	if !ok || !link.IsActive {
		return nil, database.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

// fakeTransport records bot API calls.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []telegram.SendMessageRequest
	photos   []telegram.SendPhotoRequest
	edits    []telegram.EditMessageTextRequest
	captions []telegram.EditMessageCaptionRequest
	answers  []telegram.AnswerCallbackQueryRequest
	nextID   int64
	sendErr  error
}

func (f *fakeTransport) SendMessage(_ context.Context, req telegram.SendMessageRequest) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, req)
	f.nextID++
	return &telegram.Message{MessageID: f.nextID}, nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, req telegram.SendPhotoRequest) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.photos = append(f.photos, req)
	f.nextID++
	return &telegram.Message{MessageID: f.nextID}, nil
}

func (f *fakeTransport) EditMessageText(_ context.Context, req telegram.EditMessageTextRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, req)
	return nil
}

func (f *fakeTransport) EditMessageCaption(_ context.Context, req telegram.EditMessageCaptionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captions = append(f.captions, req)
	return nil
}

func (f *fakeTransport) AnswerCallbackQuery(_ context.Context, req telegram.AnswerCallbackQueryRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, req)
	return nil
}

func (f *fakeTransport) sentTo(chatID string) []telegram.SendMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []telegram.SendMessageRequest
	for _, req := range f.sent {
		if req.ChatID == chatID {
			out = append(out, req)
		}
	}
	return out
}

var errBoom = errors.New("boom")

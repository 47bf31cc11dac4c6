package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/safar/go-ticket-desk/internal/auth"
	"github.com/safar/go-ticket-desk/internal/booking"
	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/safar/go-ticket-desk/internal/notify"
	"github.com/safar/go-ticket-desk/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testToken = "good-token"

var errBoom = errors.New("boom")

type fakeOrders struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	createErr error
	lastInput booking.CreateOrderInput
	lastProof *notify.Proof
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string]*models.Order{}}
}

func (f *fakeOrders) add(o *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.OrderCode] = o
}

func (f *fakeOrders) CreateOrder(_ context.Context, in booking.CreateOrderInput) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastInput = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	o := &models.Order{
		ID:            1,
		OrderCode:     "TKNEW123",
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		SeatsCount:    in.SeatsCount,
		TotalPrice:    decimal.NewFromInt(1000).Mul(decimal.NewFromInt(int64(in.SeatsCount))),
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	f.orders[o.OrderCode] = o
	return o, nil
}

func (f *fakeOrders) MarkPaid(_ context.Context, code string, proof *notify.Proof) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[code]
	if !ok {
		return nil, booking.ErrNotFound
	}
	f.lastProof = proof
	if o.Status == models.OrderStatusPending {
		o.Status = models.OrderStatusWaitingConfirmation
	}
	return o, nil
}

func (f *fakeOrders) Order(_ context.Context, code string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[code]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return o, nil
}

type decision struct {
	action  string
	orderID int64
	actor   string
}

type fakeDecisions struct {
	mu           sync.Mutex
	applied      []decision
	interactions []booking.Interaction
	orders       *fakeOrders
	toast        string
}

func (f *fakeDecisions) Apply(_ context.Context, action string, orderID int64, actor string, _ *notify.MessageRef) (booking.TransitionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, decision{action: action, orderID: orderID, actor: actor})

	for _, o := range f.orders.orders {
		if o.ID != orderID {
			continue
		}
		if o.IsTerminal() {
			return booking.TransitionResult{Order: o}, nil
		}
		o.Status = models.OrderStatusRejected
		if action == notify.ActionConfirm {
			o.Status = models.OrderStatusConfirmed
			o.PaymentStatus = models.PaymentStatusConfirmed
		}
		return booking.TransitionResult{Order: o, Changed: true}, nil
	}
	return booking.TransitionResult{}, booking.ErrNotFound
}

func (f *fakeDecisions) HandleInteraction(_ context.Context, in booking.Interaction) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactions = append(f.interactions, in)
	return f.toast
}

type fakeAuth struct {
	registerErr error
	loginErr    error
}

func (f *fakeAuth) Register(_ context.Context, username, displayName, _ string) (*auth.Session, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &auth.Session{Token: testToken, Admin: &models.Admin{ID: 7, Username: username, DisplayName: displayName}}, nil
}

func (f *fakeAuth) Login(_ context.Context, username, _ string) (*auth.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &auth.Session{Token: testToken, Admin: &models.Admin{ID: 7, Username: username}}, nil
}

func (f *fakeAuth) Authenticate(token string) (*auth.Claims, error) {
	if token != testToken {
		return nil, auth.ErrInvalidSignature
	}
	return &auth.Claims{AdminID: 7, Username: "alice"}, nil
}

type fakeCatalog struct {
	err error
}

func (f *fakeCatalog) CreateEvent(_ context.Context, adminID int64, event models.Event) (*models.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	event.ID = 11
	event.AdminID = &adminID
	event.Slug = "created-abc123"
	return &event, nil
}

// Event 1 belongs to the caller, event 2 to another admin, event 3 has orders.
func (f *fakeCatalog) UpdateEvent(_ context.Context, adminID int64, event models.Event) (*models.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch event.ID {
	case 1, 3:
		event.AdminID = &adminID
		event.Slug = "jazz-abc123"
		return &event, nil
	case 2:
		return nil, booking.ErrForbidden
	}
	return nil, database.ErrEventNotFound
}

func (f *fakeCatalog) DeleteEvent(_ context.Context, _, eventID int64) error {
	switch eventID {
	case 1:
		return nil
	case 2:
		return booking.ErrForbidden
	case 3:
		return database.ErrReferenced
	}
	return database.ErrEventNotFound
}

func (f *fakeCatalog) UpdateLink(_ context.Context, id int64, venueAddress string, availableSeats int) (*models.GeneratedLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id != 5 {
		return nil, database.ErrLinkNotFound
	}
	return &models.GeneratedLink{ID: id, VenueAddress: venueAddress, AvailableSeats: availableSeats, IsActive: true}, nil
}

func (f *fakeCatalog) CreateLink(_ context.Context, link models.GeneratedLink) (*models.GeneratedLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	link.ID = 12
	link.LinkCode = "LNK-NEWONE"
	return &link, nil
}

type fakeStore struct {
	pingErr   error
	deleteErr error
	settings  map[int64]models.PaymentSettings
	links     map[int64]bool
	templates map[int64]bool
	images    map[int64][]models.TemplateImage
	addresses map[int64][]models.TemplateAddress
	cursors   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings:  map[int64]models.PaymentSettings{},
		links:     map[int64]bool{5: true},
		templates: map[int64]bool{3: true},
		images:    map[int64][]models.TemplateImage{},
		addresses: map[int64][]models.TemplateAddress{},
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListEvents(_ context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return &store.OffsetPage{Items: []models.Event{{ID: 1, Name: "Jazz"}}, Total: 1, Page: page, PageSize: pageSize, TotalPages: 1}, nil
}

func (f *fakeStore) ListEventsByAdmin(_ context.Context, adminID int64) ([]models.Event, error) {
	return []models.Event{{ID: 1, AdminID: &adminID, Name: "Jazz"}}, nil
}

func (f *fakeStore) GetEvent(_ context.Context, id int64) (*models.Event, error) {
	if id != 1 {
		return nil, database.ErrEventNotFound
	}
	return &models.Event{ID: 1, Name: "Jazz", Slug: "jazz-abc123"}, nil
}

func (f *fakeStore) GetEventBySlug(_ context.Context, slug string) (*models.Event, error) {
	if slug != "jazz-abc123" {
		return nil, database.ErrEventNotFound
	}
	return &models.Event{ID: 1, Name: "Jazz", Slug: slug}, nil
}

func (f *fakeStore) ListCities(context.Context) ([]models.City, error) {
	return []models.City{{ID: 1, Name: "Kazan"}}, nil
}

func (f *fakeStore) CreateCity(_ context.Context, name string) (*models.City, error) {
	return &models.City{ID: 2, Name: name}, nil
}

func (f *fakeStore) DeleteCity(_ context.Context, id int64) error {
	if id != 1 {
		return database.ErrCityNotFound
	}
	return f.deleteErr
}

func (f *fakeStore) ListTemplates(context.Context) ([]models.EventTemplate, error) {
	return []models.EventTemplate{}, nil
}

func (f *fakeStore) CreateTemplate(_ context.Context, tpl models.EventTemplate) (*models.EventTemplate, error) {
	tpl.ID = 3
	return &tpl, nil
}

func (f *fakeStore) UpdateTemplate(_ context.Context, tpl models.EventTemplate) (*models.EventTemplate, error) {
	active, ok := f.templates[tpl.ID]
	if !ok {
		return nil, database.ErrTemplateNotFound
	}
	tpl.IsActive = active
	return &tpl, nil
}

func (f *fakeStore) SetTemplateActive(_ context.Context, id int64, active bool) error {
	if _, ok := f.templates[id]; !ok {
		return database.ErrTemplateNotFound
	}
	f.templates[id] = active
	return nil
}

func (f *fakeStore) ListTemplateImages(_ context.Context, templateID int64) ([]models.TemplateImage, error) {
	return append([]models.TemplateImage{}, f.images[templateID]...), nil
}

func (f *fakeStore) AddTemplateImage(_ context.Context, templateID int64, imageURL string) (*models.TemplateImage, error) {
	if _, ok := f.templates[templateID]; !ok {
		return nil, database.ErrTemplateNotFound
	}
	img := models.TemplateImage{
		ID:              int64(100 + len(f.images[templateID])),
		EventTemplateID: templateID,
		ImageURL:        imageURL,
		SortOrder:       len(f.images[templateID]),
	}
	f.images[templateID] = append(f.images[templateID], img)
	return &img, nil
}

func (f *fakeStore) DeleteTemplateImage(_ context.Context, templateID, imageID int64) error {
	images := f.images[templateID]
	for i, img := range images {
		if img.ID == imageID {
			f.images[templateID] = append(images[:i], images[i+1:]...)
			return nil
		}
	}
	return database.ErrImageNotFound
}

func (f *fakeStore) ListTemplateAddresses(_ context.Context, templateID int64) ([]models.TemplateAddress, error) {
	return append([]models.TemplateAddress{}, f.addresses[templateID]...), nil
}

// Only city 1 exists.
func (f *fakeStore) ReplaceTemplateAddresses(_ context.Context, templateID int64, addresses []models.TemplateAddress) error {
	if _, ok := f.templates[templateID]; !ok {
		return database.ErrTemplateNotFound
	}
	for _, a := range addresses {
		if a.CityID != 1 {
			return database.ErrCityNotFound
		}
	}
	f.addresses[templateID] = addresses
	return nil
}

func (f *fakeStore) DeleteLink(_ context.Context, id int64) error {
	if _, ok := f.links[id]; !ok {
		return database.ErrLinkNotFound
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.links, id)
	return nil
}

func (f *fakeStore) ListLinks(context.Context) ([]models.GeneratedLink, error) {
	return []models.GeneratedLink{}, nil
}

func (f *fakeStore) GetActiveLinkByCode(_ context.Context, code string) (*models.GeneratedLink, error) {
	if code != "LNK-ABCDEF" || !f.links[5] {
		return nil, database.ErrLinkNotFound
	}
	return &models.GeneratedLink{ID: 5, LinkCode: code, IsActive: true}, nil
}

func (f *fakeStore) SetLinkActive(_ context.Context, id int64, active bool) error {
	if _, ok := f.links[id]; !ok {
		return database.ErrLinkNotFound
	}
	f.links[id] = active
	return nil
}

func (f *fakeStore) PaymentSettingsForOrder(_ context.Context, order *models.Order) (*models.PaymentSettings, error) {
	if order.AdminID != nil {
		s := f.settings[*order.AdminID]
		return &s, nil
	}
	return &models.PaymentSettings{}, nil
}

func (f *fakeStore) GetAdminPaymentSettings(_ context.Context, adminID int64) (*models.PaymentSettings, error) {
	s := f.settings[adminID]
	return &s, nil
}

func (f *fakeStore) UpsertAdminPaymentSettings(_ context.Context, adminID int64, settings models.PaymentSettings) error {
	f.settings[adminID] = settings
	return nil
}

func (f *fakeStore) ListOrdersCursor(_ context.Context, _ int64, cursor string, limit int) (*store.CursorPage, error) {
	f.cursors = append(f.cursors, cursor)
	return &store.CursorPage{Items: make([]models.Order, 0, limit)}, nil
}

type harness struct {
	orders    *fakeOrders
	decisions *fakeDecisions
	authn     *fakeAuth
	catalog   *fakeCatalog
	store     *fakeStore
	handler   http.Handler
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	orders := newFakeOrders()
	h := &harness{
		orders:    orders,
		decisions: &fakeDecisions{orders: orders, toast: "Payment confirmed"},
		authn:     &fakeAuth{},
		catalog:   &fakeCatalog{},
		store:     newFakeStore(),
	}
	srv := NewServer(h.orders, h.decisions, h.authn, h.catalog, h.store, cfg, zap.NewNop())
	h.handler = srv.Handler()
	return h
}

func (h *harness) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

var bearer = map[string]string{"Authorization": "Bearer " + testToken}

func int64Ptr(v int64) *int64 { return &v }

func pendingOrder(id int64, code string, adminID *int64) *models.Order {
	return &models.Order{
		ID:            id,
		OrderCode:     code,
		AdminID:       adminID,
		EventName:     "Jazz Night",
		CustomerName:  "Ivan",
		SeatsCount:    2,
		TotalPrice:    decimal.NewFromInt(2000),
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		CreatedAt:     time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
}

package api

import (
	"context"
	"net/http"

	"github.com/safar/go-ticket-desk/internal/auth"
	"github.com/safar/go-ticket-desk/internal/booking"
	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/safar/go-ticket-desk/internal/notify"
	"github.com/safar/go-ticket-desk/internal/store"
	"go.uber.org/zap"
)

// Orders is the buyer-facing side of the order lifecycle.
type Orders interface {
	CreateOrder(ctx context.Context, in booking.CreateOrderInput) (*models.Order, error)
	MarkPaid(ctx context.Context, code string, proof *notify.Proof) (*models.Order, error)
	Order(ctx context.Context, code string) (*models.Order, error)
}

// Decisions applies admin confirm/reject actions.
type Decisions interface {
	Apply(ctx context.Context, action string, orderID int64, actor string, source *notify.MessageRef) (booking.TransitionResult, error)
	HandleInteraction(ctx context.Context, in booking.Interaction) string
}

type Authenticator interface {
	Register(ctx context.Context, username, displayName, password string) (*auth.Session, error)
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Authenticate(token string) (*auth.Claims, error)
}

type Catalog interface {
	CreateEvent(ctx context.Context, adminID int64, event models.Event) (*models.Event, error)
	UpdateEvent(ctx context.Context, adminID int64, event models.Event) (*models.Event, error)
	DeleteEvent(ctx context.Context, adminID, eventID int64) error
	CreateLink(ctx context.Context, link models.GeneratedLink) (*models.GeneratedLink, error)
	UpdateLink(ctx context.Context, id int64, venueAddress string, availableSeats int) (*models.GeneratedLink, error)
}

// Store covers the read paths and simple writes served without domain logic.
type Store interface {
	Ping(ctx context.Context) error

	ListEvents(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	ListEventsByAdmin(ctx context.Context, adminID int64) ([]models.Event, error)
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*models.Event, error)
	ListCities(ctx context.Context) ([]models.City, error)
	CreateCity(ctx context.Context, name string) (*models.City, error)
	DeleteCity(ctx context.Context, id int64) error
	ListTemplates(ctx context.Context) ([]models.EventTemplate, error)
	CreateTemplate(ctx context.Context, tpl models.EventTemplate) (*models.EventTemplate, error)
	UpdateTemplate(ctx context.Context, tpl models.EventTemplate) (*models.EventTemplate, error)
	SetTemplateActive(ctx context.Context, id int64, active bool) error
	ListTemplateImages(ctx context.Context, templateID int64) ([]models.TemplateImage, error)
	AddTemplateImage(ctx context.Context, templateID int64, imageURL string) (*models.TemplateImage, error)
	DeleteTemplateImage(ctx context.Context, templateID, imageID int64) error
	ListTemplateAddresses(ctx context.Context, templateID int64) ([]models.TemplateAddress, error)
	ReplaceTemplateAddresses(ctx context.Context, templateID int64, addresses []models.TemplateAddress) error
	ListLinks(ctx context.Context) ([]models.GeneratedLink, error)
	GetActiveLinkByCode(ctx context.Context, code string) (*models.GeneratedLink, error)
	SetLinkActive(ctx context.Context, id int64, active bool) error
	DeleteLink(ctx context.Context, id int64) error

	PaymentSettingsForOrder(ctx context.Context, order *models.Order) (*models.PaymentSettings, error)
	GetAdminPaymentSettings(ctx context.Context, adminID int64) (*models.PaymentSettings, error)
	UpsertAdminPaymentSettings(ctx context.Context, adminID int64, settings models.PaymentSettings) error
	ListOrdersCursor(ctx context.Context, adminID int64, cursor string, limit int) (*store.CursorPage, error)
}

type Config struct {
	// WebhookSecret must match X-Telegram-Bot-Api-Secret-Token when set.
	WebhookSecret string
}

type Server struct {
	orders    Orders
	decisions Decisions
	authn     Authenticator
	catalog   Catalog
	store     Store
	cfg       Config
	logger    *zap.Logger
}

func NewServer(orders Orders, decisions Decisions, authn Authenticator, catalog Catalog, st Store, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		orders:    orders,
		decisions: decisions,
		authn:     authn,
		catalog:   catalog,
		store:     st,
		cfg:       cfg,
		logger:    logger,
	}
}

// Handler returns the routed, logged HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("GET /api/events/slug/{slug}", s.handleGetEventBySlug)
	mux.HandleFunc("GET /api/cities", s.handleListCities)
	mux.HandleFunc("GET /api/links/{code}", s.handleGetLink)

	mux.HandleFunc("POST /api/orders", s.handleCreateOrder)
	mux.HandleFunc("POST /api/link-orders", s.handleCreateLinkOrder)
	mux.HandleFunc("GET /api/orders/{code}", s.handleGetOrder)
	mux.HandleFunc("GET /api/orders/{code}/ticket", s.handleGetTicket)
	mux.HandleFunc("GET /api/orders/{code}/payment-settings", s.handleOrderPaymentSettings)
	mux.HandleFunc("POST /api/orders/{code}/mark-paid", s.handleMarkPaid)

	mux.HandleFunc("POST /api/admin/register", s.handleRegister)
	mux.HandleFunc("POST /api/admin/login", s.handleLogin)
	mux.HandleFunc("GET /api/admin/payment-settings", RequireAdmin(s.authn, s.handleGetAdminPaymentSettings))
	mux.HandleFunc("PUT /api/admin/payment-settings", RequireAdmin(s.authn, s.handlePutAdminPaymentSettings))
	mux.HandleFunc("GET /api/admin/orders", RequireAdmin(s.authn, s.handleListAdminOrders))
	mux.HandleFunc("POST /api/admin/orders/{code}/confirm", RequireAdmin(s.authn, s.handleAdminDecision(notify.ActionConfirm)))
	mux.HandleFunc("POST /api/admin/orders/{code}/reject", RequireAdmin(s.authn, s.handleAdminDecision(notify.ActionReject)))
	mux.HandleFunc("GET /api/admin/events", RequireAdmin(s.authn, s.handleListAdminEvents))
	mux.HandleFunc("POST /api/admin/events", RequireAdmin(s.authn, s.handleCreateEvent))
	mux.HandleFunc("PUT /api/admin/events/{id}", RequireAdmin(s.authn, s.handleUpdateEvent))
	mux.HandleFunc("DELETE /api/admin/events/{id}", RequireAdmin(s.authn, s.handleDeleteEvent))
	mux.HandleFunc("POST /api/admin/cities", RequireAdmin(s.authn, s.handleCreateCity))
	mux.HandleFunc("DELETE /api/admin/cities/{id}", RequireAdmin(s.authn, s.handleDeleteCity))
	mux.HandleFunc("GET /api/admin/templates", RequireAdmin(s.authn, s.handleListTemplates))
	mux.HandleFunc("POST /api/admin/templates", RequireAdmin(s.authn, s.handleCreateTemplate))
	mux.HandleFunc("PUT /api/admin/templates/{id}", RequireAdmin(s.authn, s.handleUpdateTemplate))
	mux.HandleFunc("PATCH /api/admin/templates/{id}", RequireAdmin(s.authn, s.handleSetTemplateActive))
	mux.HandleFunc("GET /api/admin/templates/{id}/images", RequireAdmin(s.authn, s.handleListTemplateImages))
	mux.HandleFunc("POST /api/admin/templates/{id}/images", RequireAdmin(s.authn, s.handleAddTemplateImage))
	mux.HandleFunc("DELETE /api/admin/templates/{id}/images/{imageID}", RequireAdmin(s.authn, s.handleDeleteTemplateImage))
	mux.HandleFunc("GET /api/admin/templates/{id}/addresses", RequireAdmin(s.authn, s.handleListTemplateAddresses))
	mux.HandleFunc("PUT /api/admin/templates/{id}/addresses", RequireAdmin(s.authn, s.handlePutTemplateAddresses))
	mux.HandleFunc("GET /api/admin/links", RequireAdmin(s.authn, s.handleListLinks))
	mux.HandleFunc("POST /api/admin/links", RequireAdmin(s.authn, s.handleCreateLink))
	mux.HandleFunc("PUT /api/admin/links/{id}", RequireAdmin(s.authn, s.handleUpdateLink))
	mux.HandleFunc("PATCH /api/admin/links/{id}", RequireAdmin(s.authn, s.handleSetLinkActive))
	mux.HandleFunc("DELETE /api/admin/links/{id}", RequireAdmin(s.authn, s.handleDeleteLink))

	mux.HandleFunc("POST /webhooks/telegram", s.handleTelegramWebhook)

	return RequestLogger(mux, s.logger)
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type City struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Event struct {
	ID             int64           `json:"id"`
	AdminID        *int64          `json:"admin_id,omitempty"`
	CityID         int64           `json:"city_id"`
	CityName       string          `json:"city_name,omitempty"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	Price          decimal.Decimal `json:"price"`
	AvailableSeats int             `json:"available_seats"`
	CoverImageURL  string          `json:"cover_image_url,omitempty"`
	Slug           string          `json:"slug"`
	IsPublished    bool            `json:"is_published"`
	CreatedAt      time.Time       `json:"created_at"`
}

type EventTemplate struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	TicketImageURL string    `json:"ticket_image_url,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// TemplateImage is one entry of a template's gallery, shown in sort order.
type TemplateImage struct {
	ID              int64     `json:"id"`
	EventTemplateID int64     `json:"event_template_id"`
	ImageURL        string    `json:"image_url"`
	SortOrder       int       `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
}

// TemplateAddress is the default venue of a template in a city. New links
// for that pair start with this address.
type TemplateAddress struct {
	EventTemplateID int64  `json:"event_template_id"`
	CityID          int64  `json:"city_id"`
	CityName        string `json:"city_name,omitempty"`
	VenueAddress    string `json:"venue_address"`
}

// GeneratedLink is a sellable instance of an EventTemplate in a city on a date.
type GeneratedLink struct {
	ID              int64     `json:"id"`
	LinkCode        string    `json:"link_code"`
	EventTemplateID int64     `json:"event_template_id"`
	TemplateName    string    `json:"template_name,omitempty"`
	CityID          int64     `json:"city_id"`
	CityName        string    `json:"city_name,omitempty"`
	EventDate       string    `json:"event_date"`
	EventTime       string    `json:"event_time"`
	AvailableSeats  int       `json:"available_seats"`
	VenueAddress    string    `json:"venue_address,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

type ItemKind string

const (
	ItemEvent ItemKind = "event"
	ItemLink  ItemKind = "link"
)

// ItemRef identifies the inventory record an order draws seats from.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   int64    `json:"id"`
}

type Order struct {
	ID              int64           `json:"id"`
	OrderCode       string          `json:"order_code"`
	EventID         *int64          `json:"event_id,omitempty"`
	EventTemplateID *int64          `json:"event_template_id,omitempty"`
	LinkID          *int64          `json:"link_id,omitempty"`
	LinkCode        *string         `json:"link_code,omitempty"`
	AdminID         *int64          `json:"admin_id,omitempty"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerEmail   *string         `json:"customer_email,omitempty"`
	SeatsCount      int             `json:"seats_count"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Denormalized from the sellable item for messages and tickets.
	EventName      string `json:"event_name,omitempty"`
	EventDate      string `json:"event_date,omitempty"`
	EventTime      string `json:"event_time,omitempty"`
	CityName       string `json:"city_name,omitempty"`
	VenueAddress   string `json:"venue_address,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	TicketImageURL string `json:"ticket_image_url,omitempty"`
}

// Item returns the inventory record the order was reserved against.
func (o *Order) Item() ItemRef {
	if o.LinkID != nil {
		return ItemRef{Kind: ItemLink, ID: *o.LinkID}
	}
	if o.EventID != nil {
		return ItemRef{Kind: ItemEvent, ID: *o.EventID}
	}
	return ItemRef{}
}

func (o *Order) IsTerminal() bool {
	return IsTerminalStatus(o.Status)
}

const (
	OrderStatusPending             = "pending"
	OrderStatusWaitingConfirmation = "waiting_confirmation"
	OrderStatusConfirmed           = "confirmed"
	OrderStatusRejected            = "rejected"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
)

func IsTerminalStatus(status string) bool {
	return status == OrderStatusConfirmed || status == OrderStatusRejected
}

// OrderDraft is a validated order about to be persisted.
type OrderDraft struct {
	Item            ItemRef
	EventTemplateID *int64
	LinkCode        *string
	AdminID         *int64
	OrderCode       string
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   *string
	SeatsCount      int
	TotalPrice      decimal.Decimal
}

type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type PaymentSettings struct {
	CardNumber     string `json:"card_number"`
	CardHolderName string `json:"card_holder_name"`
	BankName       string `json:"bank_name"`
}

const (
	AdminMessageNewOrder     = "new_order"
	AdminMessagePaymentProof = "payment_proof"
	// AdminMessagePaymentNotice is a text-only payment message sent when the
	// buyer attached no screenshot.
	AdminMessagePaymentNotice = "payment_notice"
)

// AdminMessage links a message sent to the admin chat back to its order.
type AdminMessage struct {
	OrderID   int64     `json:"order_id"`
	ChatID    string    `json:"chat_id"`
	MessageID int64     `json:"message_id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// IsPhoto reports whether the message is a photo whose text lives in its
// caption.
func (m *AdminMessage) IsPhoto() bool {
	return m.Kind == AdminMessagePaymentProof
}

package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/safar/go-ticket-desk/internal/booking"
	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/safar/go-ticket-desk/internal/notify"
	"github.com/shopspring/decimal"
)

const maxMarkPaidBody = 10 << 20

type CreateOrderRequest struct {
	EventID       int64            `json:"event_id,omitempty"`
	EventSlug     string           `json:"event_slug,omitempty"`
	CustomerName  string           `json:"customer_name"`
	CustomerPhone string           `json:"customer_phone"`
	CustomerEmail string           `json:"customer_email,omitempty"`
	SeatsCount    int              `json:"seats_count"`
	TotalPrice    *decimal.Decimal `json:"total_price,omitempty"`
}

type CreateLinkOrderRequest struct {
	LinkCode      string           `json:"link_code"`
	CustomerName  string           `json:"customer_name"`
	CustomerPhone string           `json:"customer_phone"`
	CustomerEmail string           `json:"customer_email,omitempty"`
	SeatsCount    int              `json:"seats_count"`
	TotalPrice    *decimal.Decimal `json:"total_price,omitempty"`
}

type MarkPaidRequest struct {
	// Screenshot is plain base64 or a data URL.
	Screenshot string `json:"screenshot,omitempty"`
}

type OrderSummary struct {
	OrderCode     string          `json:"order_code"`
	EventName     string          `json:"event_name"`
	EventDate     string          `json:"event_date,omitempty"`
	EventTime     string          `json:"event_time,omitempty"`
	CityName      string          `json:"city_name,omitempty"`
	CustomerName  string          `json:"customer_name"`
	SeatsCount    int             `json:"seats_count"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
}

func summarize(o *models.Order) OrderSummary {
	return OrderSummary{
		OrderCode:     o.OrderCode,
		EventName:     o.EventName,
		EventDate:     o.EventDate,
		EventTime:     o.EventTime,
		CityName:      o.CityName,
		CustomerName:  o.CustomerName,
		SeatsCount:    o.SeatsCount,
		TotalPrice:    o.TotalPrice,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
	}
}

type TicketResponse struct {
	Pending        bool            `json:"pending,omitempty"`
	OrderCode      string          `json:"order_code,omitempty"`
	EventName      string          `json:"event_name,omitempty"`
	EventDate      string          `json:"event_date,omitempty"`
	EventTime      string          `json:"event_time,omitempty"`
	CityName       string          `json:"city_name,omitempty"`
	VenueAddress   string          `json:"venue_address,omitempty"`
	CustomerName   string          `json:"customer_name,omitempty"`
	SeatsCount     int             `json:"seats_count,omitempty"`
	TotalPrice     decimal.Decimal `json:"total_price,omitempty"`
	ImageURL       string          `json:"image_url,omitempty"`
	TicketImageURL string          `json:"ticket_image_url,omitempty"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	order, err := s.orders.CreateOrder(r.Context(), booking.CreateOrderInput{
		EventID:       req.EventID,
		EventSlug:     req.EventSlug,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		SeatsCount:    req.SeatsCount,
		TotalPrice:    req.TotalPrice,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCreateLinkOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	order, err := s.orders.CreateOrder(r.Context(), booking.CreateOrderInput{
		LinkCode:      req.LinkCode,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		SeatsCount:    req.SeatsCount,
		TotalPrice:    req.TotalPrice,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Order(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(order))
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Order(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if order.PaymentStatus != models.PaymentStatusConfirmed {
		writeJSON(w, http.StatusOK, TicketResponse{Pending: true})
		return
	}

	writeJSON(w, http.StatusOK, TicketResponse{
		OrderCode:      order.OrderCode,
		EventName:      order.EventName,
		EventDate:      order.EventDate,
		EventTime:      order.EventTime,
		CityName:       order.CityName,
		VenueAddress:   order.VenueAddress,
		CustomerName:   order.CustomerName,
		SeatsCount:     order.SeatsCount,
		TotalPrice:     order.TotalPrice,
		ImageURL:       order.ImageURL,
		TicketImageURL: order.TicketImageURL,
	})
}

func (s *Server) handleOrderPaymentSettings(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Order(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	settings, err := s.store.PaymentSettingsForOrder(r.Context(), order)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMarkPaidBody)

	var req MarkPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeInvalidScreenshot, "screenshot is too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	proof, err := decodeScreenshot(req.Screenshot)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidScreenshot, err.Error())
		return
	}

	order, err := s.orders.MarkPaid(r.Context(), r.PathValue("code"), proof)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(order))
}

var errInvalidScreenshot = errors.New("screenshot is not valid base64")

// decodeScreenshot accepts raw base64 or a data URL. An empty input yields a
// nil proof.
func decodeScreenshot(raw string) (*notify.Proof, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	fileName := "payment.jpg"
	if rest, ok := strings.CutPrefix(raw, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, errInvalidScreenshot
		}
		fileName = "payment" + extensionFor(strings.TrimSuffix(meta, ";base64"))
		raw = payload
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return nil, errInvalidScreenshot
		}
	}
	if len(data) == 0 {
		return nil, nil
	}

	return &notify.Proof{Data: data, FileName: fileName}, nil
}

func extensionFor(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

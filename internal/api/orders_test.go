package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/safar/go-ticket-desk/internal/booking"
	"github.com/safar/go-ticket-desk/internal/models"
)

func TestHandleCreateOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"event_id":1,"customer_name":"Ivan","customer_phone":"+79990000000","seats_count":2}`,
			expectedStatus: http.StatusOK,
			expectedSubstr: `"order_code":"TKNEW123"`,
		},
		{
			name:           "invalid json",
			body:           `{"event_id":`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidRequestBody,
		},
		{
			name:           "validation",
			body:           `{"event_id":1,"customer_name":"I","customer_phone":"+79990000000","seats_count":2}`,
			serviceErr:     &booking.ValidationError{Field: "customer_name", Message: "is too short"},
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"field":"customer_name"`,
		},
		{
			name:           "insufficient seats",
			body:           `{"event_id":1,"customer_name":"Ivan","customer_phone":"+79990000000","seats_count":9}`,
			serviceErr:     fmt.Errorf("%w: event 1", booking.ErrInsufficientInventory),
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeInsufficientSeats,
		},
		{
			name:           "unknown event",
			body:           `{"event_id":99,"customer_name":"Ivan","customer_phone":"+79990000000","seats_count":1}`,
			serviceErr:     booking.ErrNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "persistence fault",
			body:           `{"event_id":1,"customer_name":"Ivan","customer_phone":"+79990000000","seats_count":1}`,
			serviceErr:     booking.ErrPersistenceFault,
			expectedStatus: http.StatusInternalServerError,
			expectedSubstr: codeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, Config{})
			h.orders.createErr = tt.serviceErr

			rec := h.do(http.MethodPost, "/api/orders", tt.body, nil)
			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected body to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleCreateLinkOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	rec := h.do(http.MethodPost, "/api/link-orders",
		`{"link_code":"LNK-ABCDEF","customer_name":"Ivan","customer_phone":"+79990000000","seats_count":2,"total_price":"5980"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	in := h.orders.lastInput
	if in.LinkCode != "LNK-ABCDEF" || in.EventID != 0 || in.EventSlug != "" {
		t.Fatalf("unexpected item selector: %+v", in)
	}
	if in.TotalPrice == nil || in.TotalPrice.String() != "5980" {
		t.Fatalf("expected explicit total 5980, got %v", in.TotalPrice)
	}
}

func TestHandleGetOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.orders.add(pendingOrder(1, "TKABC", nil))

	rec := h.do(http.MethodGet, "/api/orders/TKABC", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got OrderSummary
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.OrderCode != "TKABC" || got.EventName != "Jazz Night" || got.Status != models.OrderStatusPending {
		t.Fatalf("unexpected summary: %+v", got)
	}

	rec = h.do(http.MethodGet, "/api/orders/NOPE", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown order, got %d", rec.Code)
	}
}

func TestHandleGetTicket(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.orders.add(pendingOrder(1, "TKPEND", nil))
	confirmed := pendingOrder(2, "TKDONE", nil)
	confirmed.Status = models.OrderStatusConfirmed
	confirmed.PaymentStatus = models.PaymentStatusConfirmed
	confirmed.VenueAddress = "Main st. 1"
	h.orders.add(confirmed)

	rec := h.do(http.MethodGet, "/api/orders/TKPEND/ticket", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"pending":true`) {
		t.Fatalf("expected pending ticket, got %d %s", rec.Code, rec.Body.String())
	}

	rec = h.do(http.MethodGet, "/api/orders/TKDONE/ticket", "", nil)
	var ticket TicketResponse
	if err := json.NewDecoder(rec.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ticket.Pending || ticket.OrderCode != "TKDONE" || ticket.VenueAddress != "Main st. 1" {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
}

func TestHandleOrderPaymentSettings(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.orders.add(pendingOrder(1, "TKOWN", int64Ptr(7)))
	h.orders.add(pendingOrder(2, "LNK-GLOBAL", nil))
	h.store.settings[7] = models.PaymentSettings{CardNumber: "2200 0000 0000 0000", CardHolderName: "A. B.", BankName: "Bank"}

	rec := h.do(http.MethodGet, "/api/orders/TKOWN/payment-settings", "", nil)
	if !strings.Contains(rec.Body.String(), `"card_number":"2200 0000 0000 0000"`) {
		t.Fatalf("expected admin card, got %s", rec.Body.String())
	}

	rec = h.do(http.MethodGet, "/api/orders/LNK-GLOBAL/payment-settings", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"card_number":""`) {
		t.Fatalf("expected empty settings, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandleMarkPaid(t *testing.T) {
	t.Parallel()

	png := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	encoded := base64.StdEncoding.EncodeToString(png)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedFile   string
		expectProof    bool
	}{
		{name: "no screenshot", body: `{}`, expectedStatus: http.StatusOK},
		{name: "empty body object", body: `{"screenshot":""}`, expectedStatus: http.StatusOK},
		{name: "raw base64", body: `{"screenshot":"` + encoded + `"}`, expectedStatus: http.StatusOK, expectProof: true, expectedFile: "payment.jpg"},
		{name: "data url", body: `{"screenshot":"data:image/png;base64,` + encoded + `"}`, expectedStatus: http.StatusOK, expectProof: true, expectedFile: "payment.png"},
		{name: "bad base64", body: `{"screenshot":"***"}`, expectedStatus: http.StatusBadRequest},
		{name: "data url without base64", body: `{"screenshot":"data:image/png,abc"}`, expectedStatus: http.StatusBadRequest},
		{name: "invalid json", body: `{`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, Config{})
			h.orders.add(pendingOrder(1, "TKPAY", nil))

			rec := h.do(http.MethodPost, "/api/orders/TKPAY/mark-paid", tt.body, nil)
			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			if !strings.Contains(rec.Body.String(), models.OrderStatusWaitingConfirmation) {
				t.Fatalf("expected waiting_confirmation, got %s", rec.Body.String())
			}

			proof := h.orders.lastProof
			if !tt.expectProof {
				if proof != nil {
					t.Fatalf("expected no proof, got %+v", proof)
				}
				return
			}
			if proof == nil || !bytes.Equal(proof.Data, png) || proof.FileName != tt.expectedFile {
				t.Fatalf("unexpected proof: %+v", proof)
			}
		})
	}
}

func TestHandleMarkPaid_TooLarge(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.orders.add(pendingOrder(1, "TKBIG", nil))

	body := `{"screenshot":"` + strings.Repeat("A", maxMarkPaidBody) + `"}`
	rec := h.do(http.MethodPost, "/api/orders/TKBIG/mark-paid", body, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if h.orders.lastProof != nil {
		t.Fatal("oversized proof must not reach the controller")
	}
}

func TestHandleMarkPaid_UnknownOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	rec := h.do(http.MethodPost, "/api/orders/NOPE/mark-paid", `{}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

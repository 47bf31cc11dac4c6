package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/safar/go-ticket-desk/internal/store"
	"github.com/safar/go-ticket-desk/internal/testutil"
	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	code := m.Run()
	_ = testutil.TerminateShared(context.Background())
	os.Exit(code)
}

// setupStore returns a store over a freshly truncated database. The test is
// skipped when no container runtime is available.
func setupStore(t *testing.T) *store.Store {
	t.Helper()
	pg := testutil.Shared(t)
	if err := pg.Reset(context.Background()); err != nil {
		t.Fatalf("Reset database: %v", err)
	}
	return store.New(pg.DB)
}

type fixture struct {
	admin *models.Admin
	city  *models.City
	event *models.Event
	tpl   *models.EventTemplate
	link  *models.GeneratedLink
}

func seed(t *testing.T, s *store.Store, eventSeats, linkSeats int) fixture {
	t.Helper()
	ctx := context.Background()

	admin, err := s.CreateAdmin(ctx, "alice", "Alice", "hash")
	if err != nil {
		t.Fatalf("Create admin: %v", err)
	}
	city, err := s.CreateCity(ctx, "Kazan")
	if err != nil {
		t.Fatalf("Create city: %v", err)
	}
	event, err := s.CreateEvent(ctx, models.Event{
		AdminID:        &admin.ID,
		CityID:         city.ID,
		Name:           "Jazz Night",
		Date:           "2026-11-01",
		Time:           "19:00",
		Price:          decimal.NewFromInt(1000),
		AvailableSeats: eventSeats,
		Slug:           "jazz-night-abc123",
		IsPublished:    true,
	})
	if err != nil {
		t.Fatalf("Create event: %v", err)
	}
	tpl, err := s.CreateTemplate(ctx, models.EventTemplate{Name: "Standup", TicketImageURL: "https://img/ticket.png"})
	if err != nil {
		t.Fatalf("Create template: %v", err)
	}
	link, err := s.CreateLink(ctx, models.GeneratedLink{
		LinkCode:        "LNK-ABCDEF",
		EventTemplateID: tpl.ID,
		CityID:          city.ID,
		EventDate:       "2026-11-02",
		EventTime:       "20:00",
		AvailableSeats:  linkSeats,
		VenueAddress:    "Main st. 1",
	})
	if err != nil {
		t.Fatalf("Create link: %v", err)
	}

	return fixture{admin: admin, city: city, event: event, tpl: tpl, link: link}
}

func eventDraft(f fixture, code string, seats int) models.OrderDraft {
	return models.OrderDraft{
		Item:          models.ItemRef{Kind: models.ItemEvent, ID: f.event.ID},
		AdminID:       &f.admin.ID,
		OrderCode:     code,
		CustomerName:  "Ivan",
		CustomerPhone: "+79990000000",
		SeatsCount:    seats,
		TotalPrice:    f.event.Price.Mul(decimal.NewFromInt(int64(seats))),
	}
}

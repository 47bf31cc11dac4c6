package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
	"go.uber.org/zap"
)

const defaultLinkSeats = 100

type CatalogStore interface {
	CreateEvent(ctx context.Context, event models.Event) (*models.Event, error)
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	UpdateEvent(ctx context.Context, event models.Event) (*models.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	CreateLink(ctx context.Context, link models.GeneratedLink) (*models.GeneratedLink, error)
	UpdateLink(ctx context.Context, id int64, venueAddress string, availableSeats int) (*models.GeneratedLink, error)
	TemplateAddress(ctx context.Context, templateID, cityID int64) (string, error)
}

// CatalogService creates and edits sellable items. Events belong to the
// admin who created them; links are shared by all admins.
type CatalogService struct {
	store   CatalogStore
	logger  *zap.Logger
	slug    func(name string) string
	newCode func() string
}

func NewCatalogService(store CatalogStore, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		store:   store,
		logger:  logger,
		slug:    NewSlug,
		newCode: NewLinkCode,
	}
}

func validateEvent(event *models.Event) error {
	event.Name = strings.TrimSpace(event.Name)
	switch {
	case event.Name == "":
		return invalid("name", "is required")
	case event.CityID <= 0:
		return invalid("city_id", "is required")
	case event.Price.IsNegative():
		return invalid("price", "must not be negative")
	case event.AvailableSeats < 0:
		return invalid("available_seats", "must not be negative")
	case strings.TrimSpace(event.Date) == "":
		return invalid("date", "is required")
	}
	return nil
}

// CreateEvent stores event owned by adminID under a fresh slug.
func (s *CatalogService) CreateEvent(ctx context.Context, adminID int64, event models.Event) (*models.Event, error) {
	if err := validateEvent(&event); err != nil {
		return nil, err
	}

	event.AdminID = &adminID
	event.Slug = s.slug(event.Name)
	event.IsPublished = true

	created, err := s.store.CreateEvent(ctx, event)
	if err != nil {
		if errors.Is(err, database.ErrCityNotFound) {
			return nil, invalid("city_id", "unknown city")
		}
		return nil, err
	}

	s.logger.Info("event created",
		zap.Int64("event_id", created.ID),
		zap.Int64("admin_id", adminID),
		zap.String("slug", created.Slug))
	return created, nil
}

// UpdateEvent replaces the editable fields of one of adminID's events. The
// slug stays stable so shared event URLs keep working. AvailableSeats is the
// new remaining count, not a delta.
func (s *CatalogService) UpdateEvent(ctx context.Context, adminID int64, event models.Event) (*models.Event, error) {
	if err := validateEvent(&event); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, adminID, event.ID); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateEvent(ctx, event)
	if err != nil {
		if errors.Is(err, database.ErrCityNotFound) {
			return nil, invalid("city_id", "unknown city")
		}
		return nil, classify(err)
	}

	s.logger.Info("event updated",
		zap.Int64("event_id", updated.ID),
		zap.Int64("admin_id", adminID),
		zap.Int("available_seats", updated.AvailableSeats))
	return updated, nil
}

// DeleteEvent removes one of adminID's events. Events with orders are kept
// and database.ErrReferenced is returned.
func (s *CatalogService) DeleteEvent(ctx context.Context, adminID, eventID int64) error {
	if err := s.checkOwner(ctx, adminID, eventID); err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return classify(err)
	}

	s.logger.Info("event deleted", zap.Int64("event_id", eventID), zap.Int64("admin_id", adminID))
	return nil
}

// checkOwner lets adminID through for its own events and for legacy events
// with no owner.
func (s *CatalogService) checkOwner(ctx context.Context, adminID, eventID int64) error {
	current, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return classify(err)
	}
	if current.AdminID != nil && *current.AdminID != adminID {
		return fmt.Errorf("%w: event %d belongs to another admin", ErrForbidden, eventID)
	}
	return nil
}

// CreateLink issues a new link for a template, retrying on code collisions.
// Without an explicit venue the template's address for the city is used.
func (s *CatalogService) CreateLink(ctx context.Context, link models.GeneratedLink) (*models.GeneratedLink, error) {
	switch {
	case link.EventTemplateID <= 0:
		return nil, invalid("event_template_id", "is required")
	case link.CityID <= 0:
		return nil, invalid("city_id", "is required")
	case strings.TrimSpace(link.EventDate) == "":
		return nil, invalid("event_date", "is required")
	case link.AvailableSeats < 0:
		return nil, invalid("available_seats", "must not be negative")
	}
	if link.AvailableSeats == 0 {
		link.AvailableSeats = defaultLinkSeats
	}
	if strings.TrimSpace(link.VenueAddress) == "" {
		address, err := s.store.TemplateAddress(ctx, link.EventTemplateID, link.CityID)
		if err != nil {
			return nil, err
		}
		link.VenueAddress = address
	}

	for attempt := 1; ; attempt++ {
		link.LinkCode = s.newCode()
		created, err := s.store.CreateLink(ctx, link)
		if errors.Is(err, database.ErrDuplicateLinkCode) && attempt < maxCodeAttempts {
			continue
		}
		if errors.Is(err, database.ErrTemplateNotFound) {
			return nil, invalid("event_template_id", "unknown template or city")
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("link created",
			zap.Int64("link_id", created.ID),
			zap.String("link_code", created.LinkCode))
		return created, nil
	}
}

// UpdateLink sets a link's venue and remaining seats.
func (s *CatalogService) UpdateLink(ctx context.Context, id int64, venueAddress string, availableSeats int) (*models.GeneratedLink, error) {
	if availableSeats < 0 {
		return nil, invalid("available_seats", "must not be negative")
	}

	link, err := s.store.UpdateLink(ctx, id, strings.TrimSpace(venueAddress), availableSeats)
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("link updated",
		zap.Int64("link_id", link.ID),
		zap.Int("available_seats", link.AvailableSeats))
	return link, nil
}

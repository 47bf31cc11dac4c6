package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
)

const eventSelect = `
	SELECT e.id, e.admin_id, e.city_id, COALESCE(c.name, ''), e.name, e.description, e.date, e.time,
	       e.price, e.available_seats, e.cover_image_url, e.slug, e.is_published, e.created_at
	FROM events e
	LEFT JOIN cities c ON c.id = e.city_id`

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(
		&event.ID,
		&event.AdminID,
		&event.CityID,
		&event.CityName,
		&event.Name,
		&event.Description,
		&event.Date,
		&event.Time,
		&event.Price,
		&event.AvailableSeats,
		&event.CoverImageURL,
		&event.Slug,
		&event.IsPublished,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Store) CreateEvent(ctx context.Context, event models.Event) (*models.Event, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO events (admin_id, city_id, name, description, date, time, price, available_seats,
		                     cover_image_url, slug, is_published, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		 RETURNING id`,
		event.AdminID, event.CityID, event.Name, event.Description, event.Date, event.Time, event.Price,
		event.AvailableSeats, event.CoverImageURL, event.Slug, event.IsPublished,
	).Scan(&id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrCityNotFound
		}
		return nil, fmt.Errorf("create event: %w", err)
	}

	return s.GetEvent(ctx, id)
}

func (s *Store) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := scanEvent(s.conn(ctx).QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *Store) GetEventBySlug(ctx context.Context, slug string) (*models.Event, error) {
	event, err := scanEvent(s.conn(ctx).QueryRowContext(ctx, eventSelect+` WHERE e.slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event by slug: %w", err)
	}
	return event, nil
}

// ListEvents returns a page of published events, newest first.
func (s *Store) ListEvents(ctx context.Context, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := s.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE is_published`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := s.conn(ctx).QueryContext(ctx,
		eventSelect+`
		WHERE e.is_published
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(events, total, page, pageSize), nil
}

func (s *Store) ListEventsByAdmin(ctx context.Context, adminID int64) ([]models.Event, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		eventSelect+` WHERE e.admin_id = $1 ORDER BY e.created_at DESC, e.id DESC`, adminID)
	if err != nil {
		return nil, fmt.Errorf("list admin events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]models.Event, error) {
	events := []models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

func (s *Store) CreateCity(ctx context.Context, name string) (*models.City, error) {
	city := &models.City{}
	err := s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO cities (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name`,
		name).Scan(&city.ID, &city.Name)
	if err != nil {
		return nil, fmt.Errorf("create city: %w", err)
	}
	return city, nil
}

func (s *Store) ListCities(ctx context.Context) ([]models.City, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT id, name FROM cities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	cities := []models.City{}
	for rows.Next() {
		var city models.City
		if err := rows.Scan(&city.ID, &city.Name); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		cities = append(cities, city)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return cities, nil
}

// UpdateEvent rewrites the editable fields of an event. Slug, owner and
// publication state are kept.
func (s *Store) UpdateEvent(ctx context.Context, event models.Event) (*models.Event, error) {
	result, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE events
		 SET name = $2, description = $3, city_id = $4, date = $5, time = $6, price = $7,
		     available_seats = $8, cover_image_url = $9
		 WHERE id = $1`,
		event.ID, event.Name, event.Description, event.CityID, event.Date, event.Time, event.Price,
		event.AvailableSeats, event.CoverImageURL)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrCityNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, database.ErrEventNotFound
	}
	return s.GetEvent(ctx, event.ID)
}

// DeleteEvent removes an event that no order was placed against.
func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM events WHERE id = $1`, id, "delete event", database.ErrEventNotFound)
}

// DeleteCity removes a city no event or link is held in. Template addresses
// for the city go with it.
func (s *Store) DeleteCity(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM cities WHERE id = $1`, id, "delete city", database.ErrCityNotFound)
}

func (s *Store) deleteByID(ctx context.Context, query string, id int64, op string, notFound error) error {
	result, err := s.conn(ctx).ExecContext(ctx, query, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrReferenced
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

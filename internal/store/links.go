package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
)

func (s *Store) CreateTemplate(ctx context.Context, tpl models.EventTemplate) (*models.EventTemplate, error) {
	created := &models.EventTemplate{}
	err := s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO event_templates (name, description, image_url, ticket_image_url, is_active, created_at)
		 VALUES ($1, $2, $3, $4, TRUE, NOW())
		 RETURNING id, name, description, image_url, ticket_image_url, is_active, created_at`,
		tpl.Name, tpl.Description, tpl.ImageURL, tpl.TicketImageURL,
	).Scan(
		&created.ID,
		&created.Name,
		&created.Description,
		&created.ImageURL,
		&created.TicketImageURL,
		&created.IsActive,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create event template: %w", err)
	}
	return created, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]models.EventTemplate, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT id, name, description, image_url, ticket_image_url, is_active, created_at
		 FROM event_templates
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list event templates: %w", err)
	}
	defer rows.Close()

	templates := []models.EventTemplate{}
	for rows.Next() {
		var tpl models.EventTemplate
		err := rows.Scan(
			&tpl.ID,
			&tpl.Name,
			&tpl.Description,
			&tpl.ImageURL,
			&tpl.TicketImageURL,
			&tpl.IsActive,
			&tpl.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event template: %w", err)
		}
		templates = append(templates, tpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return templates, nil
}

// UpdateTemplate rewrites a template's display fields.
func (s *Store) UpdateTemplate(ctx context.Context, tpl models.EventTemplate) (*models.EventTemplate, error) {
	updated := &models.EventTemplate{}
	err := s.conn(ctx).QueryRowContext(ctx,
		`UPDATE event_templates
		 SET name = $2, description = $3, image_url = $4, ticket_image_url = $5
		 WHERE id = $1
		 RETURNING id, name, description, image_url, ticket_image_url, is_active, created_at`,
		tpl.ID, tpl.Name, tpl.Description, tpl.ImageURL, tpl.TicketImageURL,
	).Scan(
		&updated.ID,
		&updated.Name,
		&updated.Description,
		&updated.ImageURL,
		&updated.TicketImageURL,
		&updated.IsActive,
		&updated.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("update event template: %w", err)
	}
	return updated, nil
}

// SetTemplateActive toggles a template. Links of an inactive template stop
// resolving by code.
func (s *Store) SetTemplateActive(ctx context.Context, id int64, active bool) error {
	return s.setActive(ctx, `UPDATE event_templates SET is_active = $2 WHERE id = $1`, id, active,
		"toggle event template", database.ErrTemplateNotFound)
}

const linkSelect = `
	SELECT gl.id, gl.link_code, gl.event_template_id, et.name, gl.city_id, c.name,
	       gl.event_date, gl.event_time, gl.available_seats, gl.venue_address, gl.is_active, gl.created_at
	FROM generated_links gl
	JOIN event_templates et ON et.id = gl.event_template_id
	JOIN cities c ON c.id = gl.city_id`

func scanLink(row rowScanner) (*models.GeneratedLink, error) {
	link := &models.GeneratedLink{}
	err := row.Scan(
		&link.ID,
		&link.LinkCode,
		&link.EventTemplateID,
		&link.TemplateName,
		&link.CityID,
		&link.CityName,
		&link.EventDate,
		&link.EventTime,
		&link.AvailableSeats,
		&link.VenueAddress,
		&link.IsActive,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *Store) CreateLink(ctx context.Context, link models.GeneratedLink) (*models.GeneratedLink, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO generated_links (link_code, event_template_id, city_id, event_date, event_time,
		                              available_seats, venue_address, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW())
		 RETURNING id`,
		link.LinkCode, link.EventTemplateID, link.CityID, link.EventDate, link.EventTime,
		link.AvailableSeats, link.VenueAddress,
	).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrDuplicateLinkCode
		}
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("create link: %w", err)
	}

	return s.GetLink(ctx, id)
}

// GetActiveLinkByCode returns the link only while it is active.
func (s *Store) GetActiveLinkByCode(ctx context.Context, code string) (*models.GeneratedLink, error) {
	link, err := scanLink(s.conn(ctx).QueryRowContext(ctx,
		linkSelect+` WHERE gl.link_code = $1 AND gl.is_active AND et.is_active`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrLinkNotFound
		}
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *Store) SetLinkActive(ctx context.Context, id int64, active bool) error {
	return s.setActive(ctx, `UPDATE generated_links SET is_active = $2 WHERE id = $1`, id, active,
		"toggle link", database.ErrLinkNotFound)
}

func (s *Store) setActive(ctx context.Context, query string, id int64, active bool, op string, notFound error) error {
	result, err := s.conn(ctx).ExecContext(ctx, query, id, active)
	if err != nil {
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

// GetLink returns a link by id whether or not it is active.
func (s *Store) GetLink(ctx context.Context, id int64) (*models.GeneratedLink, error) {
	link, err := scanLink(s.conn(ctx).QueryRowContext(ctx, linkSelect+` WHERE gl.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrLinkNotFound
		}
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

// UpdateLink sets a link's venue and remaining seats.
func (s *Store) UpdateLink(ctx context.Context, id int64, venueAddress string, availableSeats int) (*models.GeneratedLink, error) {
	result, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE generated_links SET venue_address = $2, available_seats = $3 WHERE id = $1`,
		id, venueAddress, availableSeats)
	if err != nil {
		return nil, fmt.Errorf("update link: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, database.ErrLinkNotFound
	}
	return s.GetLink(ctx, id)
}

// DeleteLink removes a link no order was placed through.
func (s *Store) DeleteLink(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM generated_links WHERE id = $1`, id, "delete link", database.ErrLinkNotFound)
}

func (s *Store) ListLinks(ctx context.Context) ([]models.GeneratedLink, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, linkSelect+` ORDER BY gl.created_at DESC, gl.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := []models.GeneratedLink{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, *link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return links, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
)

func (s *Store) ListTemplateImages(ctx context.Context, templateID int64) ([]models.TemplateImage, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT id, event_template_id, image_url, sort_order, created_at
		 FROM event_template_images
		 WHERE event_template_id = $1
		 ORDER BY sort_order, id`,
		templateID)
	if err != nil {
		return nil, fmt.Errorf("list template images: %w", err)
	}
	defer rows.Close()

	images := []models.TemplateImage{}
	for rows.Next() {
		var img models.TemplateImage
		if err := rows.Scan(&img.ID, &img.EventTemplateID, &img.ImageURL, &img.SortOrder, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return images, nil
}

// AddTemplateImage appends an image after the template's current last one.
func (s *Store) AddTemplateImage(ctx context.Context, templateID int64, imageURL string) (*models.TemplateImage, error) {
	img := &models.TemplateImage{}
	err := s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO event_template_images (event_template_id, image_url, sort_order, created_at)
		 SELECT $1, $2, COALESCE(MAX(sort_order), -1) + 1, NOW()
		 FROM event_template_images
		 WHERE event_template_id = $1
		 RETURNING id, event_template_id, image_url, sort_order, created_at`,
		templateID, imageURL,
	).Scan(&img.ID, &img.EventTemplateID, &img.ImageURL, &img.SortOrder, &img.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("add template image: %w", err)
	}
	return img, nil
}

func (s *Store) DeleteTemplateImage(ctx context.Context, templateID, imageID int64) error {
	result, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM event_template_images WHERE id = $1 AND event_template_id = $2`,
		imageID, templateID)
	if err != nil {
		return fmt.Errorf("delete template image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrImageNotFound
	}
	return nil
}

func (s *Store) ListTemplateAddresses(ctx context.Context, templateID int64) ([]models.TemplateAddress, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT a.event_template_id, a.city_id, c.name, a.venue_address
		 FROM event_template_addresses a
		 JOIN cities c ON c.id = a.city_id
		 WHERE a.event_template_id = $1
		 ORDER BY c.name`,
		templateID)
	if err != nil {
		return nil, fmt.Errorf("list template addresses: %w", err)
	}
	defer rows.Close()

	addresses := []models.TemplateAddress{}
	for rows.Next() {
		var addr models.TemplateAddress
		if err := rows.Scan(&addr.EventTemplateID, &addr.CityID, &addr.CityName, &addr.VenueAddress); err != nil {
			return nil, fmt.Errorf("scan template address: %w", err)
		}
		addresses = append(addresses, addr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return addresses, nil
}

// ReplaceTemplateAddresses swaps the template's per-city venues for
// addresses in one transaction.
func (s *Store) ReplaceTemplateAddresses(ctx context.Context, templateID int64, addresses []models.TemplateAddress) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		var id int64
		err := s.conn(ctx).QueryRowContext(ctx,
			`SELECT id FROM event_templates WHERE id = $1 FOR UPDATE`, templateID).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.ErrTemplateNotFound
			}
			return fmt.Errorf("lock event template: %w", err)
		}

		if _, err := s.conn(ctx).ExecContext(ctx,
			`DELETE FROM event_template_addresses WHERE event_template_id = $1`, templateID); err != nil {
			return fmt.Errorf("clear template addresses: %w", err)
		}

		for _, addr := range addresses {
			_, err := s.conn(ctx).ExecContext(ctx,
				`INSERT INTO event_template_addresses (event_template_id, city_id, venue_address)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (event_template_id, city_id) DO UPDATE SET venue_address = EXCLUDED.venue_address`,
				templateID, addr.CityID, addr.VenueAddress)
			if err != nil {
				if database.IsForeignKeyViolation(err) {
					return database.ErrCityNotFound
				}
				return fmt.Errorf("insert template address: %w", err)
			}
		}
		return nil
	})
}

// TemplateAddress returns the default venue for a template in a city, or ""
// when none is set.
func (s *Store) TemplateAddress(ctx context.Context, templateID, cityID int64) (string, error) {
	var address string
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT venue_address FROM event_template_addresses WHERE event_template_id = $1 AND city_id = $2`,
		templateID, cityID).Scan(&address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get template address: %w", err)
	}
	return address, nil
}

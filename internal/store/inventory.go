package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
)

// Reserve decrements the seat count of item by seats in a single conditional
// statement, so concurrent reservations against the same row serialize on the
// row lock and availability never goes negative.
func (s *Store) Reserve(ctx context.Context, item models.ItemRef, seats int) error {
	if seats < 1 {
		return fmt.Errorf("reserve %d seats: non-positive count", seats)
	}

	var query string
	switch item.Kind {
	case models.ItemEvent:
		query = `
			UPDATE events
			SET available_seats = available_seats - $1
			WHERE id = $2
			  AND available_seats >= $1`
	case models.ItemLink:
		query = `
			UPDATE generated_links
			SET available_seats = available_seats - $1
			WHERE id = $2
			  AND is_active
			  AND available_seats >= $1`
	default:
		return fmt.Errorf("reserve: unknown item kind %q", item.Kind)
	}

	result, err := s.conn(ctx).ExecContext(ctx, query, seats, item.ID)
	if err != nil {
		return fmt.Errorf("reserve seats: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := s.Available(ctx, item); err != nil {
			return err
		}
		return database.ErrInsufficientSeats
	}

	return nil
}

// Release returns seats to item's pool.
func (s *Store) Release(ctx context.Context, item models.ItemRef, seats int) error {
	var query string
	switch item.Kind {
	case models.ItemEvent:
		query = `UPDATE events SET available_seats = available_seats + $1 WHERE id = $2`
	case models.ItemLink:
		query = `UPDATE generated_links SET available_seats = available_seats + $1 WHERE id = $2`
	default:
		return fmt.Errorf("release: unknown item kind %q", item.Kind)
	}

	result, err := s.conn(ctx).ExecContext(ctx, query, seats, item.ID)
	if err != nil {
		return fmt.Errorf("release seats: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundFor(item)
	}

	return nil
}

// Available reads the current seat count of item. Inactive links report
// ErrLinkNotFound.
func (s *Store) Available(ctx context.Context, item models.ItemRef) (int, error) {
	var query string
	switch item.Kind {
	case models.ItemEvent:
		query = `SELECT available_seats FROM events WHERE id = $1`
	case models.ItemLink:
		query = `SELECT available_seats FROM generated_links WHERE id = $1 AND is_active`
	default:
		return 0, fmt.Errorf("available: unknown item kind %q", item.Kind)
	}

	var seats int
	err := s.conn(ctx).QueryRowContext(ctx, query, item.ID).Scan(&seats)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFoundFor(item)
		}
		return 0, fmt.Errorf("get available seats: %w", err)
	}

	return seats, nil
}

func notFoundFor(item models.ItemRef) error {
	if item.Kind == models.ItemLink {
		return database.ErrLinkNotFound
	}
	return database.ErrEventNotFound
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
)

const orderSelect = `
	SELECT o.id, o.order_code, o.event_id, o.event_template_id, o.link_id, o.link_code, o.admin_id,
	       o.customer_name, o.customer_phone, o.customer_email, o.seats_count, o.total_price,
	       o.status, o.payment_status, o.created_at, o.updated_at,
	       COALESCE(e.name, et.name, ''),
	       COALESCE(e.date, gl.event_date, ''),
	       COALESCE(e.time, gl.event_time, ''),
	       COALESCE(ec.name, lc.name, ''),
	       COALESCE(gl.venue_address, ''),
	       COALESCE(NULLIF(e.cover_image_url, ''), et.image_url, ''),
	       COALESCE(et.ticket_image_url, '')
	FROM orders o
	LEFT JOIN events e ON e.id = o.event_id
	LEFT JOIN cities ec ON ec.id = e.city_id
	LEFT JOIN event_templates et ON et.id = o.event_template_id
	LEFT JOIN generated_links gl ON gl.id = o.link_id
	LEFT JOIN cities lc ON lc.id = gl.city_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderCode,
		&order.EventID,
		&order.EventTemplateID,
		&order.LinkID,
		&order.LinkCode,
		&order.AdminID,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.CustomerEmail,
		&order.SeatsCount,
		&order.TotalPrice,
		&order.Status,
		&order.PaymentStatus,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.EventName,
		&order.EventDate,
		&order.EventTime,
		&order.CityName,
		&order.VenueAddress,
		&order.ImageURL,
		&order.TicketImageURL,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CreateOrder inserts draft in the pending state and returns the stored
// order with its item details filled in. It does not touch inventory.
func (s *Store) CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	var eventID, linkID *int64
	switch draft.Item.Kind {
	case models.ItemEvent:
		eventID = &draft.Item.ID
	case models.ItemLink:
		linkID = &draft.Item.ID
	default:
		return nil, fmt.Errorf("create order: unknown item kind %q", draft.Item.Kind)
	}

	var orderID int64
	err := s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO orders (
			order_code, event_id, event_template_id, link_id, link_code, admin_id,
			customer_name, customer_phone, customer_email, seats_count, total_price,
			status, payment_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		 RETURNING id`,
		draft.OrderCode, eventID, draft.EventTemplateID, linkID, draft.LinkCode, draft.AdminID,
		draft.CustomerName, draft.CustomerPhone, draft.CustomerEmail, draft.SeatsCount, draft.TotalPrice,
		models.OrderStatusPending, models.PaymentStatusPending,
	).Scan(&orderID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "orders_order_code_key" {
			return nil, database.ErrDuplicateOrderCode
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	return s.GetOrder(ctx, orderID)
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := scanOrder(s.conn(ctx).QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (s *Store) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	order, err := scanOrder(s.conn(ctx).QueryRowContext(ctx, orderSelect+` WHERE o.order_code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by code: %w", err)
	}
	return order, nil
}

// TransitionStatus moves order id to status `to` only if its current status
// is one of from, and sets payment_status alongside. It reports whether this
// call performed the transition; concurrent callers racing on the same order
// see exactly one true.
func (s *Store) TransitionStatus(ctx context.Context, id int64, from []string, to, paymentStatus string) (bool, error) {
	result, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE orders
		 SET status = $2,
		     payment_status = $3,
		     updated_at = NOW()
		 WHERE id = $1
		   AND status = ANY($4)`,
		id, to, paymentStatus, pq.Array(from))
	if err != nil {
		return false, fmt.Errorf("transition order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ListOrdersCursor pages through orders placed against adminID's events plus
// link orders, which belong to no admin, newest first.
func (s *Store) ListOrdersCursor(ctx context.Context, adminID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := orderSelect + `
		WHERE (o.admin_id = $1 OR o.admin_id IS NULL)
		  AND (o.created_at, o.id) < ($2, $3)
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $4`

	rows, err := s.conn(ctx).QueryContext(ctx, query, adminID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (s *Store) RecordAdminMessage(ctx context.Context, msg models.AdminMessage) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO admin_messages (order_id, chat_id, message_id, kind, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (chat_id, message_id) DO NOTHING`,
		msg.OrderID, msg.ChatID, msg.MessageID, msg.Kind)
	if err != nil {
		return fmt.Errorf("record admin message: %w", err)
	}
	return nil
}

// ListAdminMessages returns every admin message recorded for the order in
// the order they were sent.
func (s *Store) ListAdminMessages(ctx context.Context, orderID int64) ([]models.AdminMessage, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT order_id, chat_id, message_id, kind, created_at
		 FROM admin_messages
		 WHERE order_id = $1
		 ORDER BY created_at, id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("list admin messages: %w", err)
	}
	defer rows.Close()

	messages := []models.AdminMessage{}
	for rows.Next() {
		var msg models.AdminMessage
		if err := rows.Scan(&msg.OrderID, &msg.ChatID, &msg.MessageID, &msg.Kind, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return messages, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-ticket-desk/internal/models"
)

// PaymentSettingsForOrder resolves the card details a buyer pays to: the
// event owner's settings for event orders, the global settings otherwise.
// Missing settings yield empty values.
func (s *Store) PaymentSettingsForOrder(ctx context.Context, order *models.Order) (*models.PaymentSettings, error) {
	if order.AdminID != nil {
		settings, err := s.GetAdminPaymentSettings(ctx, *order.AdminID)
		if err != nil {
			return nil, err
		}
		if *settings != (models.PaymentSettings{}) {
			return settings, nil
		}
	}
	return s.GetGlobalPaymentSettings(ctx)
}

func (s *Store) GetGlobalPaymentSettings(ctx context.Context) (*models.PaymentSettings, error) {
	settings := &models.PaymentSettings{}
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT card_number, card_holder_name, bank_name
		 FROM payment_settings
		 ORDER BY id DESC
		 LIMIT 1`).Scan(&settings.CardNumber, &settings.CardHolderName, &settings.BankName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, nil
		}
		return nil, fmt.Errorf("get payment settings: %w", err)
	}
	return settings, nil
}

func (s *Store) GetAdminPaymentSettings(ctx context.Context, adminID int64) (*models.PaymentSettings, error) {
	settings := &models.PaymentSettings{}
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT card_number, card_holder_name, bank_name
		 FROM admin_payment_settings
		 WHERE admin_id = $1`,
		adminID).Scan(&settings.CardNumber, &settings.CardHolderName, &settings.BankName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, nil
		}
		return nil, fmt.Errorf("get admin payment settings: %w", err)
	}
	return settings, nil
}

func (s *Store) UpsertAdminPaymentSettings(ctx context.Context, adminID int64, settings models.PaymentSettings) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO admin_payment_settings (admin_id, card_number, card_holder_name, bank_name, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (admin_id) DO UPDATE SET
		     card_number = EXCLUDED.card_number,
		     card_holder_name = EXCLUDED.card_holder_name,
		     bank_name = EXCLUDED.bank_name,
		     updated_at = NOW()`,
		adminID, settings.CardNumber, settings.CardHolderName, settings.BankName)
	if err != nil {
		return fmt.Errorf("upsert admin payment settings: %w", err)
	}
	return nil
}

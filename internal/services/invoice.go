package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/apperr"
	"github.com/dynexia/portal/internal/models"
)

// numberAttempts bounds the retry loop when two creates race for the same
// sequential number; the unique index on invoice_number is the arbiter.
const numberAttempts = 3

// InvoiceService encapsulates invoice creation and numbering.
type InvoiceService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewInvoiceService(db *gorm.DB, log *zap.Logger) *InvoiceService {
	return &InvoiceService{DB: db, Log: log}
}

// NextNumber formats the sequential invoice number for a given count of
// existing invoices: INV- plus the count+1 zero-padded to at least 3 digits.
func NextNumber(count int64) string {
	return fmt.Sprintf("INV-%03d", count+1)
}

// Create persists the invoice. When no number is supplied one is assigned
// from the current invoice count inside a transaction; a duplicate-key
// conflict (two concurrent creates picking the same number) re-counts and
// retries instead of failing the request.
func (s *InvoiceService) Create(ctx context.Context, inv *models.Invoice) error {
	if inv.InvoiceNumber != "" {
		if err := s.DB.WithContext(ctx).Create(inv).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("invoice number already in use")
			}
			return apperr.Upstream("persist invoice", err)
		}
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.Invoice{}).Count(&count).Error; err != nil {
				return err
			}
			// Offset by the attempt so a number held by an out-of-sequence
			// invoice does not produce the same collision on every retry.
			inv.InvoiceNumber = NextNumber(count + int64(attempt))
			return tx.Create(inv).Error
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Upstream("persist invoice", err)
		}
		// lost the race for this number; reset and re-count
		inv.ID = 0
		inv.InvoiceNumber = ""
		for i := range inv.Items {
			inv.Items[i].ID = 0
			inv.Items[i].InvoiceID = 0
		}
		s.Log.Warn("invoice number conflict, retrying", zap.Int("attempt", attempt+1))
	}
	return apperr.Conflict(fmt.Sprintf("could not assign invoice number: %v", lastErr))
}

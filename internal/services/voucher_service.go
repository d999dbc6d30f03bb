package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"voucher-market/internal/logging"
	"voucher-market/internal/models"
	"voucher-market/internal/qrcode"
	"voucher-market/internal/repository"
	"voucher-market/internal/utils"
)

const codeAttempts = 3

// VoucherService handles voucher publishing and browsing
type VoucherService struct {
	repo   *repository.Repository
	appURL string
	logger *zap.Logger
	now    Clock
}

// NewVoucherService creates a new VoucherService. appURL is the public base URL encoded in QR codes.
func NewVoucherService(repo *repository.Repository, appURL string, logger *zap.Logger) *VoucherService {
	return &VoucherService{
		repo:   repo,
		appURL: appURL,
		logger: logging.OrNop(logger),
		now:    utcNow,
	}
}

// SetClock replaces the time source
func (s *VoucherService) SetClock(now Clock) {
	s.now = now
}

// Actor is the authenticated caller of a mutating operation
type Actor struct {
	UserID uuid.UUID
	Role   models.UserRole
}

// CreateVoucherInput holds the fields of a new voucher
type CreateVoucherInput struct {
	CategoryID     uuid.UUID
	Title          string
	Description    string
	Terms          *string
	Discount       *int
	Value          *decimal.Decimal
	ImageURL       *string
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	MaxRedemptions *int
}

// UpdateVoucherInput holds a partial voucher update; nil fields are left unchanged
type UpdateVoucherInput struct {
	CategoryID     *uuid.UUID
	Title          *string
	Description    *string
	Terms          *string
	Discount       *int
	Value          *decimal.Decimal
	ImageURL       *string
	IsActive       *bool
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	MaxRedemptions *int
}

// CreatedVoucher is a new voucher together with its QR code image
type CreatedVoucher struct {
	Voucher     *models.Voucher
	QRCodeImage string
}

// ListFilter narrows the public listing
type ListFilter struct {
	CategoryID *uuid.UUID
	PartnerID  *uuid.UUID
}

// List returns the vouchers currently on offer
func (s *VoucherService) List(ctx context.Context, filter ListFilter) ([]models.Voucher, error) {
	return s.repo.ListVouchers(ctx, repository.VoucherFilter{
		CategoryID: filter.CategoryID,
		PartnerID:  filter.PartnerID,
		ValidAt:    s.now(),
	})
}

// Get retrieves a voucher with partner and category
func (s *VoucherService) Get(ctx context.Context, voucherID uuid.UUID) (*models.Voucher, error) {
	voucher, err := s.repo.GetVoucherByID(ctx, voucherID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return voucher, err
}

// Create publishes a voucher for the approved partner owned by userID
func (s *VoucherService) Create(ctx context.Context, userID uuid.UUID, in CreateVoucherInput) (*CreatedVoucher, error) {
	partner, err := s.repo.GetPartnerByUserID(ctx, userID, false)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotPartner
	}
	if err != nil {
		return nil, err
	}
	if !partner.IsApproved {
		return nil, ErrPartnerNotApproved
	}

	now := s.now()
	validFrom := now
	if in.ValidFrom != nil {
		validFrom = in.ValidFrom.UTC()
	}
	validUntil := utcPtr(in.ValidUntil)

	if err := validateVoucherFields(in.Discount, in.Value, in.MaxRedemptions, validFrom, validUntil); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	voucher := &models.Voucher{
		PartnerID:      partner.ID,
		CategoryID:     in.CategoryID,
		Title:          in.Title,
		Description:    in.Description,
		Terms:          in.Terms,
		Discount:       in.Discount,
		Value:          in.Value,
		ImageURL:       in.ImageURL,
		IsActive:       true,
		ValidFrom:      validFrom,
		ValidUntil:     validUntil,
		MaxRedemptions: in.MaxRedemptions,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for attempt := 1; ; attempt++ {
		voucher.ID = uuid.New()
		voucher.Code, err = utils.GenerateVoucherCode(now)
		if err != nil {
			return nil, err
		}
		err = s.repo.CreateVoucher(ctx, voucher)
		if err == nil {
			break
		}
		if !repository.IsUniqueViolation(err) || attempt == codeAttempts {
			return nil, fmt.Errorf("failed to create voucher: %w", err)
		}
	}

	qr, err := qrcode.DataURL(qrcode.VoucherURL(s.appURL, voucher.Code))
	if err != nil {
		return nil, err
	}

	created, err := s.repo.GetVoucherByID(ctx, voucher.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Voucher created",
		zap.String("voucher_id", created.ID.String()),
		zap.String("partner_id", partner.ID.String()),
		zap.String("code", created.Code),
	)
	return &CreatedVoucher{Voucher: created, QRCodeImage: qr}, nil
}

// Update applies a partial update. Only the owning partner or an admin may edit.
// The cap can never be lowered below the redemptions already recorded.
func (s *VoucherService) Update(ctx context.Context, actor Actor, voucherID uuid.UUID, in UpdateVoucherInput) (*models.Voucher, error) {
	if err := s.authorize(ctx, actor, voucherID); err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}

	voucher, err := s.repo.UpdateVoucher(ctx, voucherID, func(current *models.Voucher) (map[string]interface{}, error) {
		validFrom := current.ValidFrom
		if in.ValidFrom != nil {
			validFrom = in.ValidFrom.UTC()
		}
		validUntil := current.ValidUntil
		if in.ValidUntil != nil {
			validUntil = utcPtr(in.ValidUntil)
		}
		if err := validateVoucherFields(in.Discount, in.Value, in.MaxRedemptions, validFrom, validUntil); err != nil {
			return nil, err
		}
		if in.MaxRedemptions != nil && *in.MaxRedemptions < current.RedemptionsUsed {
			return nil, invalid("maxRedemptions",
				fmt.Sprintf("must be at least %d, the number of redemptions already made", current.RedemptionsUsed))
		}

		updates := map[string]interface{}{}
		setIf := func(column string, changed bool, value interface{}) {
			if changed {
				updates[column] = value
			}
		}
		setIf("category_id", in.CategoryID != nil, derefUUID(in.CategoryID))
		setIf("title", in.Title != nil, derefString(in.Title))
		setIf("description", in.Description != nil, derefString(in.Description))
		setIf("terms", in.Terms != nil, in.Terms)
		setIf("discount", in.Discount != nil, in.Discount)
		setIf("value", in.Value != nil, in.Value)
		setIf("image_url", in.ImageURL != nil, in.ImageURL)
		setIf("is_active", in.IsActive != nil, in.IsActive != nil && *in.IsActive)
		setIf("valid_from", in.ValidFrom != nil, validFrom)
		setIf("valid_until", in.ValidUntil != nil, validUntil)
		setIf("max_redemptions", in.MaxRedemptions != nil, in.MaxRedemptions)
		if len(updates) > 0 {
			updates["updated_at"] = s.now()
		}
		return updates, nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return voucher, err
}

// Delete removes a voucher. Only the owning partner or an admin may delete.
func (s *VoucherService) Delete(ctx context.Context, actor Actor, voucherID uuid.UUID) error {
	if err := s.authorize(ctx, actor, voucherID); err != nil {
		return err
	}
	err := s.repo.DeleteVoucher(ctx, voucherID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err == nil {
		s.logger.Info("Voucher deleted", zap.String("voucher_id", voucherID.String()), zap.String("by", actor.UserID.String()))
	}
	return err
}

// QRCode renders the voucher's QR code as PNG
func (s *VoucherService) QRCode(ctx context.Context, voucherID uuid.UUID) ([]byte, error) {
	voucher, err := s.Get(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	return qrcode.PNG(qrcode.VoucherURL(s.appURL, voucher.Code))
}

func (s *VoucherService) authorize(ctx context.Context, actor Actor, voucherID uuid.UUID) error {
	voucher, err := s.Get(ctx, voucherID)
	if err != nil {
		return err
	}
	if actor.Role == models.UserRoleAdmin {
		return nil
	}
	if voucher.Partner == nil || voucher.Partner.UserID != actor.UserID {
		return ErrForbidden
	}
	return nil
}

func (s *VoucherService) checkCategory(ctx context.Context, categoryID uuid.UUID) error {
	_, err := s.repo.GetCategoryByID(ctx, categoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("categoryId", "unknown category")
	}
	return err
}

func validateVoucherFields(discount *int, value *decimal.Decimal, maxRedemptions *int, validFrom time.Time, validUntil *time.Time) error {
	if discount != nil && (*discount < 0 || *discount > 100) {
		return invalid("discount", "must be between 0 and 100")
	}
	if value != nil && value.IsNegative() {
		return invalid("value", "must not be negative")
	}
	if maxRedemptions != nil && *maxRedemptions <= 0 {
		return invalid("maxRedemptions", "must be positive")
	}
	if validUntil != nil && validUntil.Before(validFrom) {
		return invalid("validUntil", "must not be before validFrom")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

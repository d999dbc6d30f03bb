package services

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voucher-market/internal/models"
)

var voucherNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newVoucherService(t *testing.T) (*VoucherService, world, *RedemptionService) {
	db, repo := setupRepo(t)
	w := seedWorld(t, db)

	svc := NewVoucherService(repo, "https://vouchers.test", nil)
	svc.SetClock(func() time.Time { return voucherNow })
	redemptions := NewRedemptionService(repo, nil, nil)
	redemptions.SetClock(func() time.Time { return voucherNow })
	return svc, w, redemptions
}

func validInput(w world) CreateVoucherInput {
	value := decimal.RequireFromString("25.50")
	return CreateVoucherInput{
		CategoryID:     w.category.ID,
		Title:          "Brunch for two",
		Description:    "Sunday brunch",
		Discount:       intPtr(20),
		Value:          &value,
		MaxRedemptions: intPtr(2),
	}
}

func TestCreateVoucher(t *testing.T) {
	svc, w, _ := newVoucherService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, w.owner.ID, validInput(w))
	require.NoError(t, err)

	v := created.Voucher
	assert.True(t, strings.HasPrefix(v.Code, "BABSY-"))
	assert.Equal(t, strings.ToUpper(v.Code), v.Code)
	assert.True(t, v.IsActive)
	assert.True(t, v.ValidFrom.Equal(voucherNow), "validFrom defaults to now")
	assert.Equal(t, w.partner.ID, v.PartnerID)
	require.NotNil(t, v.Category)
	assert.Equal(t, "25.5", v.Value.String())
	assert.True(t, strings.HasPrefix(created.QRCodeImage, "data:image/png;base64,"))
}

func TestCreateVoucherRequiresApprovedPartner(t *testing.T) {
	svc, w, _ := newVoucherService(t)
	ctx := context.Background()
	repo := svc.repo

	outsider, err := repo.FindOrCreateUserByEmail(ctx, "outsider@company.ch", models.AuthMethodOTP)
	require.NoError(t, err)
	_, err = svc.Create(ctx, outsider.ID, validInput(w))
	assert.ErrorIs(t, err, ErrNotPartner)

	pending := &models.Partner{UserID: outsider.ID, BusinessName: "Pending"}
	require.NoError(t, repo.CreatePartner(ctx, pending))
	_, err = svc.Create(ctx, outsider.ID, validInput(w))
	assert.ErrorIs(t, err, ErrPartnerNotApproved)
}

func TestCreateVoucherValidation(t *testing.T) {
	svc, w, _ := newVoucherService(t)
	ctx := context.Background()

	negative := decimal.NewFromInt(-1)
	before := voucherNow.Add(-time.Hour)

	tests := []struct {
		name  string
		field string
		edit  func(in *CreateVoucherInput)
	}{
		{"discount above 100", "discount", func(in *CreateVoucherInput) { in.Discount = intPtr(101) }},
		{"negative value", "value", func(in *CreateVoucherInput) { in.Value = &negative }},
		{"zero cap", "maxRedemptions", func(in *CreateVoucherInput) { in.MaxRedemptions = intPtr(0) }},
		{"ends before start", "validUntil", func(in *CreateVoucherInput) { in.ValidUntil = &before }},
		{"unknown category", "categoryId", func(in *CreateVoucherInput) { in.CategoryID = uuid.New() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(w)
			tt.edit(&in)

			_, err := svc.Create(ctx, w.owner.ID, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestUpdateVoucher(t *testing.T) {
	svc, w, redemptions := newVoucherService(t)
	ctx := context.Background()
	repo := svc.repo

	created, err := svc.Create(ctx, w.owner.ID, validInput(w))
	require.NoError(t, err)
	id := created.Voucher.ID
	owner := Actor{UserID: w.owner.ID, Role: models.UserRolePartner}

	for _, email := range []string{"a@company.ch", "b@company.ch"} {
		u, err := repo.FindOrCreateUserByEmail(ctx, email, models.AuthMethodOTP)
		require.NoError(t, err)
		_, err = redemptions.Redeem(ctx, id, u.ID, RedeemRequest{})
		require.NoError(t, err)
	}

	t.Run("cap cannot drop below redemptions used", func(t *testing.T) {
		_, err := svc.Update(ctx, owner, id, UpdateVoucherInput{MaxRedemptions: intPtr(1)})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "maxRedemptions", verr.Field)
	})

	t.Run("owner can raise cap and deactivate", func(t *testing.T) {
		off := false
		updated, err := svc.Update(ctx, owner, id, UpdateVoucherInput{
			MaxRedemptions: intPtr(10),
			IsActive:       &off,
			Title:          strPtr("Brunch for three"),
		})
		require.NoError(t, err)
		assert.Equal(t, 10, *updated.MaxRedemptions)
		assert.False(t, updated.IsActive)
		assert.Equal(t, "Brunch for three", updated.Title)
		assert.Equal(t, 2, updated.RedemptionsUsed)
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		stranger := Actor{UserID: uuid.New(), Role: models.UserRolePartner}
		_, err := svc.Update(ctx, stranger, id, UpdateVoucherInput{Title: strPtr("mine")})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("admins may edit any voucher", func(t *testing.T) {
		admin := Actor{UserID: uuid.New(), Role: models.UserRoleAdmin}
		on := true
		updated, err := svc.Update(ctx, admin, id, UpdateVoucherInput{IsActive: &on})
		require.NoError(t, err)
		assert.True(t, updated.IsActive)
	})

	t.Run("unknown voucher", func(t *testing.T) {
		_, err := svc.Update(ctx, owner, uuid.New(), UpdateVoucherInput{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListVouchers(t *testing.T) {
	svc, w, _ := newVoucherService(t)
	ctx := context.Background()

	live, err := svc.Create(ctx, w.owner.ID, validInput(w))
	require.NoError(t, err)

	future := voucherNow.Add(48 * time.Hour)
	in := validInput(w)
	in.ValidFrom = &future
	_, err = svc.Create(ctx, w.owner.ID, in)
	require.NoError(t, err)

	off := false
	hidden, err := svc.Create(ctx, w.owner.ID, validInput(w))
	require.NoError(t, err)
	_, err = svc.Update(ctx, Actor{UserID: w.owner.ID}, hidden.Voucher.ID, UpdateVoucherInput{IsActive: &off})
	require.NoError(t, err)

	vouchers, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, vouchers, 1)
	assert.Equal(t, live.Voucher.ID, vouchers[0].ID)
	require.NotNil(t, vouchers[0].Partner)

	other := uuid.New()
	vouchers, err = svc.List(ctx, ListFilter{CategoryID: &other})
	require.NoError(t, err)
	assert.Empty(t, vouchers)
}

func TestDeleteVoucherAndQRCode(t *testing.T) {
	svc, w, _ := newVoucherService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, w.owner.ID, validInput(w))
	require.NoError(t, err)
	id := created.Voucher.ID

	img, err := svc.QRCode(ctx, id)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(img))
	require.NoError(t, err)

	err = svc.Delete(ctx, Actor{UserID: uuid.New(), Role: models.UserRoleUser}, id)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(ctx, Actor{UserID: w.owner.ID, Role: models.UserRolePartner}, id))
	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.QRCode(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

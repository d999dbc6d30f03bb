package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voucher-market/internal/mail/mailtest"
	"voucher-market/internal/models"
)

func TestPartnerLifecycle(t *testing.T) {
	db, repo := setupRepo(t)
	sender := &mailtest.RecordingSender{}
	svc := NewPartnerService(repo, sender, "https://vouchers.test/", nil)
	ctx := context.Background()

	user := createUser(t, db, "owner@bakery.ch", models.UserRoleUser)

	_, err := svc.Register(ctx, user.ID, PartnerProfileInput{BusinessName: strPtr("  ")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "businessName", verr.Field)

	partner, err := svc.Register(ctx, user.ID, PartnerProfileInput{
		BusinessName: strPtr("Bäckerei Meier"),
		Phone:        strPtr("+41 44 000 00 00"),
	})
	require.NoError(t, err)
	assert.False(t, partner.IsApproved)

	reloaded, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserRolePartner, reloaded.Role)
	assert.Equal(t, "/partner/pending", LandingPath(reloaded))

	msg, ok := sender.Last()
	require.True(t, ok)
	assert.Equal(t, "owner@bakery.ch", msg.To)
	assert.Contains(t, msg.HTML, "https://vouchers.test/partner")

	_, err = svc.Register(ctx, user.ID, PartnerProfileInput{BusinessName: strPtr("Again")})
	assert.ErrorIs(t, err, ErrAlreadyPartner)

	listings, err := svc.ListApproved(ctx)
	require.NoError(t, err)
	assert.Empty(t, listings)

	approved, err := svc.Approve(ctx, partner.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	listings, err = svc.ListApproved(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Bäckerei Meier", listings[0].BusinessName)

	updated, err := svc.UpdateOwn(ctx, user.ID, PartnerProfileInput{Address: strPtr("Bahnhofstrasse 1, Zürich")})
	require.NoError(t, err)
	assert.Equal(t, "Bahnhofstrasse 1, Zürich", *updated.Address)
	assert.Equal(t, "Bäckerei Meier", updated.BusinessName)

	_, err = svc.Approve(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPartnerRegistrationSurvivesMailFailure(t *testing.T) {
	db, repo := setupRepo(t)
	svc := NewPartnerService(repo, &mailtest.RecordingSender{Fail: true}, "https://vouchers.test", nil)
	user := createUser(t, db, "owner@shop.ch", models.UserRoleUser)

	_, err := svc.Register(context.Background(), user.ID, PartnerProfileInput{BusinessName: strPtr("Shop")})
	assert.NoError(t, err)
}

func TestAdminKeepsRoleWhenRegisteringPartner(t *testing.T) {
	db, repo := setupRepo(t)
	svc := NewPartnerService(repo, &mailtest.RecordingSender{}, "https://vouchers.test", nil)
	admin := createUser(t, db, "admin@babsy.ch", models.UserRoleAdmin)

	_, err := svc.Register(context.Background(), admin.ID, PartnerProfileInput{BusinessName: strPtr("Babsy Shop")})
	require.NoError(t, err)

	reloaded, err := repo.GetUserByID(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, reloaded.Role)
}

func TestGetOwnWithoutPartner(t *testing.T) {
	db, repo := setupRepo(t)
	svc := NewPartnerService(repo, &mailtest.RecordingSender{}, "", nil)
	user := createUser(t, db, "user@company.ch", models.UserRoleUser)

	_, err := svc.GetOwn(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrNotPartner)
	_, err = svc.UpdateOwn(context.Background(), user.ID, PartnerProfileInput{})
	assert.ErrorIs(t, err, ErrNotPartner)
}

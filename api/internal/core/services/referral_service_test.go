package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebooked/api/internal/core/domain"
	"rebooked/api/internal/core/services"
)

type fakeReferralRepo struct {
	affiliates map[string]uuid.UUID
	referrals  map[uuid.UUID]*domain.Referral
	created    int
}

func newFakeReferralRepo() *fakeReferralRepo {
	return &fakeReferralRepo{
		affiliates: make(map[string]uuid.UUID),
		referrals:  make(map[uuid.UUID]*domain.Referral),
	}
}

func (f *fakeReferralRepo) FindAffiliateByCode(ctx context.Context, code string) (uuid.UUID, error) {
	id, ok := f.affiliates[code]
	if !ok {
		return uuid.Nil, domain.ErrAffiliateNotFound
	}
	return id, nil
}

func (f *fakeReferralRepo) FindByReferredUser(ctx context.Context, userID uuid.UUID) (*domain.Referral, error) {
	return f.referrals[userID], nil
}

func (f *fakeReferralRepo) Create(ctx context.Context, affiliateID, referredUserID uuid.UUID) (*domain.Referral, error) {
	f.created++
	ref := &domain.Referral{
		ID:             uuid.New(),
		AffiliateID:    affiliateID,
		ReferredUserID: referredUserID,
		CreatedAt:      time.Now().UTC(),
	}
	f.referrals[referredUserID] = ref
	return ref, nil
}

func TestTrackReferral_CreatesLink(t *testing.T) {
	repo := newFakeReferralRepo()
	affiliateID := uuid.New()
	repo.affiliates["BOOKS10"] = affiliateID
	svc := services.NewReferralService(repo, testLogger)

	newUser := uuid.New()
	outcome, err := svc.TrackReferral(context.Background(), "BOOKS10", newUser)

	require.NoError(t, err)
	assert.False(t, outcome.AlreadyReferred)
	assert.Equal(t, affiliateID, outcome.Referral.AffiliateID)
	assert.Equal(t, newUser, outcome.Referral.ReferredUserID)
	assert.Equal(t, 1, repo.created)
}

func TestTrackReferral_InvalidCode(t *testing.T) {
	svc := services.NewReferralService(newFakeReferralRepo(), testLogger)

	_, err := svc.TrackReferral(context.Background(), "NOPE", uuid.New())

	assert.ErrorIs(t, err, domain.ErrAffiliateNotFound)
}

func TestTrackReferral_AlreadyReferredIsNoOp(t *testing.T) {
	repo := newFakeReferralRepo()
	repo.affiliates["BOOKS10"] = uuid.New()
	repo.affiliates["OTHER"] = uuid.New()
	svc := services.NewReferralService(repo, testLogger)

	newUser := uuid.New()
	first, err := svc.TrackReferral(context.Background(), "BOOKS10", newUser)
	require.NoError(t, err)

	// A second attribution attempt, even via another affiliate, changes nothing.
	second, err := svc.TrackReferral(context.Background(), "OTHER", newUser)
	require.NoError(t, err)
	assert.True(t, second.AlreadyReferred)
	assert.Equal(t, first.Referral.ID, second.Referral.ID)
	assert.Equal(t, 1, repo.created)
}

package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebooked/api/internal/api/handlers"
	"rebooked/api/internal/core/domain"
	"rebooked/api/internal/core/services"
)

type fakeReferralRepo struct {
	affiliates map[string]uuid.UUID
	referrals  map[uuid.UUID]*domain.Referral
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
	ref := &domain.Referral{
		ID:             uuid.New(),
		AffiliateID:    affiliateID,
		ReferredUserID: referredUserID,
		CreatedAt:      time.Now().UTC(),
	}
	if f.referrals == nil {
		f.referrals = make(map[uuid.UUID]*domain.Referral)
	}
	f.referrals[referredUserID] = ref
	return ref, nil
}

func trackRequest(body string) *httptest.ResponseRecorder {
	repo := &fakeReferralRepo{affiliates: map[string]uuid.UUID{"BOOKS10": uuid.New()}}
	return trackRequestWith(repo, body)
}

func trackRequestWith(repo *fakeReferralRepo, body string) *httptest.ResponseRecorder {
	svc := services.NewReferralService(repo, testLogger)
	handler := handlers.NewReferralHandler(svc, nil, testLogger)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/referrals/track", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Track(rec, req)
	return rec
}

func TestTrack_CreatesReferral(t *testing.T) {
	userID := uuid.New()
	rec := trackRequest(`{"affiliate_code":"BOOKS10","new_user_id":"` + userID.String() + `"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success  bool             `json:"success"`
		Referral *domain.Referral `json:"referral"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Referral)
	assert.Equal(t, userID, resp.Referral.ReferredUserID)
}

func TestTrack_MissingFields(t *testing.T) {
	rec := trackRequest(`{"affiliate_code":"BOOKS10"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = trackRequest(`{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = trackRequest(`{"affiliate_code":"BOOKS10","new_user_id":"not-a-uuid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrack_InvalidAffiliateCode(t *testing.T) {
	rec := trackRequest(`{"affiliate_code":"UNKNOWN","new_user_id":"` + uuid.NewString() + `"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrack_AlreadyReferred(t *testing.T) {
	affiliateID := uuid.New()
	userID := uuid.New()
	repo := &fakeReferralRepo{
		affiliates: map[string]uuid.UUID{"BOOKS10": affiliateID},
		referrals: map[uuid.UUID]*domain.Referral{
			userID: {ID: uuid.New(), AffiliateID: affiliateID, ReferredUserID: userID},
		},
	}

	rec := trackRequestWith(repo, `{"affiliate_code":"BOOKS10","new_user_id":"`+userID.String()+`"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "User already has a referrer", resp.Message)
}

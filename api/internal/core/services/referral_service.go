package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"rebooked/api/internal/core/domain"
)

// ReferralOutcome distinguishes a freshly created referral from a no-op for
// a user who already has a referrer.
type ReferralOutcome struct {
	Referral        *domain.Referral
	AlreadyReferred bool
}

// ReferralService records which affiliate referred a newly signed-up user.
type ReferralService struct {
	repo   domain.ReferralRepository
	logger *slog.Logger
}

func NewReferralService(repo domain.ReferralRepository, logger *slog.Logger) *ReferralService {
	return &ReferralService{repo: repo, logger: logger}
}

// TrackReferral links newUserID to the affiliate owning code. A user can be
// referred at most once; a second attempt returns the existing link instead
// of erroring, so signup flows can call this without coordination.
func (s *ReferralService) TrackReferral(ctx context.Context, code string, newUserID uuid.UUID) (*ReferralOutcome, error) {
	affiliateID, err := s.repo.FindAffiliateByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByReferredUser(ctx, newUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("User already referred", slog.String("user_id", newUserID.String()))
		return &ReferralOutcome{Referral: existing, AlreadyReferred: true}, nil
	}

	referral, err := s.repo.Create(ctx, affiliateID, newUserID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Referral created",
		slog.String("affiliate_id", affiliateID.String()),
		slog.String("user_id", newUserID.String()),
	)

	return &ReferralOutcome{Referral: referral}, nil
}

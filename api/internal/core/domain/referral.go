package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrAffiliateNotFound is returned when no active affiliate carries the
// supplied referral code.
var ErrAffiliateNotFound = errors.New("invalid affiliate code")

// Referral links a newly signed-up user to the affiliate whose code they
// used. A user can be referred at most once; later attempts are no-ops.
type Referral struct {
	ID             uuid.UUID `json:"id"`
	AffiliateID    uuid.UUID `json:"affiliate_id"`
	ReferredUserID uuid.UUID `json:"referred_user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReferralRepository is the persistence port for affiliate bookkeeping.
type ReferralRepository interface {
	// FindAffiliateByCode resolves an active affiliate's profile id,
	// or ErrAffiliateNotFound.
	FindAffiliateByCode(ctx context.Context, code string) (uuid.UUID, error)

	// FindByReferredUser returns the existing referral for a user, or nil.
	FindByReferredUser(ctx context.Context, userID uuid.UUID) (*Referral, error)

	// Create inserts a new referral row and returns it.
	Create(ctx context.Context, affiliateID, referredUserID uuid.UUID) (*Referral, error)
}

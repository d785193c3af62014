package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rebooked/api/internal/core/domain"
)

// ReferralRepo implements domain.ReferralRepository for PostgreSQL.
type ReferralRepo struct {
	pool *pgxpool.Pool
}

func NewReferralRepo(pool *pgxpool.Pool) *ReferralRepo {
	return &ReferralRepo{pool: pool}
}

// FindAffiliateByCode resolves a referral code to the owning affiliate's
// profile id. Inactive affiliates are filtered at the query level.
func (r *ReferralRepo) FindAffiliateByCode(ctx context.Context, code string) (uuid.UUID, error) {
	const query = `
		SELECT id FROM profiles
		WHERE affiliate_code = $1 AND is_affiliate = true;
	`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query, code).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, domain.ErrAffiliateNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to look up affiliate: %w", err)
	}

	return id, nil
}

// FindByReferredUser returns the existing referral for a user, or nil.
func (r *ReferralRepo) FindByReferredUser(ctx context.Context, userID uuid.UUID) (*domain.Referral, error) {
	const query = `
		SELECT id, affiliate_id, referred_user_id, created_at
		FROM affiliates_referrals
		WHERE referred_user_id = $1;
	`

	var ref domain.Referral
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&ref.ID, &ref.AffiliateID, &ref.ReferredUserID, &ref.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up referral: %w", err)
	}

	return &ref, nil
}

// Create inserts the referral link and returns the stored row.
func (r *ReferralRepo) Create(ctx context.Context, affiliateID, referredUserID uuid.UUID) (*domain.Referral, error) {
	const query = `
		INSERT INTO affiliates_referrals (affiliate_id, referred_user_id)
		VALUES ($1, $2)
		RETURNING id, affiliate_id, referred_user_id, created_at;
	`

	var ref domain.Referral
	err := r.pool.QueryRow(ctx, query, affiliateID, referredUserID).Scan(
		&ref.ID, &ref.AffiliateID, &ref.ReferredUserID, &ref.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create referral: %w", err)
	}

	return &ref, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rebooked/api/internal/core/domain"
)

// envelopeColumns maps a sensitive field name to its envelope column. Acting
// as an allowlist, it is the only way a field name can reach SQL text, so
// identifiers are never interpolated from caller input.
var envelopeColumns = map[string]string{
	"account_number": "encrypted_account_number",
	"bank_code":      "encrypted_bank_code",
	"bank_name":      "encrypted_bank_name",
	"business_name":  "encrypted_business_name",
	"email":          "encrypted_email",
}

// BankingRepo implements domain.BankingRepository for PostgreSQL.
type BankingRepo struct {
	pool *pgxpool.Pool
}

func NewBankingRepo(pool *pgxpool.Pool) *BankingRepo {
	return &BankingRepo{pool: pool}
}

// GetActiveByUser fetches the caller's single active payout record.
func (r *BankingRepo) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.BankingRecord, error) {
	const query = `
		SELECT id, user_id, status,
		       account_number, bank_code, bank_name, business_name, email,
		       encrypted_account_number, encrypted_bank_code, encrypted_bank_name,
		       encrypted_business_name, encrypted_email,
		       created_at, updated_at
		FROM banking_subaccounts
		WHERE user_id = $1 AND status = 'active'
		LIMIT 1;
	`

	var rec domain.BankingRecord
	var rawEnvelopes [5][]byte

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&rec.ID, &rec.UserID, &rec.Status,
		&rec.AccountNumber, &rec.BankCode, &rec.BankName, &rec.BusinessName, &rec.Email,
		&rawEnvelopes[0], &rawEnvelopes[1], &rawEnvelopes[2], &rawEnvelopes[3], &rawEnvelopes[4],
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to query banking record: %w", err)
	}

	targets := []**domain.Envelope{
		&rec.EncryptedAccountNumber, &rec.EncryptedBankCode, &rec.EncryptedBankName,
		&rec.EncryptedBusinessName, &rec.EncryptedEmail,
	}
	for i, raw := range rawEnvelopes {
		if len(raw) == 0 {
			continue
		}
		var env domain.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("corrupt envelope in column %d: %w", i, err)
		}
		*targets[i] = &env
	}

	return &rec, nil
}

// UpdateEnvelopes writes the produced envelopes into the record in a single
// statement. Each assignment is guarded with COALESCE so a slot that already
// holds an envelope keeps it: even two racing invocations cannot overwrite
// protected data — the first write wins and the loser is a silent no-op.
func (r *BankingRepo) UpdateEnvelopes(ctx context.Context, recordID uuid.UUID, envelopes map[string]domain.Envelope) error {
	if len(envelopes) == 0 {
		return nil
	}

	setClauses := ""
	args := []any{recordID}

	for name, env := range envelopes {
		column, ok := envelopeColumns[name]
		if !ok {
			return fmt.Errorf("unknown sensitive field %q", name)
		}
		payload, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("failed to serialize envelope for %s: %w", name, err)
		}
		args = append(args, payload)
		setClauses += fmt.Sprintf("%s = COALESCE(%s, $%d), ", column, column, len(args))
	}

	args = append(args, time.Now().UTC())
	query := fmt.Sprintf(
		"UPDATE banking_subaccounts SET %supdated_at = $%d WHERE id = $1;",
		setClauses, len(args),
	)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update encrypted fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

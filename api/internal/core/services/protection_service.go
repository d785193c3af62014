package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rebooked/api/internal/core/domain"
)

// currentKeyVersion stamps every envelope produced today. Bump when a new
// ENCRYPTION_KEY_V<n> is rolled out; old envelopes keep their own version.
const currentKeyVersion = 1

// KeyResolver supplies raw key material for a key version.
type KeyResolver interface {
	Resolve(version int) (string, error)
}

// FieldEncryptor turns one plaintext field value into an envelope.
type FieldEncryptor interface {
	EncryptField(plaintext, keyString string, version int) (domain.Envelope, error)
}

// ProtectionResult reports which fields were encrypted during one invocation
// and the envelopes produced for them.
type ProtectionResult struct {
	UpdatedFields []string
	Envelopes     map[string]domain.Envelope
}

// ProtectionService runs the idempotent record-protection workflow: it
// encrypts exactly the sensitive fields that still lack an envelope but have
// a plaintext source, and persists the result in a single update.
type ProtectionService struct {
	repo      domain.BankingRepository
	keys      KeyResolver
	encryptor FieldEncryptor
	logger    *slog.Logger
}

func NewProtectionService(
	repo domain.BankingRepository,
	keys KeyResolver,
	encryptor FieldEncryptor,
	logger *slog.Logger,
) *ProtectionService {
	return &ProtectionService{
		repo:      repo,
		keys:      keys,
		encryptor: encryptor,
		logger:    logger,
	}
}

// ProtectRecord protects the single active record owned by ownerID.
// Overrides supply plaintext source values per field name; absent entries
// fall back to the record's stored plaintext slots.
//
// 🛡️ Idempotence: a field whose envelope slot is already populated is
// skipped unconditionally, so re-running never re-encrypts anything and an
// empty result is a valid terminal state, not an error.
func (s *ProtectionService) ProtectRecord(ctx context.Context, ownerID uuid.UUID, overrides map[string]string) (*ProtectionResult, error) {
	record, err := s.repo.GetActiveByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// Key material is resolved once per request, before any field work, so a
	// configuration gap fails the whole invocation with nothing half-done.
	keyString, err := s.keys.Resolve(currentKeyVersion)
	if err != nil {
		return nil, err
	}

	type pendingField struct {
		name      string
		plaintext string
	}
	var pending []pendingField

	for _, field := range domain.SensitiveFields {
		if field.Envelope(record) != nil {
			continue // already protected, never touch it again
		}

		source, ok := overrides[field.Name]
		if !ok || source == "" {
			if stored := field.Plaintext(record); stored != nil {
				source = *stored
			}
		}
		if source == "" {
			continue // no plaintext to protect; legitimately left alone
		}

		pending = append(pending, pendingField{name: field.Name, plaintext: source})
	}

	if len(pending) == 0 {
		s.logger.Info("No fields to encrypt", slog.String("user_id", ownerID.String()))
		return &ProtectionResult{UpdatedFields: []string{}, Envelopes: map[string]domain.Envelope{}}, nil
	}

	// Per-field encryptions are independent (distinct IVs, no shared state),
	// so they fan out; the persistence write below is the join point.
	var mu sync.Mutex
	envelopes := make(map[string]domain.Envelope, len(pending))

	var g errgroup.Group
	for _, p := range pending {
		p := p
		g.Go(func() error {
			env, err := s.encryptor.EncryptField(p.plaintext, keyString, currentKeyVersion)
			if err != nil {
				// Field names only; plaintext never reaches a log line.
				return fmt.Errorf("encrypting %s: %w", p.name, err)
			}
			mu.Lock()
			envelopes[p.name] = env
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateEnvelopes(ctx, record.ID, envelopes); err != nil {
		// The contract is "protected AND persisted": computed envelopes that
		// failed to land are a failure, not a partial success.
		return nil, fmt.Errorf("failed to save encrypted data: %w", err)
	}

	updated := make([]string, 0, len(pending))
	for _, p := range pending {
		updated = append(updated, p.name)
	}

	s.logger.Info("Encrypted banking fields",
		slog.String("user_id", ownerID.String()),
		slog.Any("fields", updated),
	)

	return &ProtectionResult{UpdatedFields: updated, Envelopes: envelopes}, nil
}

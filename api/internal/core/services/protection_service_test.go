package services_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebooked/api/internal/core/domain"
	"rebooked/api/internal/core/services"
	"rebooked/api/internal/infrastructure/crypto"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeBankingRepo is an in-memory domain.BankingRepository that records every
// interaction and applies the same never-overwrite rule as the real store.
type fakeBankingRepo struct {
	record      *domain.BankingRecord
	getCalls    int
	updateCalls int
	lastUpdate  map[string]domain.Envelope
	failUpdate  error
}

func (f *fakeBankingRepo) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.BankingRecord, error) {
	f.getCalls++
	if f.record == nil || f.record.UserID != userID {
		return nil, domain.ErrRecordNotFound
	}
	clone := *f.record
	return &clone, nil
}

func (f *fakeBankingRepo) UpdateEnvelopes(ctx context.Context, recordID uuid.UUID, envelopes map[string]domain.Envelope) error {
	f.updateCalls++
	f.lastUpdate = envelopes
	if f.failUpdate != nil {
		return f.failUpdate
	}
	for name, env := range envelopes {
		env := env
		switch name {
		case "account_number":
			if f.record.EncryptedAccountNumber == nil {
				f.record.EncryptedAccountNumber = &env
			}
		case "bank_code":
			if f.record.EncryptedBankCode == nil {
				f.record.EncryptedBankCode = &env
			}
		case "bank_name":
			if f.record.EncryptedBankName == nil {
				f.record.EncryptedBankName = &env
			}
		case "business_name":
			if f.record.EncryptedBusinessName == nil {
				f.record.EncryptedBusinessName = &env
			}
		case "email":
			if f.record.EncryptedEmail == nil {
				f.record.EncryptedEmail = &env
			}
		}
	}
	return nil
}

type fakeKeys struct {
	key string
	err error
}

func (f *fakeKeys) Resolve(version int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.key, nil
}

func strptr(s string) *string { return &s }

func testKey() *fakeKeys {
	raw := make([]byte, 32)
	return &fakeKeys{key: base64.StdEncoding.EncodeToString(raw)}
}

func newService(repo *fakeBankingRepo, keys services.KeyResolver) *services.ProtectionService {
	return services.NewProtectionService(repo, keys, crypto.NewFieldEncryptor(), testLogger)
}

func TestProtectRecord_EncryptsPendingPlaintextFields(t *testing.T) {
	ownerID := uuid.New()
	repo := &fakeBankingRepo{record: &domain.BankingRecord{
		ID:            uuid.New(),
		UserID:        ownerID,
		Status:        "active",
		AccountNumber: strptr("1234567890"),
		BankCode:      strptr("632005"),
	}}
	svc := newService(repo, testKey())

	result, err := svc.ProtectRecord(context.Background(), ownerID, nil)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"account_number", "bank_code"}, result.UpdatedFields)
	assert.Len(t, result.Envelopes, 2)
	assert.Equal(t, 1, repo.updateCalls)

	for name, env := range result.Envelopes {
		assert.Equal(t, 1, env.Version, "field %s", name)
		iv, err := base64.StdEncoding.DecodeString(env.IV)
		require.NoError(t, err)
		assert.Len(t, iv, 12)
		tag, err := base64.StdEncoding.DecodeString(env.AuthTag)
		require.NoError(t, err)
		assert.Len(t, tag, 16)
	}
}

func TestProtectRecord_Idempotence(t *testing.T) {
	ownerID := uuid.New()
	repo := &fakeBankingRepo{record: &domain.BankingRecord{
		ID:            uuid.New(),
		UserID:        ownerID,
		Status:        "active",
		AccountNumber: strptr("1234567890"),
		Email:         strptr("seller@rebookedsolutions.co.za"),
	}}
	svc := newService(repo, testKey())

	first, err := svc.ProtectRecord(context.Background(), ownerID, nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"account_number", "email"}, first.UpdatedFields)

	envelopeBefore := *repo.record.EncryptedAccountNumber

	// Second run with identical input: nothing updates, nothing errors, and
	// the stored envelopes are byte-identical.
	second, err := svc.ProtectRecord(context.Background(), ownerID, nil)
	require.NoError(t, err)
	assert.Empty(t, second.UpdatedFields)
	assert.Empty(t, second.Envelopes)
	assert.Equal(t, 1, repo.updateCalls, "no second persistence write expected")
	assert.Equal(t, envelopeBefore, *repo.record.EncryptedAccountNumber)
}

func TestProtectRecord_SelectiveProtection(t *testing.T) {
	ownerID := uuid.New()
	existing := domain.Envelope{Ciphertext: "c2VhbGVk", IV: "aXYtYnl0ZXM=", AuthTag: "dGFnLWJ5dGVz", Version: 1}
	repo := &fakeBankingRepo{record: &domain.BankingRecord{
		ID:                     uuid.New(),
		UserID:                 ownerID,
		Status:                 "active",
		AccountNumber:          strptr("1234567890"),
		BankCode:               strptr("632005"),
		EncryptedAccountNumber: &existing,
	}}
	svc := newService(repo, testKey())

	result, err := svc.ProtectRecord(context.Background(), ownerID, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"bank_code"}, result.UpdatedFields)
	assert.NotContains(t, result.Envelopes, "account_number")
	// The pre-existing envelope is untouched.
	assert.Equal(t, existing, *repo.record.EncryptedAccountNumber)
}

func TestProtectRecord_OverridesBeatStoredPlaintext(t *testing.T) {
	ownerID := uuid.New()
	repo := &fakeBankingRepo{record: &domain.BankingRecord{
		ID:       uuid.New(),
		UserID:   ownerID,
		Status:   "active",
		BankName: strptr("Stored Bank"),
	}}
	svc := newService(repo, testKey())

	result, err := svc.ProtectRecord(context.Background(), ownerID, map[string]string{
		"bank_name":     "Override Bank",
		"business_name": "ReBooked Books",
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bank_name", "business_name"}, result.UpdatedFields)
}

func TestProtectRecord_NoOpTerminalState(t *testing.T) {
	ownerID := uuid.New()
	repo := &fakeBankingRepo{record: &domain.BankingRecord{
		ID:     uuid.New(),
		UserID: ownerID,
		Status: "active",
	}}
	svc := newService(repo, testKey())

	result, err := svc.ProtectRecord(context.Background(), ownerID, nil)

	require.NoError(t, err)
	assert.Empty(t, result.UpdatedFields)
	assert.Zero(t, repo.updateCalls)
}

func TestProtectRecord_RecordNotFound(t *testing.T) {
	repo := &fakeBankingRepo{}
	svc := newService(repo, testKey())

	_, err := svc.ProtectRecord(context.Background(), uuid.New(), nil)

	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestProtectRecord_KeyNotConfigured(t *testing.T) {
	ownerID := uuid.New()
	repo := &fakeBankingRepo{record: &domain.BankingRecord{
		ID:            uuid.New(),
		UserID:        ownerID,
		Status:        "active",
		AccountNumber: strptr("1234567890"),
	}}
	svc := newService(repo, &fakeKeys{err: crypto.ErrKeyNotConfigured})

	_, err := svc.ProtectRecord(context.Background(), ownerID, nil)

	assert.ErrorIs(t, err, crypto.ErrKeyNotConfigured)
	assert.Zero(t, repo.updateCalls, "no partial state may be persisted")
}

func TestProtectRecord_InvalidKeyAbortsWholeRequest(t *testing.T) {
	ownerID := uuid.New()
	repo := &fakeBankingRepo{record: &domain.BankingRecord{
		ID:            uuid.New(),
		UserID:        ownerID,
		Status:        "active",
		AccountNumber: strptr("1234567890"),
		BankCode:      strptr("632005"),
	}}
	svc := newService(repo, &fakeKeys{key: "not-32-bytes"})

	_, err := svc.ProtectRecord(context.Background(), ownerID, nil)

	assert.ErrorIs(t, err, crypto.ErrInvalidKeyLength)
	assert.Zero(t, repo.updateCalls)
}

func TestProtectRecord_StoreWriteFailure(t *testing.T) {
	ownerID := uuid.New()
	repo := &fakeBankingRepo{
		record: &domain.BankingRecord{
			ID:            uuid.New(),
			UserID:        ownerID,
			Status:        "active",
			AccountNumber: strptr("1234567890"),
		},
		failUpdate: errors.New("connection reset"),
	}
	svc := newService(repo, testKey())

	_, err := svc.ProtectRecord(context.Background(), ownerID, nil)

	// Encryption succeeded, persistence did not: the caller's contract is
	// "protected and persisted", so this is a failure.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save encrypted data")
}

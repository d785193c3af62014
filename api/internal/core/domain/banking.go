package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors shared across the protection flow. Handlers map these to
// HTTP semantics; nothing below the handler layer knows about status codes.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRecordNotFound  = errors.New("no banking record found for user")
)

// Envelope is the self-describing encrypted representation of a single field.
// All three binary quantities are standard (padded) base64. The JSON shape is
// a persistence contract: rows already written with these exact field names
// must remain decryptable by a future decryption component.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
	Version    int    `json:"version"`
}

// BankingRecord is the payout subaccount row owned by exactly one user.
// Each sensitive attribute has two independent slots: the legacy plaintext
// value and its encrypted envelope. Slots only ever transition from nil to
// non-nil, never back.
type BankingRecord struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // "active" or "inactive"

	AccountNumber *string `json:"account_number,omitempty"`
	BankCode      *string `json:"bank_code,omitempty"`
	BankName      *string `json:"bank_name,omitempty"`
	BusinessName  *string `json:"business_name,omitempty"`
	Email         *string `json:"email,omitempty"`

	EncryptedAccountNumber *Envelope `json:"encrypted_account_number,omitempty"`
	EncryptedBankCode      *Envelope `json:"encrypted_bank_code,omitempty"`
	EncryptedBankName      *Envelope `json:"encrypted_bank_name,omitempty"`
	EncryptedBusinessName  *Envelope `json:"encrypted_business_name,omitempty"`
	EncryptedEmail         *Envelope `json:"encrypted_email,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SensitiveField describes one protectable attribute: its wire name plus
// accessors for both storage slots. The workflow iterates this table instead
// of branching per field, so adding a sixth attribute is a one-line change.
type SensitiveField struct {
	Name      string
	Plaintext func(*BankingRecord) *string
	Envelope  func(*BankingRecord) *Envelope
}

// SensitiveFields is the authoritative list of attributes the protection
// workflow operates on. Order is not observable by callers.
var SensitiveFields = []SensitiveField{
	{
		Name:      "account_number",
		Plaintext: func(r *BankingRecord) *string { return r.AccountNumber },
		Envelope:  func(r *BankingRecord) *Envelope { return r.EncryptedAccountNumber },
	},
	{
		Name:      "bank_code",
		Plaintext: func(r *BankingRecord) *string { return r.BankCode },
		Envelope:  func(r *BankingRecord) *Envelope { return r.EncryptedBankCode },
	},
	{
		Name:      "bank_name",
		Plaintext: func(r *BankingRecord) *string { return r.BankName },
		Envelope:  func(r *BankingRecord) *Envelope { return r.EncryptedBankName },
	},
	{
		Name:      "business_name",
		Plaintext: func(r *BankingRecord) *string { return r.BusinessName },
		Envelope:  func(r *BankingRecord) *Envelope { return r.EncryptedBusinessName },
	},
	{
		Name:      "email",
		Plaintext: func(r *BankingRecord) *string { return r.Email },
		Envelope:  func(r *BankingRecord) *Envelope { return r.EncryptedEmail },
	},
}

// BankingRepository is the persistence port for payout records.
// 🛡️ SLA: the core only ever mutates envelope slots. Record creation and
// deletion belong to the order flow, which lives outside this service.
type BankingRepository interface {
	// GetActiveByUser returns the single active record owned by userID,
	// or ErrRecordNotFound.
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*BankingRecord, error)

	// UpdateEnvelopes writes the supplied envelopes (keyed by sensitive field
	// name) into the record's envelope slots in one statement. Implementations
	// must never overwrite a slot that is already populated.
	UpdateEnvelopes(ctx context.Context, recordID uuid.UUID, envelopes map[string]Envelope) error
}

// Identity is the resolved caller. UserID is the only value ever used to
// scope a record lookup, so a caller can only protect their own record.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

type contextKey string

// IdentityContextKey carries the resolved Identity through the request
// context once the authentication gate has passed.
const IdentityContextKey contextKey = "identity"

// IdentityVerifier validates a bearer credential against the identity
// provider. Every validation failure is normalized to ErrUnauthenticated.
type IdentityVerifier interface {
	Verify(ctx context.Context, bearerToken string) (Identity, error)
}

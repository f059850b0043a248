package evidence

import (
	"fmt"
	"time"
)

// Channel classifies the ingestion flow a transaction belongs to. Transactions
// are channel-scoped: a code issued for one flow cannot be validated or
// consumed by another.
type Channel string

const (
	ChannelCustomerLogin Channel = "customer_login"
	ChannelBranchConsent Channel = "branch_consent"
)

// IsValid checks if the channel is one of the supported flows.
func (c Channel) IsValid() bool {
	return c == ChannelCustomerLogin || c == ChannelBranchConsent
}

func (c Channel) String() string { return string(c) }

// Transaction is a short-lived, single-use identity-verification ticket. The
// verification code is held only as a bcrypt hash; the plaintext exists just
// long enough to hand to the delivery collaborator.
//
// VerifiedAt and ConsentID are write-once. Stores enforce this with
// conditional updates so concurrent verifies or claims cannot both succeed.
type Transaction struct {
	TransactionID     string
	MobileNumber      string
	Channel           Channel
	ApplicationNumber string
	CodeHash          string
	ExpiresAt         time.Time
	VerifiedAt        *time.Time
	ConsentID         string
	CreatedAt         time.Time
}

// NewTransactionID derives a channel-prefixed identifier. The nanosecond
// suffix keeps IDs unique within a channel without a coordination point.
func NewTransactionID(channel Channel, now time.Time) string {
	return fmt.Sprintf("%s-%d", channel, now.UnixNano())
}

// Expired reports whether the transaction is past its TTL. Expiry is checked
// lazily at validation time; there is no sweeping process.
func (t *Transaction) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Verified reports whether the one successful verification has happened.
func (t *Transaction) Verified() bool {
	return t.VerifiedAt != nil
}

// Consumed reports whether a consent was already created from this transaction.
func (t *Transaction) Consumed() bool {
	return t.ConsentID != ""
}

// SubjectID derives the consent subject from the transaction: application
// number when present, else mobile number. Empty when neither is known.
func (t *Transaction) SubjectID() string {
	if t.ApplicationNumber != "" {
		return t.ApplicationNumber
	}
	return t.MobileNumber
}

package auth

import "time"

// Operator is a back-office user of the consent console. Operators manage
// templates and exports; they play no part in the OTP-gated ingestion flows.
type Operator struct {
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"consentd/internal/evidence"
	"consentd/pkg/platform/sentinel"
)

const (
	txnKeyPrefix = "evidence:txn:"
	// Records are retained past the verification TTL so an expired transaction
	// still answers "expired" rather than "not found". Expiry itself is checked
	// lazily by the service.
	txnRetention = 24 * time.Hour
)

// Redis stores evidence transactions as JSON values. Write-once fields are
// guarded by Lua scripts so the check-and-set is atomic on the server.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

type redisTxn struct {
	TransactionID     string     `json:"transaction_id"`
	MobileNumber      string     `json:"mobile_number"`
	Channel           string     `json:"channel"`
	ApplicationNumber string     `json:"application_number,omitempty"`
	CodeHash          string     `json:"code_hash"`
	ExpiresAt         time.Time  `json:"expires_at"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	ConsentID         string     `json:"consent_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// markVerifiedScript sets verified_at only when it is still absent.
// Returns: 0 key missing, 1 updated, 2 already verified.
var markVerifiedScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then return 0 end
local txn = cjson.decode(raw)
if txn.verified_at then return 2 end
txn.verified_at = ARGV[1]
redis.call("SET", KEYS[1], cjson.encode(txn), "KEEPTTL")
return 1
`)

// linkConsentScript sets consent_id only when it is still absent.
// Returns: 0 key missing, 1 updated, 2 already linked.
var linkConsentScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then return 0 end
local txn = cjson.decode(raw)
if txn.consent_id then return 2 end
txn.consent_id = ARGV[1]
redis.call("SET", KEYS[1], cjson.encode(txn), "KEEPTTL")
return 1
`)

func (s *Redis) Create(ctx context.Context, txn *evidence.Transaction) error {
	payload, err := json.Marshal(toRedisTxn(txn))
	if err != nil {
		return fmt.Errorf("marshal evidence transaction: %w", err)
	}
	ok, err := s.client.SetNX(ctx, txnKeyPrefix+txn.TransactionID, payload, txnRetention).Result()
	if err != nil {
		return fmt.Errorf("store evidence transaction: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Redis) Find(ctx context.Context, transactionID string) (*evidence.Transaction, error) {
	raw, err := s.client.Get(ctx, txnKeyPrefix+transactionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load evidence transaction: %w", err)
	}
	var rt redisTxn
	if err := json.Unmarshal(raw, &rt); err != nil {
		return nil, fmt.Errorf("decode evidence transaction: %w", err)
	}
	return fromRedisTxn(&rt), nil
}

func (s *Redis) MarkVerified(ctx context.Context, transactionID string, at time.Time) error {
	res, err := markVerifiedScript.Run(ctx, s.client,
		[]string{txnKeyPrefix + transactionID},
		at.UTC().Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return fmt.Errorf("mark evidence transaction verified: %w", err)
	}
	switch res {
	case 0:
		return sentinel.ErrNotFound
	case 2:
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Redis) LinkConsent(ctx context.Context, transactionID, consentID string) error {
	res, err := linkConsentScript.Run(ctx, s.client,
		[]string{txnKeyPrefix + transactionID},
		consentID,
	).Int()
	if err != nil {
		return fmt.Errorf("link evidence transaction: %w", err)
	}
	switch res {
	case 0:
		return sentinel.ErrNotFound
	case 2:
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func toRedisTxn(txn *evidence.Transaction) *redisTxn {
	rt := &redisTxn{
		TransactionID:     txn.TransactionID,
		MobileNumber:      txn.MobileNumber,
		Channel:           string(txn.Channel),
		ApplicationNumber: txn.ApplicationNumber,
		CodeHash:          txn.CodeHash,
		ExpiresAt:         txn.ExpiresAt.UTC(),
		ConsentID:         txn.ConsentID,
		CreatedAt:         txn.CreatedAt.UTC(),
	}
	if txn.VerifiedAt != nil {
		t := txn.VerifiedAt.UTC()
		rt.VerifiedAt = &t
	}
	return rt
}

func fromRedisTxn(rt *redisTxn) *evidence.Transaction {
	txn := &evidence.Transaction{
		TransactionID:     rt.TransactionID,
		MobileNumber:      rt.MobileNumber,
		Channel:           evidence.Channel(rt.Channel),
		ApplicationNumber: rt.ApplicationNumber,
		CodeHash:          rt.CodeHash,
		ExpiresAt:         rt.ExpiresAt,
		ConsentID:         rt.ConsentID,
		CreatedAt:         rt.CreatedAt,
	}
	if rt.VerifiedAt != nil {
		t := *rt.VerifiedAt
		txn.VerifiedAt = &t
	}
	return txn
}

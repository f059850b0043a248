package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"consentd/internal/evidence"
	"consentd/internal/evidence/otp"
	"consentd/internal/evidence/ratelimit"
	"consentd/internal/platform/metrics"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
	"consentd/pkg/requestcontext"
)

// Store persists evidence transactions. MarkVerified and LinkConsent are
// conditional writes: they succeed at most once per transaction and return
// sentinel.ErrAlreadyUsed afterwards.
type Store interface {
	Create(ctx context.Context, txn *evidence.Transaction) error
	Find(ctx context.Context, transactionID string) (*evidence.Transaction, error)
	MarkVerified(ctx context.Context, transactionID string, at time.Time) error
	LinkConsent(ctx context.Context, transactionID, consentID string) error
}

// Service issues, validates, and single-uses identity-verification
// transactions per channel.
type Service struct {
	store   Store
	sender  evidence.Sender
	ttl     time.Duration
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithSender(sender evidence.Sender) Option {
	return func(s *Service) { s.sender = sender }
}

func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(s *Service) { s.limiter = limiter }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service. ttl bounds how long an issued code stays
// verifiable.
func New(store Store, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a transaction for the given channel and hands the code to the
// delivery collaborator. The plaintext code is also returned so simulated-mode
// transports can echo it; production handlers must not.
func (s *Service) Issue(ctx context.Context, mobileNumber string, channel evidence.Channel, applicationNumber string) (*evidence.Transaction, string, error) {
	if mobileNumber == "" {
		return nil, "", dErrors.New(dErrors.CodeValidation, "mobile_number is required")
	}
	if !channel.IsValid() {
		return nil, "", dErrors.New(dErrors.CodeValidation, "unknown channel")
	}

	now := requestcontext.Now(ctx)
	if !s.limiter.Allow(mobileNumber, now) {
		return nil, "", dErrors.New(dErrors.CodeConflict, "too many codes requested for this mobile number")
	}

	code, hash, err := otp.Generate()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code")
	}

	txn := &evidence.Transaction{
		TransactionID:     evidence.NewTransactionID(channel, now),
		MobileNumber:      mobileNumber,
		Channel:           channel,
		ApplicationNumber: applicationNumber,
		CodeHash:          hash,
		ExpiresAt:         now.Add(s.ttl),
		CreatedAt:         now,
	}
	if err := s.store.Create(ctx, txn); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store evidence transaction")
	}

	if s.sender != nil {
		if err := s.sender.Send(ctx, mobileNumber, code); err != nil {
			// The transaction exists but the code never left the building; the
			// caller can reissue. Surfaced as infrastructure.
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to deliver verification code")
		}
	}

	s.metrics.IncrementOTPIssued(channel.String())
	s.logger.InfoContext(ctx, "evidence transaction issued",
		"transaction_id", txn.TransactionID,
		"channel", channel,
	)
	return txn, code, nil
}

// Verify checks a submitted code. Only one successful verification is possible
// per transaction; the store's conditional write is the arbiter under
// concurrency. Failures do not mutate state.
func (s *Service) Verify(ctx context.Context, transactionID, submittedCode string, expectedChannel evidence.Channel) (*evidence.Transaction, error) {
	txn, err := s.find(ctx, transactionID, expectedChannel)
	if err != nil {
		return nil, err
	}

	if txn.Verified() {
		s.metrics.IncrementOTPFailure("already_used")
		return nil, dErrors.Wrap(sentinel.ErrAlreadyUsed, dErrors.CodeConflict, "code already used")
	}

	now := requestcontext.Now(ctx)
	if txn.Expired(now) {
		s.metrics.IncrementOTPFailure("expired")
		return nil, dErrors.Wrap(sentinel.ErrExpired, dErrors.CodeExpired, "code expired")
	}

	if !otp.Compare(txn.CodeHash, submittedCode) {
		s.metrics.IncrementOTPFailure("incorrect_code")
		return nil, dErrors.New(dErrors.CodeValidation, "incorrect code")
	}

	if err := s.store.MarkVerified(ctx, transactionID, now); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Lost the race against a concurrent verify.
			s.metrics.IncrementOTPFailure("already_used")
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "code already used")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record verification")
	}

	txn.VerifiedAt = &now
	s.metrics.IncrementOTPVerified(expectedChannel.String())
	s.logger.InfoContext(ctx, "evidence transaction verified", "transaction_id", transactionID)
	return txn, nil
}

// ClaimForConsent returns a verified, unconsumed transaction. It does not
// mutate anything: the consent engine links the consent afterwards, inside the
// same atomicity boundary, via LinkConsent.
func (s *Service) ClaimForConsent(ctx context.Context, transactionID string, expectedChannel evidence.Channel) (*evidence.Transaction, error) {
	txn, err := s.find(ctx, transactionID, expectedChannel)
	if err != nil {
		return nil, err
	}
	if !txn.Verified() {
		return nil, dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeConflict, "code not yet verified for this transaction")
	}
	if txn.Consumed() {
		return nil, dErrors.Wrap(sentinel.ErrAlreadyUsed, dErrors.CodeConflict, "consent already created for this transaction")
	}
	return txn, nil
}

// LinkConsent marks the transaction consumed by the given consent. At most one
// link can ever succeed.
func (s *Service) LinkConsent(ctx context.Context, transactionID, consentID string) error {
	if err := s.store.LinkConsent(ctx, transactionID, consentID); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "consent already created for this transaction")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "transaction not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link transaction")
	}
	return nil
}

func (s *Service) find(ctx context.Context, transactionID string, expectedChannel evidence.Channel) (*evidence.Transaction, error) {
	if transactionID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "transaction_id is required")
	}
	txn, err := s.store.Find(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementOTPFailure("not_found")
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "invalid transaction_id")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transaction")
	}
	if txn.Channel != expectedChannel {
		s.metrics.IncrementOTPFailure("channel_mismatch")
		return nil, dErrors.Wrap(sentinel.ErrConflict, dErrors.CodeConflict, "channel mismatch for transaction")
	}
	return txn, nil
}

package handler

import (
	"consentd/internal/evidence"
	dErrors "consentd/pkg/domain-errors"
)

const (
	deliveryModeSimulated = "SIMULATED"
	deliveryModeLive      = "LIVE"
)

var errBranchOfficerRequired = dErrors.New(dErrors.CodeValidation, "branch_officer_id is required")

// InitiateResponse acknowledges an issued transaction. OTP is present only
// in simulated delivery mode.
type InitiateResponse struct {
	TransactionID string `json:"transaction_id"`
	Mode          string `json:"mode"`
	OTP           string `json:"otp,omitempty"`
}

// VerifyOTPResponse confirms a successful verification.
type VerifyOTPResponse struct {
	Status            string `json:"status"`
	TransactionID     string `json:"transaction_id"`
	MobileNumber      string `json:"mobile_number"`
	ApplicationNumber string `json:"application_number,omitempty"`
}

// FromVerified converts a verified transaction to its HTTP representation.
func FromVerified(txn *evidence.Transaction) *VerifyOTPResponse {
	return &VerifyOTPResponse{
		Status:            "verified",
		TransactionID:     txn.TransactionID,
		MobileNumber:      txn.MobileNumber,
		ApplicationNumber: txn.ApplicationNumber,
	}
}

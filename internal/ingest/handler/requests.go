package handler

import (
	"strings"

	dErrors "consentd/pkg/domain-errors"
)

// InitiateRequest starts an OTP flow for a mobile number. The branch flow
// additionally identifies the initiating officer.
type InitiateRequest struct {
	MobileNumber      string `json:"mobile_number"`
	ApplicationNumber string `json:"application_number"`
	BranchOfficerID   string `json:"branch_officer_id"`
}

func (r *InitiateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.MobileNumber = strings.TrimSpace(r.MobileNumber)
	r.ApplicationNumber = strings.TrimSpace(r.ApplicationNumber)
	r.BranchOfficerID = strings.TrimSpace(r.BranchOfficerID)
	if r.MobileNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "mobile_number is required")
	}
	return nil
}

// VerifyOTPRequest submits the code for a pending transaction.
type VerifyOTPRequest struct {
	TransactionID string `json:"transaction_id"`
	OTP           string `json:"otp"`
}

func (r *VerifyOTPRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.TransactionID = strings.TrimSpace(r.TransactionID)
	if r.TransactionID == "" {
		return dErrors.New(dErrors.CodeValidation, "transaction_id is required")
	}
	if strings.TrimSpace(r.OTP) == "" {
		return dErrors.New(dErrors.CodeValidation, "otp is required")
	}
	return nil
}

// ConsentRequest creates a consent from a verified transaction. The branch
// flow requires the officer id so the audit trail shows who initiated it.
type ConsentRequest struct {
	TransactionID   string         `json:"transaction_id"`
	BranchOfficerID string         `json:"branch_officer_id"`
	TenantID        string         `json:"tenant_id"`
	ProductID       string         `json:"product_id"`
	Purpose         string         `json:"purpose"`
	Meta            map[string]any `json:"meta"`
}

func (r *ConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.TransactionID = strings.TrimSpace(r.TransactionID)
	r.Purpose = strings.TrimSpace(r.Purpose)
	if r.TransactionID == "" {
		return dErrors.New(dErrors.CodeValidation, "transaction_id is required")
	}
	if r.Purpose == "" {
		return dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	return nil
}

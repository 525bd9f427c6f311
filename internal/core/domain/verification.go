package domain

// VerificationStatus is the state of the identity-document verification flow.
type VerificationStatus string

const (
	VerificationNone        VerificationStatus = "NONE"
	VerificationNotVerified VerificationStatus = "NOT_VERIFIED"
	VerificationPending     VerificationStatus = "PENDING"
	VerificationVerified    VerificationStatus = "VERIFIED"
	VerificationRejected    VerificationStatus = "REJECTED"
)

// Decided reports whether the flow reached a final state and polling may stop.
func (s VerificationStatus) Decided() bool {
	return s == VerificationVerified || s == VerificationRejected
}

// Verification is the backend's view of the document-verification sub-flow.
type Verification struct {
	Status          VerificationStatus `json:"verificationStatus"`
	RejectionReason string             `json:"rejectionReason,omitempty"`
	DocumentsCount  int                `json:"documentsCount"`
}

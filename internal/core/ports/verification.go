package ports

import (
	"context"

	"github.com/fixmasters/master-app/internal/core/domain"
)

// VerificationAPI drives the identity-document verification sub-flow.
type VerificationAPI interface {
	Status(ctx context.Context) (*domain.Verification, error)
	Upload(ctx context.Context, file EvidenceFile) (*domain.Verification, error)
	Submit(ctx context.Context) (*domain.Verification, error)
}

// PaymentLink is the backend's answer to a payment creation request.
type PaymentLink struct {
	PaymentURL string `json:"paymentUrl"`
	PaymentID  string `json:"paymentId"`
}

// PaymentAPI creates balance top-up payments.
type PaymentAPI interface {
	CreatePayment(ctx context.Context, amount float64) (*PaymentLink, error)
}

package ports

import (
	"context"
	"io"

	"github.com/fixmasters/master-app/internal/core/domain"
)

// OrderScope selects which tab of the order feed to query.
type OrderScope string

const (
	ScopeAvailable OrderScope = "available"
	ScopeActive    OrderScope = "active"
	ScopeHistory   OrderScope = "history"
)

// ListOrdersQuery carries all query parameters for the order feed.
type ListOrdersQuery struct {
	Scope       OrderScope
	Search      string
	DistrictID  string
	SpecialtyID string
	UrgentOnly  bool
	Limit       int
	Offset      int
}

// EvidenceFile is one photographic proof attached to a completion.
type EvidenceFile struct {
	Name    string
	Content io.Reader
}

// OrdersAPI is the backend surface for the order lifecycle. Accept and
// Advance may fail with Kind=Conflict when another actor raced the caller;
// Advance may additionally fail with Kind=Forbidden.
type OrdersAPI interface {
	List(ctx context.Context, query ListOrdersQuery) ([]domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	Accept(ctx context.Context, id string) error
	Advance(ctx context.Context, id string) (domain.OrderStatus, error)
	UploadEvidence(ctx context.Context, id string, files []EvidenceFile) error
}

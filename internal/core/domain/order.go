package domain

import (
	"errors"
	"time"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusAssigned   OrderStatus = "ASSIGNED"
	StatusArrived    OrderStatus = "ARRIVED"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusDispute    OrderStatus = "DISPUTE"
)

// forwardStep defines the single client-driven transition allowed from each
// status. PENDING->ASSIGNED happens through accept, not advance; CANCELLED and
// DISPUTE are applied by the backend only and are never requested by the client.
var forwardStep = map[OrderStatus]OrderStatus{
	StatusAssigned:   StatusArrived,
	StatusArrived:    StatusInProgress,
	StatusInProgress: StatusCompleted,
}

var ErrOrderNotFound = errors.New("order not found")
var ErrNoNextStatus = errors.New("no further transition from this status")
var ErrEvidenceRequired = errors.New("completion requires at least one evidence file")
var ErrConflictRefreshed = errors.New("order changed elsewhere, local view refreshed")
var ErrPermissionDenied = errors.New("operation not permitted")

// Next returns the status a bare advance call would move the order to.
func (s OrderStatus) Next() (OrderStatus, error) {
	next, ok := forwardStep[s]
	if !ok {
		return "", ErrNoNextStatus
	}
	return next, nil
}

// CanAdvance reports whether the client may request a forward step from s.
func (s OrderStatus) CanAdvance() bool {
	_, ok := forwardStep[s]
	return ok
}

// Terminal reports whether no further client action is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusDispute
}

// Order is the client-side view of a single order. ClientName and ClientPhone
// are populated by the backend only when the requesting master is assigned to
// the order; their presence is the contact-visibility signal.
type Order struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      OrderStatus `json:"status"`
	Price       *float64    `json:"price,omitempty"`
	ScheduledAt *time.Time  `json:"scheduledAt,omitempty"`
	Street      string      `json:"street,omitempty"`
	House       string      `json:"house,omitempty"`
	Apartment   string      `json:"apartment,omitempty"`
	District    *Named      `json:"district,omitempty"`
	Specialty   *Named      `json:"specialty,omitempty"`
	ClientName  string      `json:"clientName,omitempty"`
	ClientPhone string      `json:"clientPhone,omitempty"`
	MasterID    string      `json:"masterId,omitempty"`
	CreatedAt   *time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
}

// ContactsVisible reports whether the backend disclosed client contacts,
// which it does only for the assigned master.
func (o *Order) ContactsVisible() bool {
	return o.ClientPhone != ""
}

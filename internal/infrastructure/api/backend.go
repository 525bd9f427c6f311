package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fixmasters/master-app/internal/core/domain"
	"github.com/fixmasters/master-app/internal/core/ports"
)

// Backend implements every backend-facing port over one transport Client.
type Backend struct {
	c *Client
}

var (
	_ ports.AuthAPI         = (*Backend)(nil)
	_ ports.IdentityAPI     = (*Backend)(nil)
	_ ports.ReferenceAPI    = (*Backend)(nil)
	_ ports.OrdersAPI       = (*Backend)(nil)
	_ ports.VerificationAPI = (*Backend)(nil)
	_ ports.PaymentAPI      = (*Backend)(nil)
)

func NewBackend(c *Client) *Backend {
	return &Backend{c: c}
}

type loginRequest struct {
	InitData string `json:"initData"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

// Login exchanges the normalized init-data credential for a bearer token.
// The call is unauthenticated by definition.
func (b *Backend) Login(ctx context.Context, credential string) (string, error) {
	var resp loginResponse
	err := b.c.doJSON(ctx, http.MethodPost, "/auth/login", loginRequest{InitData: credential}, &resp, requestOpts{noAuth: true})
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (b *Backend) Me(ctx context.Context) (*domain.Identity, error) {
	var me domain.Identity
	if err := b.c.doJSON(ctx, http.MethodGet, "/users/me", nil, &me, requestOpts{}); err != nil {
		return nil, err
	}
	return &me, nil
}

func (b *Backend) UpdateProfile(ctx context.Context, input ports.ProfileUpdateInput) error {
	return b.c.doJSON(ctx, http.MethodPut, "/users/profile", input, nil, requestOpts{})
}

func (b *Backend) Districts(ctx context.Context) ([]domain.Named, error) {
	var out []domain.Named
	if err := b.c.doJSON(ctx, http.MethodGet, "/districts", nil, &out, requestOpts{noAuth: true}); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) Specialties(ctx context.Context) ([]domain.Named, error) {
	var out []domain.Named
	if err := b.c.doJSON(ctx, http.MethodGet, "/specialties", nil, &out, requestOpts{noAuth: true}); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) List(ctx context.Context, query ports.ListOrdersQuery) ([]domain.Order, error) {
	q := url.Values{}
	if query.Scope != "" {
		q.Set("scope", string(query.Scope))
	}
	if query.Search != "" {
		q.Set("search", query.Search)
	}
	if query.DistrictID != "" {
		q.Set("districtId", query.DistrictID)
	}
	if query.SpecialtyID != "" {
		q.Set("specialtyId", query.SpecialtyID)
	}
	if query.UrgentOnly {
		q.Set("urgentOnly", "true")
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		q.Set("offset", strconv.Itoa(query.Offset))
	}

	path := "/orders"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out []domain.Order
	if err := b.c.doJSON(ctx, http.MethodGet, path, nil, &out, requestOpts{}); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) Get(ctx context.Context, id string) (*domain.Order, error) {
	var out domain.Order
	if err := b.c.doJSON(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &out, requestOpts{}); err != nil {
		return nil, err
	}
	return &out, nil
}

type acceptResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
	Message string `json:"message,omitempty"`
}

func (b *Backend) Accept(ctx context.Context, id string) error {
	var resp acceptResponse
	return b.c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/accept", url.PathEscape(id)), nil, &resp, requestOpts{})
}

type advanceResponse struct {
	ID     string             `json:"id"`
	Status domain.OrderStatus `json:"status"`
}

func (b *Backend) Advance(ctx context.Context, id string) (domain.OrderStatus, error) {
	var resp advanceResponse
	err := b.c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/advance", url.PathEscape(id)), nil, &resp, requestOpts{})
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (b *Backend) UploadEvidence(ctx context.Context, id string, files []ports.EvidenceFile) error {
	return b.c.doMultipart(ctx, fmt.Sprintf("/orders/%s/evidence", url.PathEscape(id)), "files", files, nil)
}

func (b *Backend) Status(ctx context.Context) (*domain.Verification, error) {
	var out domain.Verification
	if err := b.c.doJSON(ctx, http.MethodGet, "/verification/status", nil, &out, requestOpts{}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) Upload(ctx context.Context, file ports.EvidenceFile) (*domain.Verification, error) {
	var out domain.Verification
	if err := b.c.doMultipart(ctx, "/verification/upload", "file", []ports.EvidenceFile{file}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) Submit(ctx context.Context) (*domain.Verification, error) {
	var out domain.Verification
	if err := b.c.doJSON(ctx, http.MethodPost, "/verification/submit", nil, &out, requestOpts{}); err != nil {
		return nil, err
	}
	return &out, nil
}

type createPaymentRequest struct {
	Amount float64 `json:"amount"`
}

func (b *Backend) CreatePayment(ctx context.Context, amount float64) (*ports.PaymentLink, error) {
	var out ports.PaymentLink
	if err := b.c.doJSON(ctx, http.MethodPost, "/integrations/yookassa/create-payment", createPaymentRequest{Amount: amount}, &out, requestOpts{}); err != nil {
		return nil, err
	}
	return &out, nil
}

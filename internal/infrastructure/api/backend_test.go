package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fixmasters/master-app/internal/core/domain"
	"github.com/fixmasters/master-app/internal/core/ports"
	"github.com/fixmasters/master-app/internal/infrastructure/store"
)

// fakeBackend is an in-process stand-in for the real API, just enough routing
// to verify paths, payloads and auth headers end to end.
type fakeBackend struct {
	e      *echo.Echo
	orders map[string]domain.Order
}

func startFakeBackend(t *testing.T) (*Backend, *fakeBackend, ports.TokenStore) {
	t.Helper()

	fb := &fakeBackend{e: echo.New(), orders: map[string]domain.Order{}}
	fb.e.HideBanner = true

	fb.e.POST("/auth/login", func(c echo.Context) error {
		var req struct {
			InitData string `json:"initData"`
		}
		if err := c.Bind(&req); err != nil || req.InitData == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "invalid init data"})
		}
		return c.JSON(http.StatusOK, map[string]string{"accessToken": "tok-1"})
	})

	authed := fb.e.Group("", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "Bearer tok-1" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "missing token"})
			}
			return next(c)
		}
	})

	authed.GET("/users/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, domain.Identity{ID: "u1", Role: "MASTER"})
	})

	authed.GET("/orders", func(c echo.Context) error {
		if c.QueryParam("scope") != "available" || c.QueryParam("urgentOnly") != "true" || c.QueryParam("limit") != "20" {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "unexpected query"})
		}
		out := make([]domain.Order, 0, len(fb.orders))
		for _, o := range fb.orders {
			out = append(out, o)
		}
		return c.JSON(http.StatusOK, out)
	})

	authed.GET("/orders/:id", func(c echo.Context) error {
		o, ok := fb.orders[c.Param("id")]
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "order not found"})
		}
		return c.JSON(http.StatusOK, o)
	})

	authed.POST("/orders/:id/accept", func(c echo.Context) error {
		o, ok := fb.orders[c.Param("id")]
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "order not found"})
		}
		if o.Status != domain.StatusPending {
			return c.JSON(http.StatusConflict, map[string]string{"message": "order already assigned"})
		}
		o.Status = domain.StatusAssigned
		o.ClientPhone = "+79001234567"
		fb.orders[o.ID] = o
		return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "orderId": o.ID})
	})

	authed.POST("/orders/:id/advance", func(c echo.Context) error {
		o := fb.orders[c.Param("id")]
		next, err := o.Status.Next()
		if err != nil {
			return c.JSON(http.StatusConflict, map[string]string{"message": "no transition"})
		}
		o.Status = next
		fb.orders[o.ID] = o
		return c.JSON(http.StatusOK, map[string]interface{}{"id": o.ID, "status": next})
	})

	authed.POST("/orders/:id/evidence", func(c echo.Context) error {
		form, err := c.MultipartForm()
		if err != nil || len(form.File["files"]) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "no files"})
		}
		return c.JSON(http.StatusOK, map[string]int{"received": len(form.File["files"])})
	})

	authed.POST("/integrations/yookassa/create-payment", func(c echo.Context) error {
		var req struct {
			Amount float64 `json:"amount"`
		}
		if err := c.Bind(&req); err != nil || req.Amount <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "bad amount"})
		}
		return c.JSON(http.StatusOK, ports.PaymentLink{PaymentURL: "https://pay.example/p1", PaymentID: "p1"})
	})

	srv := httptest.NewServer(fb.e)
	t.Cleanup(srv.Close)

	tokens := store.NewMemoryTokenStore()
	c, err := NewClient(srv.URL, tokens, nopLogger)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewBackend(c), fb, tokens
}

func TestBackend_LoginThenMe(t *testing.T) {
	b, _, tokens := startFakeBackend(t)
	ctx := context.Background()

	token, err := b.Login(ctx, "query_id=AAH&hash=abc")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("token = %q, want tok-1", token)
	}

	// Before the token is stored, protected calls come back unauthorized.
	if _, err := b.Me(ctx); domain.KindOf(err) != domain.KindUnauthorized {
		t.Fatalf("Me without token: expected unauthorized, got %v", err)
	}

	if err := tokens.Set(ctx, token); err != nil {
		t.Fatalf("store token: %v", err)
	}
	me, err := b.Me(ctx)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != "u1" || me.Role != "MASTER" {
		t.Fatalf("unexpected identity: %+v", me)
	}
}

func TestBackend_OrderLifecycle(t *testing.T) {
	b, fb, tokens := startFakeBackend(t)
	ctx := context.Background()
	tokens.Set(ctx, "tok-1")

	fb.orders["o1"] = domain.Order{ID: "o1", Title: "Fix boiler", Status: domain.StatusPending}

	orders, err := b.List(ctx, ports.ListOrdersQuery{Scope: ports.ScopeAvailable, UrgentOnly: true, Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "o1" {
		t.Fatalf("unexpected list: %+v", orders)
	}

	if err := b.Accept(ctx, "o1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	// A second accept races against the first and conflicts.
	if err := b.Accept(ctx, "o1"); domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("second accept: expected conflict, got %v", err)
	}

	o, err := b.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o.Status != domain.StatusAssigned || !o.ContactsVisible() {
		t.Fatalf("post-accept order = %+v, want ASSIGNED with contacts", o)
	}

	status, err := b.Advance(ctx, "o1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if status != domain.StatusArrived {
		t.Fatalf("advance returned %s, want ARRIVED", status)
	}

	files := []ports.EvidenceFile{
		{Name: "before.jpg", Content: strings.NewReader("jpeg-bytes")},
		{Name: "after.jpg", Content: strings.NewReader("jpeg-bytes")},
	}
	if err := b.UploadEvidence(ctx, "o1", files); err != nil {
		t.Fatalf("upload evidence: %v", err)
	}

	if _, err := b.Get(ctx, "missing"); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("get missing: expected not found, got %v", err)
	}
}

func TestBackend_CreatePayment(t *testing.T) {
	b, _, tokens := startFakeBackend(t)
	ctx := context.Background()
	tokens.Set(ctx, "tok-1")

	link, err := b.CreatePayment(ctx, 500)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if link.PaymentID != "p1" || link.PaymentURL == "" {
		t.Fatalf("unexpected payment link: %+v", link)
	}
}

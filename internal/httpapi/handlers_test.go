package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dukapos/internal/domain"
	"dukapos/internal/service"
	"dukapos/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil)
	auth := NewAuthManager("test-secret-key", time.Hour, "admin@ledger.test", "admin-secret-1")

	return New(svc, auth, "*")
}

func doJSON(t *testing.T, api *API, method string, path string, token string, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func loginAsOwner(t *testing.T, api *API) string {
	t.Helper()
	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{
		Email:    "owner@demo.local",
		Password: "owner123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("owner login failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	token, _ := decodeBody(t, rec)["access_token"].(string)
	if token == "" {
		t.Fatalf("expected access_token in login response")
	}
	return token
}

func loginAsAdmin(t *testing.T, api *API) string {
	t.Helper()
	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/admin/login", "", "", domain.LoginRequest{
		Email:    "admin@ledger.test",
		Password: "admin-secret-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	token, _ := decodeBody(t, rec)["access_token"].(string)
	if token == "" {
		t.Fatalf("expected access_token in admin login response")
	}
	return token
}

func fetchCSRFToken(t *testing.T, api *API) string {
	t.Helper()
	rec := doJSON(t, api, http.MethodGet, "/api/v1/auth/csrf-token", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("csrf token fetch failed: %d", rec.Code)
	}
	token, _ := decodeBody(t, rec)["csrf_token"].(string)
	if token == "" {
		t.Fatalf("expected csrf_token in response")
	}
	return token
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api, http.MethodGet, "/healthz", "", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{
		Email:    "owner@demo.local",
		Password: "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleSignupIssuesStoreScopedToken(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/signup", "", "", domain.SignupRequest{
		Email:     "new@example.com",
		Password:  "secret123",
		FullName:  "New Owner",
		StoreName: "Corner Shop",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["store_id"] == "" || body["store_id"] == nil {
		t.Fatalf("expected store_id in signup response, got %v", body)
	}
	if body["role"] != domain.RoleOwner {
		t.Fatalf("expected owner role, got %v", body["role"])
	}
}

func TestEndpointsRequireBearerToken(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/items", "", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsOwner(t, api)
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		PaymentType: "cash",
		Items:       []domain.SaleLine{{ItemID: "item-water", Quantity: 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)["transaction"].(map[string]any)
	if created["total_amount"] != "7.98" {
		t.Fatalf("expected total 7.98, got %v", created["total_amount"])
	}

	txID, _ := created["id"].(string)
	rec = doJSON(t, api, http.MethodGet, "/api/v1/sales/"+txID, token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching the sale, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/items", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing items, got %d", rec.Code)
	}
	items := decodeBody(t, rec)["items"].([]any)
	for _, raw := range items {
		it := raw.(map[string]any)
		if it["id"] == "item-water" && it["stock"] != float64(48) {
			t.Fatalf("expected stock 48 after the sale, got %v", it["stock"])
		}
	}
}

func TestCreditFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsOwner(t, api)
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		CustomerID:  "cust-amina",
		PaymentType: "credit",
		DueDate:     time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02"),
		Items:       []domain.SaleLine{{ItemID: "item-rice", Quantity: 1}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)["transaction"].(map[string]any)
	if created["credit_status"] != "pending" {
		t.Fatalf("expected pending credit, got %v", created["credit_status"])
	}
	txID, _ := created["id"].(string)

	rec = doJSON(t, api, http.MethodGet, "/api/v1/credits/pending", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing pending credits, got %d", rec.Code)
	}
	if credits := decodeBody(t, rec)["credits"].([]any); len(credits) != 1 {
		t.Fatalf("expected one pending credit, got %d", len(credits))
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/credits/alerts", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching alerts, got %d", rec.Code)
	}
	alerts := decodeBody(t, rec)
	dueSoon := alerts["due_soon"].(map[string]any)
	if dueSoon["count"] != float64(1) {
		t.Fatalf("expected one due-soon credit, got %v", dueSoon)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/credits/"+txID+"/mark-paid", token, csrf, domain.MarkPaidRequest{
		PaymentMethod: "cash",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 marking paid, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	paid := decodeBody(t, rec)["transaction"].(map[string]any)
	if paid["credit_status"] != "paid" {
		t.Fatalf("expected paid status, got %v", paid["credit_status"])
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/credits/paid", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing paid credits, got %d", rec.Code)
	}
	if credits := decodeBody(t, rec)["credits"].([]any); len(credits) != 1 {
		t.Fatalf("expected one paid credit, got %d", len(credits))
	}
}

func TestReturnOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsOwner(t, api)
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		PaymentType: "cash",
		Items:       []domain.SaleLine{{ItemID: "item-soap", Quantity: 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	txID, _ := decodeBody(t, rec)["transaction"].(map[string]any)["id"].(string)

	rec = doJSON(t, api, http.MethodPost, "/api/v1/returns", token, csrf, domain.ReturnRequest{
		TransactionID: txID,
		Reason:        "wrong item",
		Items:         []domain.ReturnLine{{ItemID: "item-soap", Quantity: 1}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 recording return, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	ret := decodeBody(t, rec)["return"].(map[string]any)
	// decimal's JSON encoding drops trailing zeros, so 1.90 serializes as "1.9".
	if ret["total_refund"] != "1.9" {
		t.Fatalf("expected refund 1.9, got %v", ret["total_refund"])
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/returns", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing returns, got %d", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsOwner(t, api)
	csrf := fetchCSRFToken(t, api)

	// Unknown item -> 404.
	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		PaymentType: "cash",
		Items:       []domain.SaleLine{{ItemID: "item-nope", Quantity: 1}},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown item, got %d", rec.Code)
	}

	// Bad payment type -> 400.
	rec = doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		PaymentType: "transfer",
		Items:       []domain.SaleLine{{ItemID: "item-water", Quantity: 1}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad payment type, got %d", rec.Code)
	}

	// Oversold quantity -> 409.
	rec = doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		PaymentType: "cash",
		Items:       []domain.SaleLine{{ItemID: "item-bread", Quantity: 999}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient stock, got %d", rec.Code)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsOwner(t, api)
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, map[string]any{
		"payment_type": "cash",
		"items":        []map[string]any{{"item_id": "item-water", "quantity": 1}},
		"total_amount": "0.01",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for client-supplied total, got %d", rec.Code)
	}
}

func TestAdminEndpointsRejectOwnerToken(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsOwner(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/admin/stats", token, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for owner token on admin endpoint, got %d", rec.Code)
	}
}

func TestAdminStatsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/admin/stats", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	stats := decodeBody(t, rec)
	if stats["stores"] != float64(1) {
		t.Fatalf("expected one seeded store, got %v", stats["stores"])
	}
}

func TestAdminTokenHasNoStoreScope(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/items", token, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin token on store endpoint, got %d", rec.Code)
	}
}

func TestAnalyticsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsOwner(t, api)
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		PaymentType: "cash",
		Items:       []domain.SaleLine{{ItemID: "item-water", Quantity: 1}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	for _, path := range []string{"/api/v1/analytics/daily-income", "/api/v1/analytics/daily-profit"} {
		rec := doJSON(t, api, http.MethodGet, path, token, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, rec.Code)
		}
		if days := decodeBody(t, rec)["days"].([]any); len(days) != 1 {
			t.Fatalf("expected one day of data for %s, got %d", path, len(days))
		}
	}
}

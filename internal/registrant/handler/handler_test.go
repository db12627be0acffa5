package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"canonreg/internal/registrant/service"
	"canonreg/internal/registrant/store"
	admintoken "canonreg/pkg/platform/middleware/admin"
	"canonreg/pkg/testutil"
)

const adminToken = "secret-token"

func newRegistrantRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc, err := service.New(store.NewInMemory(), service.WithLogger(logger))
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(admintoken.RequireAdminToken(adminToken, logger))
		h.RegisterAdmin(r)
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, payload any, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, path, payload)
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
	return testutil.DoRequest(router, req)
}

func TestRegisterPersonViaHandler(t *testing.T) {
	router := newRegistrantRouter(t)

	rec := postJSON(t, router, "/register/person", map[string]string{
		"first_name": "John",
		"last_name":  "Smith",
		"phone":      "555-123-4567",
		"email":      "John.Smith@Domain.com",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 registering person, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp RegistrationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.CanonicalID != "J.SMITH.4567.john.smith@domain.com" {
		t.Fatalf("unexpected canonical id %q", resp.CanonicalID)
	}
	if resp.Status != "pending" {
		t.Fatalf("expected pending status, got %q", resp.Status)
	}
}

func TestRegisterPersonValidation(t *testing.T) {
	router := newRegistrantRouter(t)

	rec := postJSON(t, router, "/register/person", map[string]string{
		"first_name": "John",
		"last_name":  "Smith",
		"email":      "not-an-email",
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", rec.Code)
	}
}

func TestRegisterOrganizationViaHandler(t *testing.T) {
	router := newRegistrantRouter(t)

	rec := postJSON(t, router, "/register/organization", map[string]string{
		"name":          "Acme Corp",
		"org_type":      "Corporation",
		"contact_email": "info@acme.com",
		"phone":         "555-000-1000",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 registering organization, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp RegistrationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.CanonicalID != "A.ACMECORP.1000.info@acme.com" {
		t.Fatalf("unexpected canonical id %q", resp.CanonicalID)
	}
}

func TestAdminTokenRequired(t *testing.T) {
	router := newRegistrantRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/pending/person", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when admin token missing, got %d", rec.Code)
	}
}

func TestApprovalViaHandlers(t *testing.T) {
	router := newRegistrantRouter(t)

	rec := postJSON(t, router, "/register/person", map[string]string{
		"first_name": "John",
		"last_name":  "Smith",
		"phone":      "555-123-4567",
		"email":      "jsmith@example.com",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 registering person, got %d", rec.Code)
	}
	var created RegistrationResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/admin/pending/person", nil)
	listReq.Header.Set("X-Admin-Token", adminToken)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing pending, got %d", listRec.Code)
	}
	var pending []RecordResponse
	if err := json.NewDecoder(listRec.Body).Decode(&pending); err != nil {
		t.Fatalf("failed to decode pending list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != created.ID {
		t.Fatalf("expected the new registration in the pending queue")
	}

	approveRec := postJSON(t, router, "/admin/registrants/person/"+created.ID+"/approve", nil, adminToken)
	if approveRec.Code != http.StatusOK {
		t.Fatalf("expected 200 approving, got %d: %s", approveRec.Code, approveRec.Body.String())
	}

	// Terminal states cannot be re-decided.
	again := postJSON(t, router, "/admin/registrants/person/"+created.ID+"/approve", nil, adminToken)
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409 re-approving, got %d", again.Code)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	router := newRegistrantRouter(t)

	rec := postJSON(t, router, "/admin/registrants/person/"+uuid.New().String()+"/reject",
		map[string]string{}, adminToken)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a rejection reason, got %d", rec.Code)
	}
}

func TestUnknownKindRejected(t *testing.T) {
	router := newRegistrantRouter(t)

	rec := postJSON(t, router, "/admin/registrants/robot/"+uuid.New().String()+"/approve",
		nil, adminToken)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", rec.Code)
	}
}

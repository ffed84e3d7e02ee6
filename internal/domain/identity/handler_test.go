package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dermtriage/dermtriage/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := NewService(newMockPatientRepo(), newMockDoctorRepo())
	return NewHandler(svc), echo.New()
}

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID uuid.UUID, role string) echo.Context {
	ctx := req.Context()
	ctx = context.WithValue(ctx, auth.UserIDKey, userID.String())
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{role})
	return e.NewContext(req.WithContext(ctx), rec)
}

func TestHandler_CreatePatient_UsesTokenSubject(t *testing.T) {
	h, e := newTestHandler()
	uid := uuid.New()

	body := `{"id":"` + uuid.NewString() + `","full_name":"Asha Rao","gender":"female"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uid, "patient")

	if err := h.CreatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var p PatientProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if p.ID != uid {
		t.Errorf("profile id = %s, want token subject %s", p.ID, uid)
	}
}

func TestHandler_CreatePatient_Invalid(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{"gender":"female"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New(), "patient")

	err := h.CreatePatient(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}

func TestHandler_GetPatient_OtherPatientForbidden(t *testing.T) {
	h, e := newTestHandler()
	owner := uuid.New()
	if err := h.svc.CreatePatient(context.Background(), &PatientProfile{ID: owner, FullName: "Asha Rao", Gender: strPtr("female")}); err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New(), "patient")
	c.SetParamNames("id")
	c.SetParamValues(owner.String())

	err := h.GetPatient(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 HTTPError, got %v", err)
	}
}

func TestHandler_GetPatient_DoctorAllowed(t *testing.T) {
	h, e := newTestHandler()
	owner := uuid.New()
	if err := h.svc.CreatePatient(context.Background(), &PatientProfile{ID: owner, FullName: "Asha Rao", Gender: strPtr("female")}); err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New(), "doctor")
	c.SetParamNames("id")
	c.SetParamValues(owner.String())

	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_SetDoctorVerified(t *testing.T) {
	h, e := newTestHandler()
	doc := &DoctorProfile{ID: uuid.New(), FullName: "Dr. Mehta", LicenseNumber: "MH-1234"}
	if err := h.svc.CreateDoctor(context.Background(), doc); err != nil {
		t.Fatalf("seed doctor: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"verified":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New(), "admin")
	c.SetParamNames("id")
	c.SetParamValues(doc.ID.String())

	if err := h.SetDoctorVerified(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	got, err := h.svc.GetDoctor(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("get doctor: %v", err)
	}
	if !got.Verified {
		t.Error("doctor should be verified after the flip")
	}
}

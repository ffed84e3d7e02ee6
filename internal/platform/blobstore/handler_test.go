package blobstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dermtriage/dermtriage/internal/platform/auth"
)

func photoContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID, role string) echo.Context {
	ctx := req.Context()
	ctx = context.WithValue(ctx, auth.UserIDKey, userID)
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{role})
	return e.NewContext(req.WithContext(ctx), rec)
}

func TestHandler_Download_OtherPatientForbidden(t *testing.T) {
	store := NewInMemoryPhotoStore()
	meta := upload(t, store, "patient-a", "arm.jpg", "image/jpeg", "secret-bytes")
	h := NewHandler(store)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := photoContext(e, req, rec, "patient-b", "patient")
	c.SetParamNames("id")
	c.SetParamValues(meta.ID)

	err := h.Download(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 HTTPError, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("response body must stay empty, got %q", rec.Body.String())
	}
}

func TestHandler_Download_OwnerAndDoctorAllowed(t *testing.T) {
	store := NewInMemoryPhotoStore()
	meta := upload(t, store, "patient-a", "arm.jpg", "image/jpeg", "jpeg-bytes")
	h := NewHandler(store)
	e := echo.New()

	cases := []struct {
		name   string
		userID string
		role   string
	}{
		{"owner", "patient-a", "patient"},
		{"doctor", "doctor-1", "doctor"},
		{"admin", "admin-1", "admin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := photoContext(e, req, rec, tc.userID, tc.role)
			c.SetParamNames("id")
			c.SetParamValues(meta.ID)

			if err := h.Download(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
			if rec.Body.String() != "jpeg-bytes" {
				t.Errorf("unexpected body: %q", rec.Body.String())
			}
		})
	}
}

func TestHandler_GetMetadata_OtherPatientForbidden(t *testing.T) {
	store := NewInMemoryPhotoStore()
	meta := upload(t, store, "patient-a", "arm.jpg", "image/jpeg", "jpeg-bytes")
	h := NewHandler(store)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := photoContext(e, req, rec, "patient-b", "patient")
	c.SetParamNames("id")
	c.SetParamValues(meta.ID)

	err := h.GetMetadata(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 HTTPError, got %v", err)
	}
}

func TestHandler_ListByPatient_ForeignPatientIDForbidden(t *testing.T) {
	store := NewInMemoryPhotoStore()
	upload(t, store, "patient-a", "arm.jpg", "image/jpeg", "jpeg-bytes")
	h := NewHandler(store)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?patient_id=patient-a", nil)
	rec := httptest.NewRecorder()
	c := photoContext(e, req, rec, "patient-b", "patient")

	err := h.ListByPatient(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 HTTPError, got %v", err)
	}
}

func TestHandler_ListByPatient_DoctorMaySelectPatient(t *testing.T) {
	store := NewInMemoryPhotoStore()
	upload(t, store, "patient-a", "arm.jpg", "image/jpeg", "jpeg-bytes")
	h := NewHandler(store)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?patient_id=patient-a", nil)
	rec := httptest.NewRecorder()
	c := photoContext(e, req, rec, "doctor-1", "doctor")

	if err := h.ListByPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_ListByPatient_DefaultsToSelf(t *testing.T) {
	store := NewInMemoryPhotoStore()
	upload(t, store, "patient-a", "arm.jpg", "image/jpeg", "jpeg-bytes")
	upload(t, store, "patient-b", "leg.jpg", "image/jpeg", "jpeg-bytes")
	h := NewHandler(store)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := photoContext(e, req, rec, "patient-a", "patient")

	if err := h.ListByPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

package blobstore

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dermtriage/dermtriage/internal/platform/auth"
	"github.com/dermtriage/dermtriage/pkg/pagination"
)

// Handler exposes photo upload/download over HTTP.
type Handler struct {
	store PhotoStore
}

func NewHandler(store PhotoStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/photos", h.Upload, auth.RequireRole("patient"))
	api.GET("/photos", h.ListByPatient, auth.RequireRole("patient", "doctor"))
	api.GET("/photos/:id", h.Download, auth.RequireRole("patient", "doctor"))
	api.GET("/photos/:id/metadata", h.GetMetadata, auth.RequireRole("patient", "doctor"))
}

// Upload accepts a multipart photo under the "photo" form field. The owning
// patient is the authenticated caller.
func (h *Handler) Upload(c echo.Context) error {
	file, err := c.FormFile("photo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "photo form field is required")
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer src.Close()

	meta := PhotoMetadata{
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		PatientID:   auth.UserIDFromContext(c.Request().Context()),
	}

	stored, err := h.store.Upload(c.Request().Context(), meta, src)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, ErrInvalidContentType), errors.Is(err, ErrMissingFileName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, stored)
}

func (h *Handler) Download(c echo.Context) error {
	body, meta, err := h.store.Download(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrPhotoNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "photo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer body.Close()

	if !canReadPhotosOf(c, meta.PatientID) {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return c.Stream(http.StatusOK, meta.ContentType, body)
}

func (h *Handler) GetMetadata(c echo.Context) error {
	meta, err := h.store.GetMetadata(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrPhotoNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "photo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !canReadPhotosOf(c, meta.PatientID) {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return c.JSON(http.StatusOK, meta)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		patientID = auth.UserIDFromContext(c.Request().Context())
	}
	if !canReadPhotosOf(c, patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.store.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// canReadPhotosOf allows the owning patient, any doctor, and admins. Photos
// carry protected health imagery and get the same read access as the reports
// generated from them.
func canReadPhotosOf(c echo.Context, ownerID string) bool {
	ctx := c.Request().Context()
	roles := auth.RolesFromContext(ctx)
	if auth.HasRole(roles, "admin") || auth.HasRole(roles, "doctor") {
		return true
	}
	return auth.UserIDFromContext(ctx) == ownerID
}

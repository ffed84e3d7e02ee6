package report

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dermtriage/dermtriage/internal/platform/ai"
	"github.com/dermtriage/dermtriage/internal/platform/auth"
	"github.com/dermtriage/dermtriage/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	reports := api.Group("/reports")
	reports.POST("", h.Create, auth.RequireRole("patient"))
	reports.GET("", h.List, auth.RequireRole("patient", "doctor"))
	reports.GET("/:id", h.Get, auth.RequireRole("patient", "doctor"))
	reports.POST("/:id/route", h.Route, auth.RequireRole("patient"))
	reports.POST("/:id/decision", h.Decide, auth.RequireRole("doctor"))
	reports.PUT("/:id/notes", h.AmendNotes, auth.RequireRole("doctor"))
	reports.POST("/:id/translate", h.Translate, auth.RequireRole("patient", "doctor"))

	console := api.Group("/console", auth.RequireRole("doctor"))
	console.GET("/groups", h.ConsoleGroups)
}

func (h *Handler) Create(c echo.Context) error {
	patientID, err := subjectID(c)
	if err != nil {
		return err
	}
	var body struct {
		PhotoID  string `json:"photo_id"`
		Symptoms string `json:"symptoms"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rep, err := h.svc.Create(c.Request().Context(), patientID, body.PhotoID, body.Symptoms)
	if err != nil {
		return mapServiceError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, rep)
}

// List returns the caller's own reports: the patient's submissions, or the
// doctor's review queue. The repo queries are already newest-first, so the
// page window is applied in order.
func (h *Handler) List(c echo.Context) error {
	uid, err := subjectID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var reports []*Report
	if auth.HasRole(auth.RolesFromContext(ctx), "doctor") {
		reports, err = h.svc.ListByDoctor(ctx, uid)
	} else {
		reports, err = h.svc.ListByPatient(ctx, uid)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	params := pagination.FromContext(c)
	total := len(reports)
	page := []*Report{}
	if params.Offset < total {
		end := params.Offset + params.Limit
		if end > total {
			end = total
		}
		page = reports[params.Offset:end]
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(page, total, params.Limit, params.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	rep, err := h.fetchVisible(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) Route(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	uid, err := subjectID(c)
	if err != nil {
		return err
	}
	var body struct {
		DoctorID uuid.UUID `json:"doctor_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.DoctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}

	ctx := c.Request().Context()
	rep, err := h.svc.Get(ctx, id)
	if err != nil {
		return mapServiceError(err, http.StatusInternalServerError)
	}
	// Only the report's owner may route it.
	if rep.PatientID != uid && !auth.HasRole(auth.RolesFromContext(ctx), "admin") {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}

	rep, err = h.svc.RouteToDoctor(ctx, id, body.DoctorID)
	if err != nil {
		return mapServiceError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) Decide(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	uid, err := subjectID(c)
	if err != nil {
		return err
	}
	var body struct {
		Decision string `json:"decision"`
		Notes    string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rep, err := h.svc.Decide(c.Request().Context(), id, uid, body.Decision, body.Notes)
	if err != nil {
		return mapServiceError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) AmendNotes(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	uid, err := subjectID(c)
	if err != nil {
		return err
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rep, err := h.svc.AmendNotes(c.Request().Context(), id, uid, body.Notes)
	if err != nil {
		return mapServiceError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) Translate(c echo.Context) error {
	rep, err := h.fetchVisible(c)
	if err != nil {
		return err
	}
	var body struct {
		Language string `json:"language"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	translated, err := h.svc.Translate(c.Request().Context(), rep.ID, body.Language)
	if err != nil {
		return mapServiceError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, translated)
}

func (h *Handler) ConsoleGroups(c echo.Context) error {
	uid, err := subjectID(c)
	if err != nil {
		return err
	}
	groups, err := h.svc.ConsoleGroups(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, groups)
}

// fetchVisible loads the report on :id and enforces read access: the owning
// patient, the assigned doctor, or an admin.
func (h *Handler) fetchVisible(c echo.Context) (*Report, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	uid, err := subjectID(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	rep, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, mapServiceError(err, http.StatusInternalServerError)
	}
	if rep.PatientID == uid || rep.AssignedTo(uid) || auth.HasRole(auth.RolesFromContext(ctx), "admin") {
		return rep, nil
	}
	return nil, echo.NewHTTPError(http.StatusForbidden, "forbidden")
}

func subjectID(c echo.Context) (uuid.UUID, error) {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
	}
	return uid, nil
}

// mapServiceError translates domain sentinels to HTTP statuses. Precondition
// violations map to 409 so clients know to re-fetch and retry; model
// failures map to 502 since the upstream call is what failed.
func mapServiceError(err error, fallback int) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotAssigned):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ai.ErrMalformedOutput):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(fallback, err.Error())
	}
}

package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	// A patient may read and edit their own profile; doctors and admins may
	// read any patient profile when working a case.
	patients := api.Group("/patients")
	patients.POST("", h.CreatePatient, auth.RequireRole("patient"))
	patients.GET("/:id", h.GetPatient, auth.RequireRole("patient", "doctor"))
	patients.PUT("/:id", h.UpdatePatient, auth.RequireRole("patient"))
	patients.GET("", h.ListPatients, auth.RequireRole("admin"))
	patients.DELETE("/:id", h.DeletePatient, auth.RequireRole("admin"))

	doctors := api.Group("/doctors")
	doctors.GET("", h.ListDoctors, auth.RequireRole("patient", "doctor"))
	doctors.GET("/:id", h.GetDoctor, auth.RequireRole("patient", "doctor"))
	doctors.POST("", h.CreateDoctor, auth.RequireRole("doctor"))
	doctors.PUT("/:id", h.UpdateDoctor, auth.RequireRole("doctor"))
	doctors.PUT("/:id/verification", h.SetDoctorVerified, auth.RequireRole("admin"))
	doctors.DELETE("/:id", h.DeleteDoctor, auth.RequireRole("admin"))
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var p PatientProfile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// The profile id is the authenticated subject so that a patient's token
	// always resolves to their own row.
	if !auth.HasRole(auth.RolesFromContext(c.Request().Context()), "admin") {
		uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
		}
		p.ID = uid
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !h.canReadPatient(c, id) {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !h.ownsProfile(c, id) {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	var p PatientProfile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	params := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, params.Limit, params.Offset))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Doctor Handlers --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d DoctorProfile
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !auth.HasRole(auth.RolesFromContext(c.Request().Context()), "admin") {
		uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
		}
		d.ID = uid
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), &d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !h.ownsProfile(c, id) {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	var d DoctorProfile
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.ID = id
	if err := h.svc.UpdateDoctor(c.Request().Context(), &d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) SetDoctorVerified(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Verified bool `json:"verified"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.SetDoctorVerified(c.Request().Context(), id, body.Verified)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	params := pagination.FromContext(c)
	verifiedOnly := c.QueryParam("verified") == "true"
	doctors, total, err := h.svc.ListDoctors(c.Request().Context(), verifiedOnly, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, params.Limit, params.Offset))
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ownsProfile reports whether the authenticated subject is the profile
// owner. Admins pass unconditionally.
func (h *Handler) ownsProfile(c echo.Context, id uuid.UUID) bool {
	if auth.HasRole(auth.RolesFromContext(c.Request().Context()), "admin") {
		return true
	}
	return auth.UserIDFromContext(c.Request().Context()) == id.String()
}

// canReadPatient allows the patient themselves, any doctor, and admins.
func (h *Handler) canReadPatient(c echo.Context, id uuid.UUID) bool {
	roles := auth.RolesFromContext(c.Request().Context())
	if auth.HasRole(roles, "admin") || auth.HasRole(roles, "doctor") {
		return true
	}
	return auth.UserIDFromContext(c.Request().Context()) == id.String()
}

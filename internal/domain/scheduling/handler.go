package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// callerRole returns the role the access guard resolved for this request.
// Guarded routes always have one; the zero value only shows up in tests that
// bypass the guard.
func callerRole(c echo.Context) auth.Role {
	role, _ := auth.RoleFromContext(c.Request().Context())
	return role
}

func (h *Handler) RegisterRoutes(api *echo.Group, guard *auth.Guard) {
	// Receipt must be registered before :id so echo does not treat
	// "receipt" as an appointment id.
	read := api.Group("/appointments", guard.Require("appointments.read"))
	read.GET("/receipt", h.Receipt)
	read.GET("", h.List)
	read.GET("/:id", h.Get)

	book := api.Group("/appointments", guard.Require("appointments.book"))
	book.POST("", h.Book)
	book.POST("/:id/cancel", h.Cancel)

	manage := api.Group("/appointments", guard.Require("appointments.manage"))
	manage.POST("/:id/checkin", h.CheckIn)
}

func (h *Handler) Book(c echo.Context) error {
	var in BookInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sess, err := auth.RequireSession(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.AccessDeniedMessage)
	}

	a, err := h.svc.Book(ctx, in, sess.PrincipalID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	ctx := c.Request().Context()
	sess, err := auth.RequireSession(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.AccessDeniedMessage)
	}

	a, err := h.svc.Get(ctx, id, sess.PrincipalID, callerRole(c))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrNotOwner):
			return echo.NewHTTPError(http.StatusForbidden, auth.AccessDeniedMessage)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load appointment")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	sess, err := auth.RequireSession(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.AccessDeniedMessage)
	}

	var filter ListFilter
	if pid := c.QueryParam("patient_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		filter.PatientID = &id
	}
	if did := c.QueryParam("doctor_id"); did != "" {
		id, err := uuid.Parse(did)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		filter.DoctorID = &id
	}
	filter.Status = c.QueryParam("status")

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(ctx, filter, sess.PrincipalID, callerRole(c), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list appointments")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&in); err != nil && c.Request().ContentLength > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sess, err := auth.RequireSession(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.AccessDeniedMessage)
	}

	a, err := h.svc.Cancel(ctx, id, in.Reason, sess.PrincipalID, callerRole(c))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrNotOwner):
			return echo.NewHTTPError(http.StatusForbidden, auth.AccessDeniedMessage)
		case errors.Is(err, ErrBadTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to cancel appointment")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CheckIn(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	a, err := h.svc.CheckIn(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrBadTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check in")
	}
	return c.JSON(http.StatusOK, a)
}

// Receipt returns a plain-text receipt for ?appointmentId=. A missing
// parameter is a 400, not an empty receipt.
func (h *Handler) Receipt(c echo.Context) error {
	raw := c.QueryParam("appointmentId")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "appointmentId is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointmentId")
	}

	ctx := c.Request().Context()
	sess, err := auth.RequireSession(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.AccessDeniedMessage)
	}

	text, err := h.svc.Receipt(ctx, id, sess.PrincipalID, callerRole(c))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrNotOwner):
			return echo.NewHTTPError(http.StatusForbidden, auth.AccessDeniedMessage)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render receipt")
	}
	return c.String(http.StatusOK, text)
}

package pharmacy

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

func (h *Handler) RegisterRoutes(api *echo.Group, guard *auth.Guard) {
	read := api.Group("/medications", guard.Require("pharmacy.read"))
	read.GET("", h.ListMedications)
	read.GET("/:id", h.GetMedication)

	write := api.Group("/medications", guard.Require("pharmacy.write"))
	write.POST("", h.CreateMedication)
	write.PUT("/:id", h.UpdateMedication)

	restock := api.Group("/medications", guard.Require("pharmacy.restock"))
	restock.POST("/:id/restock", h.Restock)

	salesRead := api.Group("/sales", guard.Require("sales.read"))
	salesRead.GET("", h.ListSales)

	salesWrite := api.Group("/sales", guard.Require("sales.write"))
	salesWrite.POST("", h.RecordSale)
}

func (h *Handler) CreateMedication(c echo.Context) error {
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateMedication(c.Request().Context(), &m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.GetMedication(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "medication not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load medication")
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = id
	if err := h.svc.UpdateMedication(c.Request().Context(), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "medication not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMedications(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMedications(c.Request().Context(), c.QueryParam("search"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list medications")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// Restock validates app-side before calling the stored procedure. A
// non-positive quantity never reaches the database.
func (h *Handler) Restock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in RestockInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sess, err := auth.RequireSession(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.AccessDeniedMessage)
	}

	if err := h.svc.Restock(ctx, id, in.Quantity, in.Reason, sess.PrincipalID); err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuantity):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "medication not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "restock failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Stock updated"})
}

func (h *Handler) RecordSale(c echo.Context) error {
	var in SaleInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sess, err := auth.RequireSession(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.AccessDeniedMessage)
	}

	sale, err := h.svc.RecordSale(ctx, in, sess.PrincipalID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuantity):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInsufficientStock):
			return echo.NewHTTPError(http.StatusConflict, "insufficient stock")
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "medication not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sale)
}

func (h *Handler) ListSales(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSales(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list sales")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

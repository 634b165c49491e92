package reports

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, guard *auth.Guard) {
	g := api.Group("/reports", guard.Require("reports.read"))
	g.GET("/profit-reorder", h.ProfitReorder)
	g.GET("/top-selling", h.TopSelling)
	g.GET("/daily-collection", h.DailyCollection)
}

// Report endpoints return the rows as a bare JSON array; an empty report is
// [] rather than null.
func (h *Handler) ProfitReorder(c echo.Context) error {
	items, err := h.svc.ProfitReorder(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "report failed")
	}
	if items == nil {
		items = []ProfitReorderRow{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) TopSelling(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	items, err := h.svc.TopSelling(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "report failed")
	}
	if items == nil {
		items = []TopSellingRow{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DailyCollection(c echo.Context) error {
	var start, end time.Time
	if raw := c.QueryParam("start"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start date, want YYYY-MM-DD")
		}
		start = t
	}
	if raw := c.QueryParam("end"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end date, want YYYY-MM-DD")
		}
		end = t.AddDate(0, 0, 1) // inclusive end day
	}

	items, err := h.svc.DailyCollection(c.Request().Context(), start, end)
	if err != nil {
		if errors.Is(err, ErrInvalidRange) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "report failed")
	}
	if items == nil {
		items = []DailyCollectionRow{}
	}
	return c.JSON(http.StatusOK, items)
}

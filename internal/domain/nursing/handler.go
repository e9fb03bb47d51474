package nursing

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medicore/hms/internal/domain/admission"
	"github.com/medicore/hms/internal/domain/catalog"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/medications", h.schedule)
	g.GET("/cases/:id/medications", h.listByCase)
	g.POST("/medications/:id/given", h.markGiven)
	g.POST("/medications/:id/reschedule", h.reschedule)
	g.POST("/medications/:id/skip", h.skip)
}

func (h *Handler) schedule(c echo.Context) error {
	var req struct {
		CaseID      uuid.UUID  `json:"case_id"`
		Medication  string     `json:"medication"`
		Dose        string     `json:"dose,omitempty"`
		Route       string     `json:"route,omitempty"`
		ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	r := &MedicationRecord{
		CaseID:     req.CaseID,
		Medication: req.Medication,
		Dose:       req.Dose,
		Route:      req.Route,
	}
	if req.ScheduledAt != nil {
		r.ScheduledAt = *req.ScheduledAt
	}

	err := h.svc.Schedule(c.Request().Context(), r)
	switch {
	case errors.Is(err, admission.ErrCaseNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	case errors.Is(err, admission.ErrCaseNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) listByCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	records, err := h.svc.ListByCase(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list medication records")
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) markGiven(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}
	var req struct {
		GivenBy string `json:"given_by,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	r, err := h.svc.MarkGiven(c.Request().Context(), id, req.GivenBy)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "medication record not found")
	case errors.Is(err, ErrNotScheduled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrRateNotFound):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record administration")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}
	var req struct {
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if err := c.Bind(&req); err != nil || req.ScheduledAt.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduled_at is required")
	}

	r, err := h.svc.Reschedule(c.Request().Context(), id, req.ScheduledAt)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "medication record not found")
	case errors.Is(err, ErrNotScheduled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to reschedule")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) skip(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}

	r, err := h.svc.Skip(c.Request().Context(), id)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "medication record not found")
	case errors.Is(err, ErrNotScheduled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to skip dose")
	}
	return c.JSON(http.StatusOK, r)
}

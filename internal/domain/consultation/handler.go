package consultation

import (
	"errors"
	"net/http"

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
	g.POST("/consultations", h.schedule)
	g.GET("/cases/:id/consultations", h.listByCase)
	g.POST("/consultations/:id/complete", h.complete)
	g.POST("/consultations/:id/refer", h.refer)
}

func (h *Handler) schedule(c echo.Context) error {
	var req struct {
		CaseID       uuid.UUID  `json:"case_id"`
		DoctorID     uuid.UUID  `json:"doctor_id"`
		DepartmentID *uuid.UUID `json:"department_id,omitempty"`
		Notes        string     `json:"notes,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cons := &Consultation{
		CaseID:       req.CaseID,
		DoctorID:     req.DoctorID,
		DepartmentID: req.DepartmentID,
		Notes:        req.Notes,
	}
	err := h.svc.Schedule(c.Request().Context(), cons)
	switch {
	case errors.Is(err, admission.ErrCaseNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	case errors.Is(err, admission.ErrCaseNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cons)
}

func (h *Handler) listByCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	consultations, err := h.svc.ListByCase(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list consultations")
	}
	return c.JSON(http.StatusOK, consultations)
}

func (h *Handler) complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid consultation id")
	}

	cons, err := h.svc.Complete(c.Request().Context(), id)
	switch {
	case errors.Is(err, ErrConsultationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	case errors.Is(err, ErrAlreadyCompleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrRateNotFound):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to complete consultation")
	}
	return c.JSON(http.StatusOK, cons)
}

func (h *Handler) refer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid consultation id")
	}
	var req struct {
		DoctorID     uuid.UUID  `json:"doctor_id"`
		DepartmentID *uuid.UUID `json:"department_id,omitempty"`
		Notes        string     `json:"notes,omitempty"`
	}
	if err := c.Bind(&req); err != nil || req.DoctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}

	referral, err := h.svc.Refer(c.Request().Context(), id, req.DoctorID, req.DepartmentID, req.Notes)
	switch {
	case errors.Is(err, ErrConsultationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, referral)
}

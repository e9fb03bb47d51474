package admission

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medicore/hms/internal/domain/billing"
	"github.com/medicore/hms/internal/domain/catalog"
	"github.com/medicore/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/cases", h.openCase)
	g.GET("/cases/:id", h.getCase)
	g.GET("/hospitals/:id/cases", h.listCases)
	g.POST("/cases/:id/bed", h.assignBed)
	g.POST("/cases/:id/discharge", h.discharge)
	g.PUT("/cases/:id/insurance", h.setInsuranceStatus)
}

func (h *Handler) openCase(c echo.Context) error {
	var req struct {
		HospitalID uuid.UUID  `json:"hospital_id"`
		PatientID  uuid.UUID  `json:"patient_id"`
		DoctorID   *uuid.UUID `json:"doctor_id,omitempty"`
		InsurerID  *uuid.UUID `json:"insurer_id,omitempty"`
		AdmittedAt *time.Time `json:"admitted_at,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cs := &Case{
		HospitalID: req.HospitalID,
		PatientID:  req.PatientID,
		DoctorID:   req.DoctorID,
		InsurerID:  req.InsurerID,
	}
	if req.AdmittedAt != nil {
		cs.AdmittedAt = *req.AdmittedAt
	}
	if err := h.svc.OpenCase(c.Request().Context(), cs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *Handler) getCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	cs, err := h.svc.GetCase(c.Request().Context(), id)
	if errors.Is(err, ErrCaseNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load case")
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) listCases(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}
	p := pagination.FromContext(c)
	cases, total, err := h.svc.ListCases(c.Request().Context(), hospitalID,
		CaseStatus(c.QueryParam("status")), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list cases")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(cases, total, p.Limit, p.Offset))
}

func (h *Handler) assignBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var req struct {
		BedID uuid.UUID `json:"bed_id"`
	}
	if err := c.Bind(&req); err != nil || req.BedID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bed_id is required")
	}

	cs, err := h.svc.AssignBed(c.Request().Context(), id, req.BedID)
	switch {
	case errors.Is(err, ErrCaseNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	case errors.Is(err, ErrBedOccupied), errors.Is(err, ErrBedAlreadyAssigned), errors.Is(err, ErrCaseNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to assign bed")
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var req struct {
		DischargedAt *time.Time `json:"discharged_at,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	at := time.Time{}
	if req.DischargedAt != nil {
		at = *req.DischargedAt
	}

	cs, err := h.svc.Discharge(c.Request().Context(), id, at)
	switch {
	case errors.Is(err, ErrCaseNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	case errors.Is(err, ErrCaseNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, billing.ErrDateInconsistency):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to discharge case")
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) setInsuranceStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var req struct {
		Status    catalog.ApprovalStatus `json:"status"`
		InsurerID *uuid.UUID             `json:"insurer_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cs, oldNet, newNet, err := h.svc.SetInsuranceStatus(c.Request().Context(), id, req.Status, req.InsurerID)
	switch {
	case errors.Is(err, ErrCaseNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"case":    cs,
		"old_net": oldNet,
		"new_net": newNet,
	})
}

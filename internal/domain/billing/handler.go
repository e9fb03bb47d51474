package billing

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medicore/hms/internal/domain/catalog"
	"github.com/medicore/hms/internal/platform/auth"
	"github.com/medicore/hms/pkg/pagination"
)

type Handler struct {
	svc         *Service
	accumulator *Accumulator
}

func NewHandler(svc *Service, accumulator *Accumulator) *Handler {
	return &Handler{svc: svc, accumulator: accumulator}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/bills", h.listBills)
	g.GET("/bills/:id", h.getBill)
	g.POST("/bills", h.createWalkIn)
	g.PUT("/bills/:id/services", h.replaceServices)
	g.POST("/bills/:id/expenses", h.addExpense)
	g.POST("/bills/:id/discount", h.applyDiscount)
	g.POST("/bills/:id/payments", h.addPayment)
	g.POST("/billing/run-daily", h.runDaily, auth.RequireRole("admin"))
}

type lineItemRequest struct {
	ServiceID *uuid.UUID `json:"service_id,omitempty"`
	Category  string     `json:"category"`
	Details   string     `json:"details,omitempty"`
	Quantity  float64    `json:"quantity"`
	Rate      float64    `json:"rate,omitempty"`
}

func (r lineItemRequest) toItem() *ServiceLineItem {
	return &ServiceLineItem{
		ServiceID: r.ServiceID,
		Category:  r.Category,
		Details:   r.Details,
		Quantity:  r.Quantity,
		Rate:      r.Rate,
	}
}

func (h *Handler) listBills(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.QueryParam("hospital_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital_id query parameter is required")
	}
	p := pagination.FromContext(c)
	bills, total, err := h.svc.ListBills(c.Request().Context(), hospitalID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list bills")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(bills, total, p.Limit, p.Offset))
}

func (h *Handler) getBill(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	bill, err := h.svc.GetBill(c.Request().Context(), id)
	if errors.Is(err, ErrBillNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "bill not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load bill")
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) createWalkIn(c echo.Context) error {
	var req struct {
		CaseID          uuid.UUID              `json:"case_id"`
		HospitalID      uuid.UUID              `json:"hospital_id"`
		PatientID       uuid.UUID              `json:"patient_id"`
		DoctorID        *uuid.UUID             `json:"doctor_id,omitempty"`
		InsurerID       *uuid.UUID             `json:"insurer_id,omitempty"`
		InsuranceStatus catalog.ApprovalStatus `json:"insurance_status,omitempty"`
		Items           []lineItemRequest      `json:"items"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CaseID == uuid.Nil || req.HospitalID == uuid.Nil || req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "case_id, hospital_id and patient_id are required")
	}

	payer := catalog.PayerContext{
		HasInsurance: req.InsurerID != nil,
		Status:       req.InsuranceStatus,
		InsurerID:    req.InsurerID,
	}
	items := make([]*ServiceLineItem, 0, len(req.Items))
	for _, ir := range req.Items {
		items = append(items, ir.toItem())
	}

	ref := CaseRef{HospitalID: req.HospitalID, PatientID: req.PatientID, DoctorID: req.DoctorID}
	bill, err := h.svc.CreateWalkIn(c.Request().Context(), req.CaseID, ref, payer, items)
	if errors.Is(err, catalog.ErrRateNotFound) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, bill)
}

func (h *Handler) replaceServices(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	var req struct {
		Items []lineItemRequest `json:"items"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	items := make([]*ServiceLineItem, 0, len(req.Items))
	for _, ir := range req.Items {
		items = append(items, ir.toItem())
	}

	bill, err := h.svc.ReplaceServices(c.Request().Context(), id, items)
	if errors.Is(err, ErrBillNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "bill not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) addExpense(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	var req lineItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	bill, err := h.svc.AddExpense(c.Request().Context(), id, req.toItem())
	if errors.Is(err, ErrBillNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "bill not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) applyDiscount(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	var req struct {
		Type      DiscountType `json:"type"`
		Value     float64      `json:"value"`
		Reason    string       `json:"reason,omitempty"`
		AppliedBy string       `json:"applied_by,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	bill, err := h.svc.ApplyDiscount(c.Request().Context(), id, Discount{
		Type:      req.Type,
		Value:     req.Value,
		Reason:    req.Reason,
		AppliedBy: req.AppliedBy,
	})
	if errors.Is(err, ErrBillNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "bill not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) addPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	var req struct {
		Amount     float64 `json:"amount"`
		Mode       string  `json:"mode"`
		Reference  string  `json:"reference,omitempty"`
		ReceivedBy string  `json:"received_by,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	bill, err := h.svc.AddPayment(c.Request().Context(), id, &Payment{
		Amount:     req.Amount,
		Mode:       req.Mode,
		Reference:  req.Reference,
		ReceivedBy: req.ReceivedBy,
	})
	if errors.Is(err, ErrBillNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "bill not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, bill)
}

// runDaily triggers the recurring charge cycle on demand. The same code path
// the scheduler uses, exposed for operations.
func (h *Handler) runDaily(c echo.Context) error {
	report, err := h.accumulator.Run(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "daily charge cycle failed")
	}
	return c.JSON(http.StatusOK, report)
}

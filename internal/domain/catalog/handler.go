package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medicore/hms/pkg/pagination"
)

// Handler exposes the reference data API: hospitals, departments, doctors,
// patients, insurers, rate cards, rooms and beds.
type Handler struct {
	hospitals   HospitalRepository
	departments DepartmentRepository
	doctors     DoctorRepository
	patients    PatientRepository
	insurers    InsurerRepository
	rateCards   RateCardRepository
	rooms       RoomRepository
}

func NewHandler(
	hospitals HospitalRepository,
	departments DepartmentRepository,
	doctors DoctorRepository,
	patients PatientRepository,
	insurers InsurerRepository,
	rateCards RateCardRepository,
	rooms RoomRepository,
) *Handler {
	return &Handler{
		hospitals:   hospitals,
		departments: departments,
		doctors:     doctors,
		patients:    patients,
		insurers:    insurers,
		rateCards:   rateCards,
		rooms:       rooms,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/hospitals", h.createHospital)
	g.GET("/hospitals", h.listHospitals)
	g.GET("/hospitals/:id", h.getHospital)

	g.POST("/departments", h.createDepartment)
	g.GET("/hospitals/:id/departments", h.listDepartments)

	g.POST("/doctors", h.createDoctor)
	g.GET("/hospitals/:id/doctors", h.listDoctors)

	g.POST("/patients", h.createPatient)
	g.GET("/patients/:id", h.getPatient)
	g.PUT("/patients/:id", h.updatePatient)
	g.GET("/hospitals/:id/patients", h.listPatients)

	g.POST("/insurers", h.createInsurer)
	g.GET("/insurers", h.listInsurers)

	g.POST("/rate-cards", h.createRateCard)
	g.PUT("/rate-cards/:id", h.updateRateCard)
	g.DELETE("/rate-cards/:id", h.deleteRateCard)
	g.GET("/hospitals/:id/rate-cards", h.listRateCards)

	g.POST("/rooms", h.createRoom)
	g.GET("/hospitals/:id/rooms", h.listRooms)
	g.POST("/beds", h.createBed)
	g.GET("/rooms/:id/beds", h.listBeds)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) createHospital(c echo.Context) error {
	var req Hospital
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if err := h.hospitals.Create(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create hospital")
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) getHospital(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	hosp, err := h.hospitals.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "hospital not found")
	}
	return c.JSON(http.StatusOK, hosp)
}

func (h *Handler) listHospitals(c echo.Context) error {
	p := pagination.FromContext(c)
	hospitals, total, err := h.hospitals.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list hospitals")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(hospitals, total, p.Limit, p.Offset))
}

func (h *Handler) createDepartment(c echo.Context) error {
	var req Department
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.HospitalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital_id and name are required")
	}
	if err := h.departments.Create(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create department")
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) listDepartments(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	departments, err := h.departments.ListByHospital(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list departments")
	}
	return c.JSON(http.StatusOK, departments)
}

func (h *Handler) createDoctor(c echo.Context) error {
	var req Doctor
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.HospitalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital_id and name are required")
	}
	if err := h.doctors.Create(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create doctor")
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) listDoctors(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	doctors, total, err := h.doctors.ListByHospital(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list doctors")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, p.Limit, p.Offset))
}

func (h *Handler) createPatient(c echo.Context) error {
	var req Patient
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.HospitalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital_id and name are required")
	}
	if err := h.patients.Create(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create patient")
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) getPatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.patients.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) updatePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req Patient
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.ID = id
	if err := h.patients.Update(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update patient")
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) listPatients(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	patients, total, err := h.patients.ListByHospital(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list patients")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, p.Limit, p.Offset))
}

func (h *Handler) createInsurer(c echo.Context) error {
	var req Insurer
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if err := h.insurers.Create(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create insurer")
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) listInsurers(c echo.Context) error {
	insurers, err := h.insurers.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list insurers")
	}
	return c.JSON(http.StatusOK, insurers)
}

func (h *Handler) createRateCard(c echo.Context) error {
	var req RateCard
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.HospitalID == uuid.Nil || req.Category == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital_id and category are required")
	}
	if req.Rate < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "rate must not be negative")
	}
	switch req.Scope {
	case ScopeHospital:
		req.InsurerID = nil
	case ScopeInsurer:
		if req.InsurerID == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "insurer_id is required for insurer scope")
		}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "scope must be hospital or insurer")
	}
	if err := h.rateCards.Create(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create rate card")
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) updateRateCard(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Rate float64 `json:"rate"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Rate < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "rate must not be negative")
	}
	rc, err := h.rateCards.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "rate card not found")
	}
	rc.Rate = req.Rate
	if err := h.rateCards.Update(c.Request().Context(), rc); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update rate card")
	}
	return c.JSON(http.StatusOK, rc)
}

func (h *Handler) deleteRateCard(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.rateCards.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete rate card")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listRateCards(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	cards, total, err := h.rateCards.ListByHospital(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list rate cards")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(cards, total, p.Limit, p.Offset))
}

func (h *Handler) createRoom(c echo.Context) error {
	var req Room
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.HospitalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital_id and name are required")
	}
	if err := h.rooms.CreateRoom(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create room")
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) listRooms(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	rooms, err := h.rooms.ListRooms(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list rooms")
	}
	return c.JSON(http.StatusOK, rooms)
}

func (h *Handler) createBed(c echo.Context) error {
	var req Bed
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RoomID == uuid.Nil || req.Number == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "room_id and number are required")
	}
	if req.DailyRate < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "daily_rate must not be negative")
	}
	if err := h.rooms.CreateBed(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create bed")
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) listBeds(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	beds, err := h.rooms.ListBeds(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list beds")
	}
	return c.JSON(http.StatusOK, beds)
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispatch-service/internal/api/dto"
	"github.com/spec-kit/dispatch-service/internal/auth"
	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/repository"
	"github.com/spec-kit/dispatch-service/internal/service"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

// TechniciansHandler manages technician endpoints.
type TechniciansHandler struct {
	service *service.TechnicianService
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(technicianService *service.TechnicianService) *TechniciansHandler {
	return &TechniciansHandler{service: technicianService}
}

// CreateTechnician POST /technicians.
func (h *TechniciansHandler) CreateTechnician(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	input := service.TechnicianCreateInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Region: req.Region,
	}
	technician, err := h.service.CreateTechnician(c.Context(), principal.TenantID(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": technicianResponse(technician)})
}

// ListTechnicians GET /technicians.
func (h *TechniciansHandler) ListTechnicians(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseTechnicianQuery(c)
	technicians, err := h.service.ListTechnicians(c.Context(), principal.TenantID(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianResponse, 0, len(technicians))
	for i := range technicians {
		items = append(items, technicianResponse(&technicians[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTechnician GET /technicians/:id.
func (h *TechniciansHandler) GetTechnician(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	technician, err := h.service.GetTechnician(c.Context(), principal.TenantID(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicianResponse(technician)})
}

// UpdateTechnician PATCH /technicians/:id.
func (h *TechniciansHandler) UpdateTechnician(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.TechnicianUpdateInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Region: req.Region,
		Active: req.Active,
	}
	technician, err := h.service.UpdateTechnician(c.Context(), principal.TenantID(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicianResponse(technician)})
}

// SetStatus PATCH /technicians/:id/status.
func (h *TechniciansHandler) SetStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetTechnicianStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Status.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}
	technician, err := h.service.SetStatus(c.Context(), principal.TenantID(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicianResponse(technician)})
}

// DeleteTechnician DELETE /technicians/:id.
func (h *TechniciansHandler) DeleteTechnician(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteTechnician(c.Context(), principal.TenantID(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseTechnicianQuery(c *fiber.Ctx) repository.TechnicianFilter {
	filter := repository.TechnicianFilter{}
	if v := c.Query("status"); v != "" {
		status := domain.TechnicianStatus(v)
		if status.Valid() {
			filter.Status = &status
		}
	}
	if v := c.Query("active"); v != "" {
		if active, err := strconv.ParseBool(v); err == nil {
			filter.Active = &active
		}
	}
	if v := c.Query("region"); v != "" {
		filter.Region = &v
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.Query("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > 100 {
		pageSize = defaultPageSize
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	return filter
}

func technicianResponse(technician *domain.Technician) dto.TechnicianResponse {
	return dto.TechnicianResponse{
		ID:          technician.ID,
		Name:        technician.Name,
		Phone:       technician.Phone,
		Email:       technician.Email,
		Region:      technician.Region,
		Status:      technician.Status,
		StatusLabel: technician.Status.Label(),
		Active:      technician.Active,
		CreatedAt:   technician.CreatedAt,
		UpdatedAt:   technician.UpdatedAt,
	}
}

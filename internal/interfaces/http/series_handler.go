package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luisvera/facturacion-pe/internal/application/billing"
	"github.com/luisvera/facturacion-pe/internal/application/dto"
)

// SeriesHandler maneja la configuración de series de numeración (protegido).
type SeriesHandler struct {
	uc *billing.SeriesUseCase
}

// NewSeriesHandler construye el handler.
func NewSeriesHandler(uc *billing.SeriesUseCase) *SeriesHandler {
	return &SeriesHandler{uc: uc}
}

// Create registra una serie nueva del emisor.
// POST /api/series
func (h *SeriesHandler) Create(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	var in dto.CreateSeriesRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	series, err := h.uc.Create(c.Context(), tenantID, in)
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(series)
}

// List lista las series del emisor.
// GET /api/series
func (h *SeriesHandler) List(c *fiber.Ctx) error {
	list, err := h.uc.List(c.Context(), GetTenantID(c))
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.JSON(list)
}

// Get devuelve una serie del emisor.
// GET /api/series/:serie
func (h *SeriesHandler) Get(c *fiber.Ctx) error {
	series, err := h.uc.Get(c.Context(), GetTenantID(c), c.Params("serie"))
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.JSON(series)
}

// Activate reactiva la serie para nuevas asignaciones.
// POST /api/series/:serie/activate
func (h *SeriesHandler) Activate(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

// Deactivate detiene nuevas asignaciones de la serie; el contador se conserva.
// POST /api/series/:serie/deactivate
func (h *SeriesHandler) Deactivate(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

func (h *SeriesHandler) setActive(c *fiber.Ctx, active bool) error {
	series, err := h.uc.SetActive(c.Context(), GetTenantID(c), c.Params("serie"), active)
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.JSON(series)
}

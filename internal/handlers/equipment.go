package handlers

import (
	"net/http"

	"github.com/equipdesk/backend/internal/services"
	"github.com/equipdesk/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type EquipmentHandler struct {
	equipmentService *services.EquipmentService
}

func NewEquipmentHandler(equipmentService *services.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{equipmentService: equipmentService}
}

// Create registers an equipment in a hospital
// POST /equipments/create
func (h *EquipmentHandler) Create(c *gin.Context) {
	var req services.CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequest("invalid request body"))
		return
	}

	equipment, err := h.equipmentService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "equipment registered successfully",
		"equipment": equipment,
	})
}

// ListByHospital returns the equipments of a hospital
// GET /equipments/:hospitalId
func (h *EquipmentHandler) ListByHospital(c *gin.Context) {
	hospitalID, ok := idParam(c, "hospitalId")
	if !ok {
		response.Error(c, response.NewBadRequest("invalid hospital id"))
		return
	}

	equipments, err := h.equipmentService.ListByHospital(c.Request.Context(), hospitalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, equipments)
}

package handlers

import (
	"net/http"

	"github.com/equipdesk/backend/internal/services"
	"github.com/equipdesk/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type HospitalHandler struct {
	hospitalService *services.HospitalService
}

func NewHospitalHandler(hospitalService *services.HospitalService) *HospitalHandler {
	return &HospitalHandler{hospitalService: hospitalService}
}

// List returns all hospitals ordered by name
// GET /hospitals
func (h *HospitalHandler) List(c *gin.Context) {
	hospitals, err := h.hospitalService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, hospitals)
}

// GetByID returns a hospital by ID
// GET /hospitals/:id
func (h *HospitalHandler) GetByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, response.NewBadRequest("invalid hospital id"))
		return
	}

	hospital, err := h.hospitalService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, hospital)
}

// Create creates a hospital
// POST /hospitals/create
func (h *HospitalHandler) Create(c *gin.Context) {
	var req services.CreateHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequest("invalid request body"))
		return
	}

	hospital, err := h.hospitalService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, hospital)
}

package handlers

import (
	"net/http"

	"github.com/equipdesk/backend/internal/middleware"
	"github.com/equipdesk/backend/internal/services"
	"github.com/equipdesk/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type ListHandler struct {
	listService *services.ListService
}

func NewListHandler(listService *services.ListService) *ListHandler {
	return &ListHandler{listService: listService}
}

// Create opens a service list for equipments of one hospital
// POST /lists/create
func (h *ListHandler) Create(c *gin.Context) {
	var req services.CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequest("invalid request body"))
		return
	}

	list, err := h.listService.Create(c.Request.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "list created successfully",
		"list_id": list.ID,
	})
}

// List returns all lists, newest first
// GET /lists
func (h *ListHandler) List(c *gin.Context) {
	lists, err := h.listService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lists)
}

// Detail returns the equipments of a list with their requested services
// GET /lists/:id
func (h *ListHandler) Detail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, response.NewBadRequest("invalid list id"))
		return
	}

	detail, err := h.listService.Detail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

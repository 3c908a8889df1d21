package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-hall-api/internal/models"
	"github.com/noah-isme/study-hall-api/internal/service"
	"github.com/noah-isme/study-hall-api/pkg/response"
)

type studyHallService interface {
	List(ctx context.Context) ([]models.StudyHall, error)
	Get(ctx context.Context, id string) (*models.StudyHall, error)
	Create(ctx context.Context, req service.StudyHallRequest) (*models.StudyHall, error)
	Update(ctx context.Context, id string, req service.StudyHallRequest) (*models.StudyHall, error)
	Delete(ctx context.Context, id string) error
}

// StudyHallHandler exposes study hall endpoints.
type StudyHallHandler struct {
	halls studyHallService
}

// NewStudyHallHandler constructs StudyHallHandler.
func NewStudyHallHandler(halls studyHallService) *StudyHallHandler {
	return &StudyHallHandler{halls: halls}
}

// List godoc
// @Summary List study halls
// @Tags StudyHalls
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /study-halls [get]
func (h *StudyHallHandler) List(c *gin.Context) {
	halls, err := h.halls.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, halls, nil)
}

// Get godoc
// @Summary Get study hall
// @Tags StudyHalls
// @Produce json
// @Param id path string true "Hall ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /study-halls/{id} [get]
func (h *StudyHallHandler) Get(c *gin.Context) {
	hall, err := h.halls.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hall, nil)
}

// Create godoc
// @Summary Create study hall
// @Tags StudyHalls
// @Accept json
// @Produce json
// @Param payload body service.StudyHallRequest true "Hall payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /study-halls [post]
func (h *StudyHallHandler) Create(c *gin.Context) {
	var req service.StudyHallRequest
	if !bindJSON(c, &req, "invalid study hall payload") {
		return
	}
	hall, err := h.halls.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hall)
}

// Update godoc
// @Summary Update study hall
// @Tags StudyHalls
// @Accept json
// @Produce json
// @Param id path string true "Hall ID"
// @Param payload body service.StudyHallRequest true "Hall payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /study-halls/{id} [put]
func (h *StudyHallHandler) Update(c *gin.Context) {
	var req service.StudyHallRequest
	if !bindJSON(c, &req, "invalid study hall payload") {
		return
	}
	hall, err := h.halls.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hall, nil)
}

// Delete godoc
// @Summary Delete study hall
// @Description Fails with 409 while any student references the hall name.
// @Tags StudyHalls
// @Param id path string true "Hall ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /study-halls/{id} [delete]
func (h *StudyHallHandler) Delete(c *gin.Context) {
	if err := h.halls.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

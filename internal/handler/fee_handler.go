package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-hall-api/internal/models"
	"github.com/noah-isme/study-hall-api/pkg/response"
)

type accrualRunner interface {
	RunMonthlyAccrual(ctx context.Context, referenceDate models.Date, trigger string) (*models.AccrualRun, error)
	LastRun(ctx context.Context) (*models.AccrualRun, error)
}

type upcomingFeeLister interface {
	UpcomingFees(ctx context.Context) ([]models.UpcomingFee, error)
}

// RunAccrualRequest optionally pins the accrual reference date.
type RunAccrualRequest struct {
	ReferenceDate *models.Date `json:"referenceDate"`
}

// FeeHandler exposes billing endpoints.
type FeeHandler struct {
	accrual  accrualRunner
	upcoming upcomingFeeLister
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(accrual accrualRunner, upcoming upcomingFeeLister) *FeeHandler {
	return &FeeHandler{accrual: accrual, upcoming: upcoming}
}

// RunAccrual godoc
// @Summary Run monthly fee accrual
// @Description Charges one monthly cycle to every eligible active student. Safe to repeat for the same date.
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body RunAccrualRequest false "Reference date (defaults to today)"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /fees/accrual [post]
func (h *FeeHandler) RunAccrual(c *gin.Context) {
	var req RunAccrualRequest
	if !bindOptionalJSON(c, &req, "invalid accrual payload") {
		return
	}
	var ref models.Date
	if req.ReferenceDate != nil {
		ref = *req.ReferenceDate
	}
	run, err := h.accrual.RunMonthlyAccrual(c.Request.Context(), ref, models.AccrualTriggerManual)
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if claims := claimsFromContext(c); claims != nil {
		meta = map[string]interface{}{"triggeredBy": claims.Username}
	}
	response.JSON(c, http.StatusOK, run, nil, meta)
}

// LastRun godoc
// @Summary Last accrual run
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/accrual/last-run [get]
func (h *FeeHandler) LastRun(c *gin.Context) {
	run, err := h.accrual.LastRun(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Upcoming godoc
// @Summary Upcoming fees
// @Description Active fee-paying students ordered by the date of their next charge.
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/upcoming [get]
func (h *FeeHandler) Upcoming(c *gin.Context) {
	upcoming, err := h.upcoming.UpcomingFees(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, upcoming, nil)
}

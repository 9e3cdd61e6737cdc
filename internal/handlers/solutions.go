package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/intent/dashboard/internal/dashboard"
	"github.com/intent/dashboard/internal/middleware"
	"go.uber.org/zap"
)

// SolutionHandler handles the candidate solution list and the operation
// preferences
type SolutionHandler struct {
	svc    *dashboard.Service
	logger *zap.Logger
}

// NewSolutionHandler creates a new solution handler
func NewSolutionHandler(svc *dashboard.Service, logger *zap.Logger) *SolutionHandler {
	return &SolutionHandler{svc: svc, logger: logger}
}

// ExpressionRequest carries a solution expression
type ExpressionRequest struct {
	Expression string `json:"expression" binding:"required"`
}

// PreferenceRequest marks an operation as desired or undesired
type PreferenceRequest struct {
	Desired *bool `json:"desired" binding:"required"`
}

// List returns the solutions with their validation summaries
// @Summary List solutions
// @Tags solutions
// @Produce json
// @Success 200 {object} dashboard.Solutions
// @Router /solutions [get]
func (h *SolutionHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Solutions())
}

// Add appends a user-authored solution
// @Summary Add a solution
// @Tags solutions
// @Accept json
// @Produce json
// @Param body body ExpressionRequest true "expression"
// @Success 201 {object} map[string]int
// @Failure 422 {object} middleware.APIError
// @Router /solutions [post]
func (h *SolutionHandler) Add(c *gin.Context) {
	var req ExpressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	idx, err := h.svc.AddSolution(req.Expression)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"index": idx})
}

// Edit replaces a user-authored solution
// @Summary Edit a solution
// @Tags solutions
// @Accept json
// @Param index path int true "solution index"
// @Param body body ExpressionRequest true "expression"
// @Success 204
// @Failure 409 {object} middleware.APIError
// @Router /solutions/{index} [put]
func (h *SolutionHandler) Edit(c *gin.Context) {
	idx, ok := intParam(c, "index")
	if !ok {
		return
	}
	var req ExpressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.EditSolution(idx, req.Expression); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Remove deletes a solution
// @Summary Remove a solution
// @Tags solutions
// @Param index path int true "solution index"
// @Success 204
// @Router /solutions/{index} [delete]
func (h *SolutionHandler) Remove(c *gin.Context) {
	idx, ok := intParam(c, "index")
	if !ok {
		return
	}
	if err := h.svc.RemoveSolution(idx); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Clear deletes every solution
// @Summary Clear solutions
// @Tags solutions
// @Success 204
// @Router /solutions [delete]
func (h *SolutionHandler) Clear(c *gin.Context) {
	h.svc.ClearSolutions()
	c.Status(http.StatusNoContent)
}

// Select changes the selected solution
// @Summary Select a solution
// @Tags solutions
// @Accept json
// @Param body body IndexRequest true "selection"
// @Success 204
// @Router /solutions/selected [put]
func (h *SolutionHandler) Select(c *gin.Context) {
	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.SelectSolution(*req.Index); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Preferences returns the operation preferences
// @Summary List operation preferences
// @Tags preferences
// @Produce json
// @Success 200 {object} map[string]preference.Preference
// @Router /preferences [get]
func (h *SolutionHandler) Preferences(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Preferences())
}

// SetPreference marks an operation as desired or undesired
// @Summary Set an operation preference
// @Tags preferences
// @Accept json
// @Param op path string true "operation name"
// @Param body body PreferenceRequest true "preference"
// @Success 204
// @Router /preferences/{op} [put]
func (h *SolutionHandler) SetPreference(c *gin.Context) {
	op := c.Param("op")
	if op == "" {
		middleware.BadRequest(c, "operation name is required")
		return
	}
	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	h.svc.SetPreference(op, *req.Desired)
	c.Status(http.StatusNoContent)
}

// RemovePreference forgets an operation preference
// @Summary Remove an operation preference
// @Tags preferences
// @Param op path string true "operation name"
// @Success 204
// @Router /preferences/{op} [delete]
func (h *SolutionHandler) RemovePreference(c *gin.Context) {
	if !h.svc.RemovePreference(c.Param("op")) {
		middleware.NotFound(c, "preference not found")
		return
	}
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/intent/dashboard/internal/dashboard"
	"github.com/intent/dashboard/internal/middleware"
	"github.com/intent/dashboard/internal/testcase"
	"go.uber.org/zap"
)

// TestCaseHandler handles the test case panel
type TestCaseHandler struct {
	svc    *dashboard.Service
	logger *zap.Logger
}

// NewTestCaseHandler creates a new test case handler
func NewTestCaseHandler(svc *dashboard.Service, logger *zap.Logger) *TestCaseHandler {
	return &TestCaseHandler{svc: svc, logger: logger}
}

// TextRequest replaces a tensor literal
type TextRequest struct {
	Text string `json:"text"`
}

// CellRequest edits one cell of a tensor
type CellRequest struct {
	Path  []int  `json:"path" binding:"required,min=1,dive,min=0"`
	Value string `json:"value"`
}

// List returns every test case
// @Summary List test cases
// @Tags testcases
// @Produce json
// @Success 200 {object} dashboard.TestCases
// @Router /testcases [get]
func (h *TestCaseHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.TestCases())
}

// AddPair duplicates the selected test case
// @Summary Add a test case
// @Tags testcases
// @Produce json
// @Success 201 {object} map[string]int
// @Router /testcases [post]
func (h *TestCaseHandler) AddPair(c *gin.Context) {
	idx, err := h.svc.AddPair()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"index": idx})
}

// RemovePair deletes a test case
// @Summary Remove a test case
// @Tags testcases
// @Param pair path int true "test case index"
// @Success 204
// @Failure 409 {object} middleware.APIError
// @Router /testcases/{pair} [delete]
func (h *TestCaseHandler) RemovePair(c *gin.Context) {
	pair, ok := intParam(c, "pair")
	if !ok {
		return
	}
	if err := h.svc.RemovePair(pair); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Select changes the selected test case
// @Summary Select a test case
// @Tags testcases
// @Accept json
// @Param body body IndexRequest true "selection"
// @Success 204
// @Router /testcases/selected [put]
func (h *TestCaseHandler) Select(c *gin.Context) {
	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.SelectPair(*req.Index); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddInput appends a blank input tensor
// @Summary Add an input tensor
// @Tags testcases
// @Param pair path int true "test case index"
// @Success 201
// @Router /testcases/{pair}/inputs [post]
func (h *TestCaseHandler) AddInput(c *gin.Context) {
	pair, ok := intParam(c, "pair")
	if !ok {
		return
	}
	if !h.svc.AddInputTensor(pair) {
		middleware.NotFound(c, testcase.ErrPairNotFound.Error())
		return
	}
	c.Status(http.StatusCreated)
}

// RemoveInput removes an input tensor unless it is the last one
// @Summary Remove an input tensor
// @Tags testcases
// @Param pair path int true "test case index"
// @Param tensor path int true "input index"
// @Success 204
// @Router /testcases/{pair}/inputs/{tensor} [delete]
func (h *TestCaseHandler) RemoveInput(c *gin.Context) {
	pair, ok := intParam(c, "pair")
	if !ok {
		return
	}
	idx, ok := intParam(c, "tensor")
	if !ok {
		return
	}
	if !h.svc.RemoveInputTensor(pair, idx) {
		middleware.Conflict(c, "input tensor cannot be removed")
		return
	}
	c.Status(http.StatusNoContent)
}

// SetInput replaces an input tensor literal
// @Summary Set an input tensor
// @Tags testcases
// @Accept json
// @Produce json
// @Param pair path int true "test case index"
// @Param tensor path int true "input index"
// @Param body body TextRequest true "literal"
// @Success 200 {object} tensor.Tensor
// @Router /testcases/{pair}/inputs/{tensor} [put]
func (h *TestCaseHandler) SetInput(c *gin.Context) {
	pair, ok := intParam(c, "pair")
	if !ok {
		return
	}
	idx, ok := intParam(c, "tensor")
	if !ok {
		return
	}
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.SetInputText(pair, idx, req.Text)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateInputCell edits one cell of an input tensor
// @Summary Edit an input tensor cell
// @Tags testcases
// @Accept json
// @Produce json
// @Param pair path int true "test case index"
// @Param tensor path int true "input index"
// @Param body body CellRequest true "cell"
// @Success 200 {object} tensor.Tensor
// @Router /testcases/{pair}/inputs/{tensor}/cell [patch]
func (h *TestCaseHandler) UpdateInputCell(c *gin.Context) {
	pair, ok := intParam(c, "pair")
	if !ok {
		return
	}
	idx, ok := intParam(c, "tensor")
	if !ok {
		return
	}
	var req CellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.UpdateInputCell(pair, idx, req.Path, req.Value)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// SetOutput replaces the expected output literal
// @Summary Set the expected output
// @Tags testcases
// @Accept json
// @Produce json
// @Param pair path int true "test case index"
// @Param body body TextRequest true "literal"
// @Success 200 {object} tensor.Tensor
// @Router /testcases/{pair}/output [put]
func (h *TestCaseHandler) SetOutput(c *gin.Context) {
	pair, ok := intParam(c, "pair")
	if !ok {
		return
	}
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.SetOutputText(pair, req.Text)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateOutputCell edits one cell of the expected output
// @Summary Edit an expected output cell
// @Tags testcases
// @Accept json
// @Produce json
// @Param pair path int true "test case index"
// @Param body body CellRequest true "cell"
// @Success 200 {object} tensor.Tensor
// @Router /testcases/{pair}/output/cell [patch]
func (h *TestCaseHandler) UpdateOutputCell(c *gin.Context) {
	pair, ok := intParam(c, "pair")
	if !ok {
		return
	}
	var req CellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.UpdateOutputCell(pair, req.Path, req.Value)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/intent/dashboard/internal/dashboard"
	"github.com/intent/dashboard/internal/middleware"
	"github.com/intent/dashboard/internal/session"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SynthesisHandler handles the synthesis session, validation results and
// provenance lookups
type SynthesisHandler struct {
	svc    *dashboard.Service
	logger *zap.Logger
}

// NewSynthesisHandler creates a new synthesis handler
func NewSynthesisHandler(svc *dashboard.Service, logger *zap.Logger) *SynthesisHandler {
	return &SynthesisHandler{svc: svc, logger: logger}
}

// AbortResponse reports whether a running session was stopped
type AbortResponse struct {
	Aborted   bool             `json:"aborted"`
	Synthesis session.Snapshot `json:"synthesis"`
}

// DraftRequest carries the expression being typed
type DraftRequest struct {
	Expression string `json:"expression"`
}

// TraceRequest selects a cell of a dataflow graph
type TraceRequest struct {
	Example  *int   `json:"example" binding:"required,min=0"`
	Solution *int   `json:"solution" binding:"required,min=0"`
	Cell     string `json:"cell" binding:"required"`
}

// Submit starts a synthesis session
// @Summary Start synthesis
// @Tags synthesis
// @Accept json
// @Produce json
// @Param body body session.Request true "synthesis request"
// @Success 202 {object} session.Snapshot
// @Failure 400 {object} middleware.APIError
// @Failure 422 {object} middleware.APIError
// @Failure 503 {object} middleware.APIError
// @Router /synthesis [post]
func (h *SynthesisHandler) Submit(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "SubmitSynthesis")
	defer span.End()

	var req session.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	snap, err := h.svc.Submit(ctx, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	span.SetAttributes(attribute.String("session.id", string(snap.SessionID)))
	c.JSON(http.StatusAccepted, snap)
}

// Abort stops the running session
// @Summary Abort synthesis
// @Tags synthesis
// @Produce json
// @Success 200 {object} AbortResponse
// @Router /synthesis/abort [post]
func (h *SynthesisHandler) Abort(c *gin.Context) {
	aborted := h.svc.Abort(c.Request.Context())
	c.JSON(http.StatusOK, AbortResponse{Aborted: aborted, Synthesis: h.svc.Synthesis()})
}

// Status returns the session state
// @Summary Synthesis status
// @Tags synthesis
// @Produce json
// @Success 200 {object} session.Snapshot
// @Router /synthesis [get]
func (h *SynthesisHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Synthesis())
}

// Validations returns the latest batch validation results
// @Summary Validation results
// @Tags validation
// @Produce json
// @Success 200 {object} validation.State
// @Router /validations [get]
func (h *SynthesisHandler) Validations(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Validations())
}

// ValidateDraft schedules validation of the expression being typed
// @Summary Validate a draft expression
// @Tags validation
// @Accept json
// @Produce json
// @Param body body DraftRequest true "draft"
// @Success 202 {object} validation.Draft
// @Router /validations/draft [post]
func (h *SynthesisHandler) ValidateDraft(c *gin.Context) {
	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, h.svc.ValidateDraft(req.Expression))
}

// Draft returns the draft validation state
// @Summary Draft validation state
// @Tags validation
// @Produce json
// @Success 200 {object} validation.Draft
// @Router /validations/draft [get]
func (h *SynthesisHandler) Draft(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Draft())
}

// Trace returns the provenance edges of a graph cell
// @Summary Trace cell provenance
// @Tags provenance
// @Accept json
// @Produce json
// @Param body body TraceRequest true "cell"
// @Success 200 {object} dashboard.TraceResult
// @Failure 404 {object} middleware.APIError
// @Router /provenance/trace [post]
func (h *SynthesisHandler) Trace(c *gin.Context) {
	_, span := tracer.Start(c.Request.Context(), "TraceProvenance")
	defer span.End()

	var req TraceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.Trace(*req.Example, *req.Solution, req.Cell)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	span.SetAttributes(attribute.Int("provenance.edges", len(res.Edges)))
	c.JSON(http.StatusOK, res)
}

// Explain describes one evaluation of a solution
// @Summary Explain an evaluation
// @Tags provenance
// @Produce json
// @Param example query int true "test case index"
// @Param solution query int true "solution index"
// @Success 200 {object} dashboard.Explanation
// @Failure 404 {object} middleware.APIError
// @Router /provenance/explain [get]
func (h *SynthesisHandler) Explain(c *gin.Context) {
	example, err1 := strconv.Atoi(c.Query("example"))
	sol, err2 := strconv.Atoi(c.Query("solution"))
	if err := errors.Join(err1, err2); err != nil || example < 0 || sol < 0 {
		middleware.BadRequest(c, "example and solution must be non-negative integers")
		return
	}
	ex, err := h.svc.Explain(example, sol)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ex)
}

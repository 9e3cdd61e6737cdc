package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/intent/dashboard/internal/backend"
	"github.com/intent/dashboard/internal/dashboard"
	"github.com/intent/dashboard/internal/middleware"
	"github.com/intent/dashboard/internal/provenance"
	"github.com/intent/dashboard/internal/session"
	"github.com/intent/dashboard/internal/solution"
	"github.com/intent/dashboard/internal/tensor"
	"github.com/intent/dashboard/internal/testcase"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/intent/dashboard/internal/handlers")

// backendRetryMs is the retry hint sent when the backend cannot be reached.
const backendRetryMs = 5000

// respondError maps a service error onto the API error envelope.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, testcase.ErrInvalidTestCases):
		middleware.InvalidTestCases(c, session.MsgInvalidTestCases)
	case errors.Is(err, testcase.ErrPairNotFound),
		errors.Is(err, testcase.ErrTensorNotFound),
		errors.Is(err, solution.ErrNotFound),
		errors.Is(err, dashboard.ErrNoEvaluation),
		errors.Is(err, dashboard.ErrNoGraph):
		middleware.NotFound(c, err.Error())
	case errors.Is(err, testcase.ErrLastPair),
		errors.Is(err, solution.ErrNotEditable):
		middleware.Conflict(c, err.Error())
	case errors.Is(err, session.ErrEmptyDescription):
		middleware.BadRequest(c, session.MsgEmptyDescription)
	case errors.Is(err, session.ErrInvalidConstants):
		middleware.RespondErrorWithDetails(c, http.StatusBadRequest, middleware.ErrCodeBadRequest, session.MsgInvalidConstants, err.Error())
	case errors.Is(err, solution.ErrEmptyExpression),
		errors.Is(err, tensor.ErrInvalidPath),
		errors.Is(err, tensor.ErrInvalidTensor),
		errors.Is(err, provenance.ErrBadCellID),
		errors.Is(err, provenance.ErrBadProvenance):
		middleware.BadRequest(c, err.Error())
	case errors.Is(err, backend.ErrCircuitOpen), session.IsTransport(err):
		logger.Warn("synthesis backend unavailable", zap.Error(err))
		middleware.BackendUnavailable(c, backendRetryMs)
	default:
		logger.Error("request failed", zap.Error(err))
		middleware.InternalError(c, "internal server error")
	}
}

// intParam parses a non-negative integer path parameter. It responds with
// 400 and returns false when the parameter is malformed.
func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 0 {
		middleware.BadRequest(c, name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

// IndexRequest selects an item by position.
type IndexRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/receipts-reconciler/internal/async"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ledger"
	"github.com/joseph-ayodele/receipts-reconciler/internal/store"
)

type errorBody struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (s *Server) fail(c *gin.Context, err error) {
	status, body := describe(err)
	if status >= http.StatusInternalServerError {
		common.LoggerFromContext(c.Request.Context(), s.logger).Error("http.request.failed",
			"path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}

func describe(err error) (int, errorBody) {
	body := errorBody{Code: common.Kind(err), Title: common.Title(err), Message: err.Error()}

	switch {
	case errors.Is(err, ledger.ErrDuplicateID), errors.Is(err, store.ErrDuplicateID):
		body.Code, body.Title = "CONFLICT", "Conflict"
		return http.StatusConflict, body
	case errors.Is(err, entity.ErrInvalidTransaction):
		body.Code, body.Title = common.CodeValidation, "Invalid Request"
		return http.StatusBadRequest, body
	case errors.Is(err, async.ErrQueueClosed):
		body.Code, body.Title = "UNAVAILABLE", "Service Unavailable"
		return http.StatusServiceUnavailable, body
	}

	status := httpStatus(common.Code(err))
	if body.Code == "" {
		body.Code = "INTERNAL_ERROR"
	}
	return status, body
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unauthenticated, codes.Unavailable:
		return http.StatusBadGateway
	case codes.Canceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func invalid(message string, cause error) error {
	if cause == nil {
		return common.NewAppError(common.CodeValidation, message, common.ErrInvalidInput)
	}
	return common.NewAppError(common.CodeValidation, message, fmt.Errorf("%w: %w", common.ErrInvalidInput, cause))
}

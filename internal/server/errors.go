package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
	syncservice "github.com/ferkcore/topadel/internal/sync/service"
	"github.com/ferkcore/topadel/internal/topten"
)

type errorResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// ErrorHandlingMiddleware turns errors attached to the context into the
// JSON error shape. Handlers that already wrote a response are left
// alone.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	var (
		mappingErr    *syncservice.MappingError
		rejectedErr   *topten.SessionRejectedError
		httpErr       *topten.HTTPError
		transportErr  *topten.TransportError
		unexpectedErr *topten.UnexpectedResponseError
		configErr     *topten.ConfigurationError
	)

	switch {
	case errors.Is(err, orderdomain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Reason: "order_not_found"}
	case errors.Is(err, orderdomain.ErrKeyMismatch):
		return http.StatusForbidden, errorResponse{Reason: "forbidden"}
	case errors.As(err, &mappingErr):
		return http.StatusUnprocessableEntity, errorResponse{Reason: "unmapped_products", Detail: mappingErr.Error()}
	case errors.As(err, &rejectedErr):
		return http.StatusBadGateway, errorResponse{Reason: "session_rejected", Detail: rejectedErr.Message}
	case errors.As(err, &configErr):
		return http.StatusServiceUnavailable, errorResponse{Reason: "not_configured", Detail: configErr.Error()}
	case errors.As(err, &httpErr), errors.As(err, &transportErr), errors.As(err, &unexpectedErr):
		return http.StatusBadGateway, errorResponse{Reason: "remote_error", Detail: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Reason: "internal_error"}
	}
}

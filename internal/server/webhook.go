package server

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
	webhookdomain "github.com/ferkcore/topadel/internal/webhook/domain"
)

// maxWebhookBody caps the raw delivery size before signature
// verification touches it.
const maxWebhookBody = 1 << 20

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhook", s.handleWebhook)
	s.engine.GET("/return", s.returnRateLimit(), s.handleReturn)
}

func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Reason: "empty_body"})
		return
	}

	result, err := s.webhookSvc.Process(
		c.Request.Context(),
		body,
		c.GetHeader("X-Signature"),
		c.GetHeader("X-Timestamp"),
	)
	if err != nil {
		var reject *webhookdomain.RejectError
		if errors.As(err, &reject) {
			c.JSON(reject.Code, errorResponse{Reason: reject.Reason})
			return
		}
		s.log.Error("webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Reason: "processing_error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleReturn(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Query("order_id"), 10, 64)
	key := c.Query("key")
	if err != nil || orderID <= 0 || key == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Reason: "missing_params"})
		return
	}

	order, err := s.webhookSvc.ResolveReturn(c.Request.Context(), orderID, key)
	if err != nil {
		switch {
		case errors.Is(err, orderdomain.ErrNotFound):
			c.JSON(http.StatusNotFound, errorResponse{Reason: "order_not_found"})
		case errors.Is(err, orderdomain.ErrKeyMismatch):
			c.JSON(http.StatusForbidden, errorResponse{Reason: "forbidden"})
		default:
			AbortWithError(c, err)
		}
		return
	}

	if target := s.cfg.Checkout.ThankYouURL; target != "" {
		query := url.Values{}
		query.Set("order_id", strconv.FormatInt(order.ID, 10))
		query.Set("status", string(order.Status))
		c.Redirect(http.StatusFound, target+"?"+query.Encode())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"order_id": order.ID,
		"status":   order.Status,
	})
}

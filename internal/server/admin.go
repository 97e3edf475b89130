package server

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	syncservice "github.com/ferkcore/topadel/internal/sync/service"
	"github.com/ferkcore/topadel/internal/topten"
)

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.adminAuth())
	admin.GET("/topten/health", s.handleRemoteHealth)
	admin.GET("/topten/payment/:id", s.handlePaymentLookup)
	admin.POST("/topten/test-user", s.handleTestUser)
	admin.POST("/topten/test-cart", s.handleTestCart)
	admin.POST("/catalog/remap", s.handleCatalogRemap)
	admin.GET("/webhook/events", s.handleWebhookEvents)
	admin.POST("/orders/:id/recreate-payment", s.handleRecreatePayment)
}

// adminAuth gates the admin surface with a static token. An empty
// configured token closes the surface entirely.
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.cfg.AdminToken
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Reason: "admin_disabled"})
			return
		}
		presented := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(presented)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Reason: "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleRemoteHealth(c *gin.Context) {
	if err := s.client.Health(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"remote": "ok"})
}

// handlePaymentLookup proxies the remote payment inquiry, returning the
// raw remote document for troubleshooting a session.
func (s *Server) handlePaymentLookup(c *gin.Context) {
	raw, err := s.client.GetPayment(c.Request.Context(), c.Param("id"), topten.Overrides{})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

type testUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// handleTestUser registers a throwaway remote user to verify the
// configured credentials end to end.
func (s *Server) handleTestUser(c *gin.Context) {
	var req testUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Reason: "invalid_request", Detail: err.Error()})
		return
	}
	if req.FirstName == "" {
		req.FirstName = "Test"
	}
	if req.LastName == "" {
		req.LastName = "Connection"
	}

	userID, err := s.client.RegisterUser(c.Request.Context(), topten.RegisterUserRequest{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   syncservice.RandomPassword(),
		EntityID:   s.client.Resolver().EntityID(),
		ExternalID: req.Email,
	}, topten.Overrides{})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

type testCartRequest struct {
	UserID    int64 `json:"user_id" binding:"required,gt=0"`
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity"`
}

func (s *Server) handleTestCart(c *gin.Context) {
	var req testCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Reason: "invalid_request", Detail: err.Error()})
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	cartID, err := s.client.CreateCart(c.Request.Context(), topten.CreateCartRequest{
		UserID: req.UserID,
		CartProducts: []topten.CartProduct{
			{ProductID: req.ProductID, Quantity: req.Quantity},
		},
	}, topten.Overrides{})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart_id": cartID})
}

func (s *Server) handleCatalogRemap(c *gin.Context) {
	report, err := s.catalogSvc.Remap(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleWebhookEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := s.webhookSvc.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) handleRecreatePayment(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Reason: "invalid_request"})
		return
	}

	session, err := s.syncSvc.RecreatePayment(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":          session.Token,
		"redirect_url":   session.RedirectURL,
		"expiration_utc": session.ExpirationUTC,
		"acquirer_id":    session.AcquirerID,
	})
}

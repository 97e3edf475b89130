package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
)

func (s *Server) registerOrderRoutes() {
	api := s.engine.Group("/api")
	api.POST("/orders", s.handleCreateOrder)
	api.GET("/orders/:id", s.handleGetOrder)
	api.POST("/orders/:id/payment-session", s.handleCreatePaymentSession)
}

type createOrderLine struct {
	ProductID       int64   `json:"product_id" binding:"required"`
	SKU             string  `json:"sku"`
	Name            string  `json:"name"`
	Quantity        int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price"`
	Total           float64 `json:"total"`
	RemoteProductID int64   `json:"remote_product_id"`
	ChosenTermIDs   string  `json:"chosen_term_ids"`
	ChosenTermsText string  `json:"chosen_terms_text"`
}

type createOrderRequest struct {
	ID             int64             `json:"id" binding:"required,gt=0"`
	OrderKey       string            `json:"order_key" binding:"required"`
	Currency       string            `json:"currency" binding:"required"`
	Total          float64           `json:"total"`
	DiscountTotal  float64           `json:"discount_total"`
	ShippingTotal  float64           `json:"shipping_total"`
	TaxTotal       float64           `json:"tax_total"`
	CustomerID     int64             `json:"customer_id"`
	Email          string            `json:"email" binding:"required,email"`
	FirstName      string            `json:"first_name"`
	LastName       string            `json:"last_name"`
	Phone          string            `json:"phone"`
	PhonePrefix    string            `json:"phone_prefix"`
	DocumentType   string            `json:"document_type"`
	DocumentNumber string            `json:"document_number"`
	BirthDate      string            `json:"birth_date"`
	Address        string            `json:"address"`
	CustomerIP     string            `json:"customer_ip"`
	Lines          []createOrderLine `json:"lines" binding:"required,min=1,dive"`
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Reason: "invalid_request", Detail: err.Error()})
		return
	}

	order := &orderdomain.Order{
		ID:             req.ID,
		OrderKey:       req.OrderKey,
		Status:         orderdomain.StatusPending,
		Currency:       req.Currency,
		Total:          req.Total,
		DiscountTotal:  req.DiscountTotal,
		ShippingTotal:  req.ShippingTotal,
		TaxTotal:       req.TaxTotal,
		CustomerID:     req.CustomerID,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		PhonePrefix:    req.PhonePrefix,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		BirthDate:      req.BirthDate,
		Address:        req.Address,
		CustomerIP:     req.CustomerIP,
	}
	for _, line := range req.Lines {
		order.Lines = append(order.Lines, orderdomain.Line{
			ID:              s.genID.Generate(),
			OrderID:         req.ID,
			ProductID:       line.ProductID,
			SKU:             line.SKU,
			Name:            line.Name,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			Total:           line.Total,
			RemoteProductID: line.RemoteProductID,
			ChosenTermIDs:   line.ChosenTermIDs,
			ChosenTermsText: line.ChosenTermsText,
		})
	}

	if err := s.orders.Create(c.Request.Context(), s.db, order); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) handleGetOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Reason: "invalid_request"})
		return
	}

	order, err := s.orders.Get(c.Request.Context(), s.db, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleCreatePaymentSession(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Reason: "invalid_request"})
		return
	}

	order, err := s.orders.Get(c.Request.Context(), s.db, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	session, err := s.syncSvc.CreatePaymentSession(c.Request.Context(), order)
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

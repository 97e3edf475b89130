package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	identitydomain "github.com/ferkcore/topadel/internal/identity/domain"
	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
	"github.com/ferkcore/topadel/internal/topten"
)

// CreatePaymentSession runs the full remote checkout for an order: it
// ensures a remote user and cart exist, then opens a payment session and
// persists the returned identifiers on the order.
func (s *Service) CreatePaymentSession(ctx context.Context, order *orderdomain.Order) (*topten.PaymentSession, error) {
	remoteUserID := order.Payment.RemoteCustomerID
	if remoteUserID <= 0 {
		id, err := s.SyncCustomer(ctx, order)
		if err != nil {
			return nil, err
		}
		remoteUserID = id
	}

	lines, err := s.resolveLines(ctx, order)
	if err != nil {
		var mappingErr *MappingError
		if errors.As(err, &mappingErr) {
			s.recordMissingProducts(ctx, order, mappingErr)
		}
		return nil, err
	}

	cartID, err := s.SyncCart(ctx, order, remoteUserID, lines)
	if err != nil {
		return nil, err
	}

	orderJSON, err := s.buildOrderJSON(order, remoteUserID, lines)
	if err != nil {
		return nil, err
	}

	req := topten.CreatePaymentRequest{
		CartID:           cartID,
		PaymentConceptID: s.paymentConceptID(),
		PaymentMethodID:  s.paymentMethodID(),
		OrderJSON:        orderJSON,
		RedirectURL:      s.returnURL(order),
		NotificationURL:  s.cfg.Checkout.CallbackURL,
	}
	session, err := s.client.CreatePayment(ctx, req, topten.Overrides{})
	if err != nil {
		return nil, err
	}

	meta := order.Payment
	meta.OrderID = order.ID
	meta.RemoteCustomerID = remoteUserID
	meta.RemoteCartID = cartID
	meta.PaymentToken = session.Token
	meta.PaymentRedirectURL = session.RedirectURL
	meta.PaymentExpirationUTC = session.ExpirationUTC
	meta.PaymentAcquirerID = session.AcquirerID
	meta.PaymentStatus = "pending"
	meta.MissingProducts = ""
	if err := s.orders.SavePaymentMeta(ctx, s.db, &meta); err != nil {
		return nil, err
	}
	order.Payment = meta

	note := fmt.Sprintf("Payment session opened (token: %s)", identitydomain.MaskIdentifier(session.Token))
	if err := s.orders.AddNote(ctx, s.db, &orderdomain.Note{
		ID:      s.genID.Generate(),
		OrderID: order.ID,
		Note:    note,
	}); err != nil {
		return nil, err
	}

	s.log.Info("payment session created",
		zap.Int64("order_id", order.ID),
		zap.Int64("remote_cart_id", cartID),
		zap.String("token", identitydomain.MaskIdentifier(session.Token)),
	)
	return session, nil
}

// RecreatePayment discards the current session identifiers and opens a
// fresh one, reusing the remote user and cart already linked to the
// order. Used when a session expired before the shopper paid.
func (s *Service) RecreatePayment(ctx context.Context, orderID int64) (*topten.PaymentSession, error) {
	order, err := s.orders.Get(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	order.Payment.PaymentToken = ""
	order.Payment.PaymentRedirectURL = ""
	order.Payment.PaymentExpirationUTC = 0
	order.Payment.PaymentAcquirerID = 0
	return s.CreatePaymentSession(ctx, order)
}

func (s *Service) returnURL(order *orderdomain.Order) string {
	base := s.returnBaseURL()
	if base == "" {
		return ""
	}
	query := url.Values{}
	query.Set("order_id", strconv.FormatInt(order.ID, 10))
	query.Set("key", order.OrderKey)
	return base + "/return?" + query.Encode()
}

func (s *Service) recordMissingProducts(ctx context.Context, order *orderdomain.Order, mappingErr *MappingError) {
	meta := order.Payment
	meta.OrderID = order.ID
	if encoded, err := json.Marshal(mappingErr.Missing); err == nil {
		meta.MissingProducts = string(encoded)
	}
	if err := s.orders.SavePaymentMeta(ctx, s.db, &meta); err != nil {
		s.log.Warn("could not record unmapped products",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}
}

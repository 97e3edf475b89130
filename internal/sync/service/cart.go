package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	identitydomain "github.com/ferkcore/topadel/internal/identity/domain"
	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
	"github.com/ferkcore/topadel/internal/topten"
)

// resolvedLine is one order line with its remote product id attached.
type resolvedLine struct {
	RemoteProductID int64
	Quantity        int
	Terms           string
}

// resolveLines maps every order line to a remote product. One unmapped
// line fails the whole order; a cart is never created partially.
func (s *Service) resolveLines(ctx context.Context, order *orderdomain.Order) ([]resolvedLine, error) {
	var (
		lines   []resolvedLine
		missing []string
	)
	for i := range order.Lines {
		line := &order.Lines[i]
		remoteID, ok, err := s.resolver.Resolve(ctx, s.db, line)
		if err != nil {
			return nil, err
		}
		if !ok {
			label := line.SKU
			if label == "" {
				label = fmt.Sprintf("product %d", line.ProductID)
			}
			missing = append(missing, label)
			continue
		}
		lines = append(lines, resolvedLine{
			RemoteProductID: remoteID,
			Quantity:        line.Quantity,
			Terms:           line.ChosenTermIDs,
		})
	}
	if len(missing) > 0 {
		return nil, &MappingError{OrderID: order.ID, Missing: missing}
	}
	if len(lines) == 0 {
		return nil, &MappingError{OrderID: order.ID, Missing: []string{"no purchasable lines"}}
	}
	return lines, nil
}

// SyncCart returns the remote cart id for the order, creating one
// remotely when the order has none yet.
func (s *Service) SyncCart(ctx context.Context, order *orderdomain.Order, remoteUserID int64, lines []resolvedLine) (int64, error) {
	if order.Payment.RemoteCartID > 0 {
		// The lines resolved, so a stale unmapped-products flag from an
		// earlier attempt no longer holds.
		if order.Payment.MissingProducts != "" {
			meta := order.Payment
			meta.OrderID = order.ID
			meta.MissingProducts = ""
			if err := s.orders.SavePaymentMeta(ctx, s.db, &meta); err != nil {
				return 0, err
			}
			order.Payment = meta
		}
		return order.Payment.RemoteCartID, nil
	}

	req := topten.CreateCartRequest{UserID: remoteUserID}
	for _, line := range lines {
		req.CartProducts = append(req.CartProducts, topten.CartProduct{
			ProductID: line.RemoteProductID,
			Quantity:  line.Quantity,
			Terms:     line.Terms,
		})
	}

	cartID, err := s.client.CreateCart(ctx, req, topten.Overrides{})
	if err != nil {
		return 0, err
	}
	if cartID <= 0 {
		return 0, fmt.Errorf("remote cart creation for order %d returned cart id %d", order.ID, cartID)
	}

	err = s.identity.Upsert(ctx, s.db, &identitydomain.Mapping{
		ID:         s.genID.Generate(),
		EntityType: identitydomain.EntityCart,
		LocalID:    order.ID,
		ExternalID: strconv.FormatInt(cartID, 10),
		Metadata: datatypes.JSONMap{
			"remote_user_id": strconv.FormatInt(remoteUserID, 10),
			"lines":          strconv.Itoa(len(lines)),
		},
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("remote cart created",
		zap.Int64("order_id", order.ID),
		zap.Int64("remote_cart_id", cartID),
		zap.Int("lines", len(lines)),
	)
	return cartID, nil
}

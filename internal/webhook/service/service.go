package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ferkcore/topadel/internal/clock"
	"github.com/ferkcore/topadel/internal/config"
	identitydomain "github.com/ferkcore/topadel/internal/identity/domain"
	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
	"github.com/ferkcore/topadel/internal/webhook/domain"
)

type Params struct {
	fx.In

	Cfg      config.Config
	Settings *config.SettingsHolder
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clk      clock.Clock
	Orders   orderdomain.Repository
	Events   domain.Repository
	Mapper   domain.StatusMapper
}

// Service processes payment status notifications: it authenticates the
// delivery, extracts the order identifiers, applies the status change
// and records an audit event.
type Service struct {
	cfg      config.Config
	settings *config.SettingsHolder
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clk      clock.Clock
	orders   orderdomain.Repository
	events   domain.Repository
	mapper   domain.StatusMapper
}

func New(p Params) *Service {
	return &Service{
		cfg:      p.Cfg,
		settings: p.Settings,
		db:       p.DB,
		log:      p.Log.Named("webhook"),
		genID:    p.GenID,
		clk:      p.Clk,
		orders:   p.Orders,
		events:   p.Events,
		mapper:   p.Mapper,
	}
}

// Process handles one delivery. A *domain.RejectError tells the HTTP
// layer which refusal to answer with; any other error is a processing
// failure.
func (s *Service) Process(ctx context.Context, body []byte, signature, timestamp string) (*domain.Result, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		observeDelivery("rejected_empty_body")
		return nil, domain.ErrEmptyBody
	}
	if err := s.verifySignature(body, signature); err != nil {
		observeDelivery("rejected_signature")
		return nil, err
	}
	if err := s.verifyTimestamp(timestamp); err != nil {
		observeDelivery("rejected_timestamp")
		return nil, err
	}

	payload, err := decodePayload(body)
	if err != nil {
		observeDelivery("rejected_invalid_json")
		return nil, err
	}

	token := extractString(payload, tokenKeys)
	acquirerID := extractInt(payload, acquirerKeys)
	cartID := extractInt(payload, cartKeys)
	rawStatus := extractString(payload, statusKeys)
	amount := extractAmount(payload, amountKeys)
	if rawStatus == "" {
		rawStatus = "pending"
	}
	normalized := domain.NormalizeStatus(rawStatus)

	order, kind, identifier := s.lookupOrder(ctx, token, acquirerID, cartID)
	event := &domain.Event{
		ID:             s.genID.Generate(),
		EventID:        uuid.NewString(),
		Identifier:     identitydomain.MaskIdentifier(identifier),
		IdentifierKind: kind,
		RawStatus:      normalized,
		Amount:         amount,
		ReceivedAt:     s.clk.Now(),
	}

	if order == nil {
		s.log.Warn("webhook matched no order",
			zap.String("identifier", identitydomain.MaskIdentifier(identifier)),
			zap.String("raw_status", normalized),
		)
		observeDelivery("order_not_found")
		if err := s.events.Insert(ctx, s.db, event); err != nil {
			return nil, err
		}
		return &domain.Result{Received: true, OrderFound: false, RawStatus: normalized}, nil
	}
	event.OrderID = order.ID
	event.OrderFound = true

	if order.Payment.LastRemoteStatus == normalized {
		event.Duplicate = true
		observeDelivery("duplicate")
		if err := s.events.Insert(ctx, s.db, event); err != nil {
			return nil, err
		}
		s.log.Info("duplicate webhook suppressed",
			zap.Int64("order_id", order.ID),
			zap.String("raw_status", normalized),
		)
		return &domain.Result{Received: true, OrderFound: true, Duplicate: true, OrderID: order.ID, RawStatus: normalized}, nil
	}

	mapped, recognized := s.mapper.Map(normalized)
	if recognized {
		event.MappedStatus = string(mapped)
	}
	if err := s.applyStatus(ctx, order, normalized, mapped, recognized); err != nil {
		return nil, err
	}
	if err := s.events.Insert(ctx, s.db, event); err != nil {
		return nil, err
	}
	observeDelivery("processed")

	s.log.Info("webhook processed",
		zap.Int64("order_id", order.ID),
		zap.String("identifier_kind", kind),
		zap.String("raw_status", normalized),
		zap.String("mapped_status", event.MappedStatus),
	)
	return &domain.Result{
		Received:     true,
		OrderFound:   true,
		OrderID:      order.ID,
		RawStatus:    normalized,
		MappedStatus: event.MappedStatus,
	}, nil
}

// lookupOrder tries each identifier in precedence order: payment token,
// then acquirer id, then cart id.
func (s *Service) lookupOrder(ctx context.Context, token string, acquirerID, cartID int64) (*orderdomain.Order, string, string) {
	if token != "" {
		if order, err := s.orders.FindByPaymentToken(ctx, s.db, token); err == nil {
			return order, "token", token
		}
	}
	if acquirerID > 0 {
		if order, err := s.orders.FindByAcquirerID(ctx, s.db, acquirerID); err == nil {
			return order, "acquirer_id", strconv.FormatInt(acquirerID, 10)
		}
	}
	if cartID > 0 {
		if order, err := s.orders.FindByCartID(ctx, s.db, cartID); err == nil {
			return order, "cart_id", strconv.FormatInt(cartID, 10)
		}
	}
	identifier := token
	if identifier == "" && acquirerID > 0 {
		identifier = strconv.FormatInt(acquirerID, 10)
	}
	if identifier == "" && cartID > 0 {
		identifier = strconv.FormatInt(cartID, 10)
	}
	return nil, "", identifier
}

// applyStatus advances the order state machine. A paid order never
// regresses to a pre-payment state; unrecognized statuses only annotate.
func (s *Service) applyStatus(ctx context.Context, order *orderdomain.Order, normalized string, mapped orderdomain.Status, recognized bool) error {
	now := s.clk.Now()

	switch {
	case !recognized:
		note := fmt.Sprintf("Payment notification with unrecognized status %q, order state unchanged", normalized)
		if err := s.addNote(ctx, order.ID, note); err != nil {
			return err
		}
	case order.Status == orderdomain.StatusPaid && (mapped == orderdomain.StatusOnHold || mapped == orderdomain.StatusPending):
		note := fmt.Sprintf("Ignored stale payment status %q, order already paid", normalized)
		if err := s.addNote(ctx, order.ID, note); err != nil {
			return err
		}
	default:
		if err := s.orders.UpdateStatus(ctx, s.db, order.ID, mapped); err != nil {
			return err
		}
		note := fmt.Sprintf("Payment status %q applied, order moved to %s", normalized, mapped)
		if err := s.addNote(ctx, order.ID, note); err != nil {
			return err
		}
		order.Status = mapped
	}

	meta := order.Payment
	meta.OrderID = order.ID
	meta.LastRemoteStatus = normalized
	meta.LastRemoteStatusAt = &now
	if recognized {
		meta.PaymentStatus = string(mapped)
	}
	if err := s.orders.SavePaymentMeta(ctx, s.db, &meta); err != nil {
		return err
	}
	order.Payment = meta
	return nil
}

func (s *Service) addNote(ctx context.Context, orderID int64, note string) error {
	return s.orders.AddNote(ctx, s.db, &orderdomain.Note{
		ID:      s.genID.Generate(),
		OrderID: orderID,
		Note:    note,
	})
}

// ResolveReturn validates the shopper-facing return redirect. The order
// key must match before anything about the order is revealed.
func (s *Service) ResolveReturn(ctx context.Context, orderID int64, key string) (*orderdomain.Order, error) {
	order, err := s.orders.Get(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if key == "" || order.OrderKey != key {
		return nil, orderdomain.ErrKeyMismatch
	}
	return order, nil
}

// RecentEvents exposes the audit trail for the admin surface.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.events.Recent(ctx, s.db, limit)
}

package service

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	identitydomain "github.com/ferkcore/topadel/internal/identity/domain"
	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
	"github.com/ferkcore/topadel/internal/topten"
)

// SyncCustomer returns the remote user id for the order's customer,
// registering one remotely when no mapping exists yet. Guests map
// through a deterministic identifier derived from the billing email, so
// repeat guest checkouts reuse the same remote user.
func (s *Service) SyncCustomer(ctx context.Context, order *orderdomain.Order) (int64, error) {
	email := strings.TrimSpace(order.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return 0, fmt.Errorf("order %d has no valid billing email: %w", order.ID, err)
	}

	localID := order.CustomerID
	if localID <= 0 {
		localID = identitydomain.GuestLocalID(email)
	}
	hash := identitydomain.HashIdentity(email)

	mapping, err := s.identity.Find(ctx, s.db, identitydomain.EntityCustomer, localID, hash)
	if err != nil {
		return 0, err
	}
	if mapping != nil {
		if id, err := strconv.ParseInt(mapping.ExternalID, 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}

	externalID := email
	if order.CustomerID > 0 {
		externalID = strconv.FormatInt(order.CustomerID, 10)
	}

	password := RandomPassword()
	req := topten.RegisterUserRequest{
		FirstName:    order.FirstName,
		LastName:     order.LastName,
		Email:        email,
		Password:     password,
		EntityID:     s.client.Resolver().EntityID(),
		ExternalID:   externalID,
		Document:     strings.TrimSpace(order.DocumentNumber),
		DocumentType: strings.TrimSpace(order.DocumentType),
		Phone:        digitsOnly(order.Phone),
		PhonePrefix:  digitsOnly(order.PhonePrefix),
		BirthDate:    strings.TrimSpace(order.BirthDate),
	}
	if req.Document != "" && req.DocumentType == "" {
		req.DocumentType = s.cfg.Checkout.DefaultDocument
	}

	remoteID, err := s.client.RegisterUser(ctx, req, topten.Overrides{})
	if err != nil {
		return 0, err
	}
	if remoteID <= 0 {
		return 0, fmt.Errorf("remote registration for order %d returned user id %d", order.ID, remoteID)
	}

	err = s.identity.Upsert(ctx, s.db, &identitydomain.Mapping{
		ID:          s.genID.Generate(),
		EntityType:  identitydomain.EntityCustomer,
		LocalID:     localID,
		ExternalID:  strconv.FormatInt(remoteID, 10),
		NaturalHash: hash,
		Metadata: datatypes.JSONMap{
			"email":         email,
			"created_from":  "NewRegister",
			"password_hint": password[:3] + "***",
		},
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("remote user registered",
		zap.Int64("order_id", order.ID),
		zap.Int64("remote_user_id", remoteID),
		zap.Bool("guest", order.CustomerID <= 0),
	)
	return remoteID, nil
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

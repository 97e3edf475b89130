package service

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogdomain "github.com/ferkcore/topadel/internal/catalog/domain"
	"github.com/ferkcore/topadel/internal/config"
	identitydomain "github.com/ferkcore/topadel/internal/identity/domain"
	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
	"github.com/ferkcore/topadel/internal/topten"
)

type Params struct {
	fx.In

	Cfg      config.Config
	Settings *config.SettingsHolder
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Client   *topten.Client
	Orders   orderdomain.Repository
	Identity identitydomain.Repository
	Resolver catalogdomain.Resolver
}

// Service drives the remote side of a checkout: user registration, cart
// creation and the payment session.
type Service struct {
	cfg      config.Config
	settings *config.SettingsHolder
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	client   *topten.Client
	orders   orderdomain.Repository
	identity identitydomain.Repository
	resolver catalogdomain.Resolver
}

func New(p Params) *Service {
	return &Service{
		cfg:      p.Cfg,
		settings: p.Settings,
		db:       p.DB,
		log:      p.Log.Named("sync"),
		genID:    p.GenID,
		client:   p.Client,
		orders:   p.Orders,
		identity: p.Identity,
		resolver: p.Resolver,
	}
}

// Checkout constants resolve settings-first so operators can retarget the
// remote platform without a restart.

func (s *Service) paymentConceptID() int64 {
	if v := s.settings.Get().PaymentConceptID; v > 0 {
		return v
	}
	return s.cfg.Checkout.PaymentConceptID
}

func (s *Service) paymentMethodID() int64 {
	if v := s.settings.Get().PaymentMethodID; v > 0 {
		return v
	}
	return s.cfg.Checkout.PaymentMethodID
}

func (s *Service) branchID() int64 {
	if v := s.settings.Get().BranchID; v > 0 {
		return v
	}
	return s.cfg.Checkout.BranchID
}

func (s *Service) returnBaseURL() string {
	if v := s.settings.Get().ReturnBaseURL; v != "" {
		return v
	}
	return s.cfg.Checkout.ReturnBaseURL
}

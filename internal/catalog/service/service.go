package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ferkcore/topadel/internal/catalog/domain"
	identitydomain "github.com/ferkcore/topadel/internal/identity/domain"
	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
	"github.com/ferkcore/topadel/internal/topten"
)

// maxCatalogPages bounds the remote catalog walk so a misbehaving
// endpoint cannot loop the importer forever.
const maxCatalogPages = 50

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Client   *topten.Client
	Repo     domain.Repository
	Identity identitydomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	client   *topten.Client
	repo     domain.Repository
	identity identitydomain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog"),
		genID:    p.GenID,
		client:   p.Client,
		repo:     p.Repo,
		identity: p.Identity,
	}
}

// ImportReport summarizes one catalog remap run.
type ImportReport struct {
	Pages          int `json:"pages"`
	RemoteProducts int `json:"remote_products"`
	Matched        int `json:"matched"`
	Unmatched      int `json:"unmatched"`
}

// Remap walks the remote catalog page by page, matches remote products
// to local ones by SKU and rewrites the product mapping rows.
func (s *Service) Remap(ctx context.Context) (*ImportReport, error) {
	report := &ImportReport{}
	remoteBySKU := map[string]int64{}

	for page := 1; page <= maxCatalogPages; page++ {
		details, err := s.client.ProductsDetail(ctx, topten.ProductsDetailRequest{Page: page}, topten.Overrides{})
		if err != nil {
			return nil, err
		}
		if len(details) == 0 {
			break
		}
		report.Pages++
		report.RemoteProducts += len(details)
		for _, detail := range details {
			product := detail.Info.Product
			if sku := domain.NormalizeSKU(product.SKU); sku != "" {
				remoteBySKU[sku] = product.ID
			}
			for _, term := range detail.Info.Terms {
				if sku := domain.NormalizeSKU(term.SKU); sku != "" {
					remoteBySKU[sku] = product.ID
				}
			}
		}
	}

	products, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	for _, product := range products {
		remoteID, ok := remoteBySKU[domain.NormalizeSKU(product.SKU)]
		if !ok {
			report.Unmatched++
			continue
		}
		mapping := &identitydomain.Mapping{
			ID:          s.genID.Generate(),
			EntityType:  identitydomain.EntityProduct,
			LocalID:     product.ID,
			ExternalID:  strconv.FormatInt(remoteID, 10),
			NaturalHash: identitydomain.HashIdentity(product.SKU),
			Metadata: datatypes.JSONMap{
				"sku":    product.SKU,
				"source": "catalog_remap",
			},
		}
		if err := s.identity.Upsert(ctx, s.db, mapping); err != nil {
			return nil, err
		}
		report.Matched++
	}

	s.log.Info("catalog remap finished",
		zap.Int("pages", report.Pages),
		zap.Int("remote_products", report.RemoteProducts),
		zap.Int("matched", report.Matched),
		zap.Int("unmatched", report.Unmatched),
	)
	return report, nil
}

type resolver struct {
	identity identitydomain.Repository
}

// NewResolver builds the default product resolution chain: explicit
// per-line override, then numeric SKU, then the product mapping table.
func NewResolver(identity identitydomain.Repository) domain.Resolver {
	return &resolver{identity: identity}
}

func (r *resolver) Resolve(ctx context.Context, db *gorm.DB, line *orderdomain.Line) (int64, bool, error) {
	if line.RemoteProductID > 0 {
		return line.RemoteProductID, true, nil
	}
	if sku := strings.TrimSpace(line.SKU); sku != "" {
		if id, err := strconv.ParseInt(sku, 10, 64); err == nil && id > 0 {
			return id, true, nil
		}
	}
	if line.ProductID > 0 {
		mapping, err := r.identity.Find(ctx, db, identitydomain.EntityProduct, line.ProductID, "")
		if err != nil {
			return 0, false, err
		}
		if mapping != nil {
			if id, err := strconv.ParseInt(mapping.ExternalID, 10, 64); err == nil && id > 0 {
				return id, true, nil
			}
		}
	}
	return 0, false, nil
}

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogservice "github.com/ferkcore/topadel/internal/catalog/service"
	"github.com/ferkcore/topadel/internal/config"
	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
	"github.com/ferkcore/topadel/internal/ratelimit"
	syncservice "github.com/ferkcore/topadel/internal/sync/service"
	"github.com/ferkcore/topadel/internal/topten"
	webhookservice "github.com/ferkcore/topadel/internal/webhook/service"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	client     *topten.Client
	orders     orderdomain.Repository
	syncSvc    *syncservice.Service
	webhookSvc *webhookservice.Service
	catalogSvc *catalogservice.Service

	returnLimiter         *ratelimit.ReturnLimiter
	fallbackReturnLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Client     *topten.Client
	Orders     orderdomain.Repository
	SyncSvc    *syncservice.Service
	WebhookSvc *webhookservice.Service
	CatalogSvc *catalogservice.Service

	ReturnLimiter *ratelimit.ReturnLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("server"),
		genID:      p.GenID,
		client:     p.Client,
		orders:     p.Orders,
		syncSvc:    p.SyncSvc,
		webhookSvc: p.WebhookSvc,
		catalogSvc: p.CatalogSvc,

		returnLimiter:         p.ReturnLimiter,
		fallbackReturnLimiter: newRateLimiter(60, time.Minute),
	}

	svc.registerWebhookRoutes()
	svc.registerOrderRoutes()
	svc.registerAdminRoutes()

	return svc
}

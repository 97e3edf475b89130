package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/ferkcore/topadel/internal/catalog"
	"github.com/ferkcore/topadel/internal/clock"
	"github.com/ferkcore/topadel/internal/config"
	"github.com/ferkcore/topadel/internal/identity"
	"github.com/ferkcore/topadel/internal/logger"
	"github.com/ferkcore/topadel/internal/migration"
	"github.com/ferkcore/topadel/internal/order"
	"github.com/ferkcore/topadel/internal/ratelimit"
	"github.com/ferkcore/topadel/internal/server"
	syncmodule "github.com/ferkcore/topadel/internal/sync"
	"github.com/ferkcore/topadel/internal/topten"
	"github.com/ferkcore/topadel/internal/webhook"
	"github.com/ferkcore/topadel/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		topten.Module,
		identity.Module,
		order.Module,
		catalog.Module,
		syncmodule.Module,
		webhook.Module,

		ratelimit.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

package topten

import (
	"go.uber.org/fx"
)

var Module = fx.Module("topten.client",
	fx.Provide(New),
)

package sync

import (
	"go.uber.org/fx"

	"github.com/ferkcore/topadel/internal/sync/service"
)

var Module = fx.Module("sync",
	fx.Provide(service.New),
)

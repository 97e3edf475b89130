package catalog

import (
	"go.uber.org/fx"

	"github.com/ferkcore/topadel/internal/catalog/repository"
	"github.com/ferkcore/topadel/internal/catalog/service"
)

var Module = fx.Module("catalog",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewResolver),
)

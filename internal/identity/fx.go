package identity

import (
	"github.com/ferkcore/topadel/internal/identity/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(repository.Provide),
)

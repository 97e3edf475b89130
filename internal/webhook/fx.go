package webhook

import (
	"go.uber.org/fx"

	"github.com/ferkcore/topadel/internal/webhook/domain"
	"github.com/ferkcore/topadel/internal/webhook/repository"
	"github.com/ferkcore/topadel/internal/webhook/service"
)

var Module = fx.Module("webhook",
	fx.Provide(repository.Provide),
	fx.Provide(domain.NewDefaultStatusMapper),
	fx.Provide(service.New),
)

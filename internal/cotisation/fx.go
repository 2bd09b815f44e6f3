package cotisation

import (
	"github.com/santemut/vigie/internal/cotisation/repository"
	"github.com/santemut/vigie/internal/cotisation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cotisation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

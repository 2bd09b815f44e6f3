package scoring

import (
	"github.com/santemut/vigie/internal/scoring/repository"
	"github.com/santemut/vigie/internal/scoring/service"
	"go.uber.org/fx"
)

var Module = fx.Module("scoring.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

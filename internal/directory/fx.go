package directory

import (
	"github.com/santemut/vigie/internal/directory/repository"
	"github.com/santemut/vigie/internal/directory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("directory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package voucher

import (
	"github.com/santemut/vigie/internal/voucher/repository"
	"github.com/santemut/vigie/internal/voucher/service"
	"go.uber.org/fx"
)

var Module = fx.Module("voucher.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

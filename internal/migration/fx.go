package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(run),
)

func run(db *gorm.DB, log *zap.Logger) error {
	if err := Migrate(db); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

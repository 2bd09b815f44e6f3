package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/internal/clock"
	"github.com/santemut/vigie/internal/config"
	"github.com/santemut/vigie/internal/cotisation"
	"github.com/santemut/vigie/internal/directory"
	"github.com/santemut/vigie/internal/events"
	"github.com/santemut/vigie/internal/logger"
	"github.com/santemut/vigie/internal/migration"
	"github.com/santemut/vigie/internal/observability/metrics"
	"github.com/santemut/vigie/internal/quotalock"
	"github.com/santemut/vigie/internal/scheduler"
	"github.com/santemut/vigie/internal/scoring"
	"github.com/santemut/vigie/internal/seed"
	"github.com/santemut/vigie/internal/server"
	"github.com/santemut/vigie/internal/voucher"
	"github.com/santemut/vigie/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		events.Module,
		metrics.Module,
		quotalock.Module,

		directory.Module,
		cotisation.Module,
		scoring.Module,
		voucher.Module,

		migration.Module,
		seed.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/invoicemonk/invoicemonk/internal/audit"
	"github.com/invoicemonk/invoicemonk/internal/business"
	"github.com/invoicemonk/invoicemonk/internal/client"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	"github.com/invoicemonk/invoicemonk/internal/config"
	"github.com/invoicemonk/invoicemonk/internal/integrity"
	"github.com/invoicemonk/invoicemonk/internal/invoice"
	"github.com/invoicemonk/invoicemonk/internal/logger"
	"github.com/invoicemonk/invoicemonk/internal/migration"
	"github.com/invoicemonk/invoicemonk/internal/observability"
	"github.com/invoicemonk/invoicemonk/internal/reconcile"
	"github.com/invoicemonk/invoicemonk/internal/server"
	"github.com/invoicemonk/invoicemonk/internal/subscription"
	"github.com/invoicemonk/invoicemonk/internal/tax"
	"github.com/invoicemonk/invoicemonk/internal/template"
	"github.com/invoicemonk/invoicemonk/internal/verification"
	"github.com/invoicemonk/invoicemonk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,

		audit.Module,
		integrity.Module,
		business.Module,
		client.Module,
		tax.Module,
		template.Module,
		subscription.Module,
		invoice.Module,
		verification.Module,
		reconcile.Module,

		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

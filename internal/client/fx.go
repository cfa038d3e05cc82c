package client

import (
	"github.com/invoicemonk/invoicemonk/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(service.NewService),
)

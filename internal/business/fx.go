package business

import (
	"github.com/invoicemonk/invoicemonk/internal/business/service"
	"go.uber.org/fx"
)

var Module = fx.Module("business.service",
	fx.Provide(service.NewService),
)

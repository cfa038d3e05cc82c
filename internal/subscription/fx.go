package subscription

import (
	"github.com/invoicemonk/invoicemonk/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(service.NewService),
)

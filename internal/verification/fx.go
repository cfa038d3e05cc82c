package verification

import (
	"github.com/invoicemonk/invoicemonk/internal/verification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("verification.service",
	fx.Provide(service.NewService),
)

package audit

import (
	"github.com/invoicemonk/invoicemonk/internal/audit/repository"
	"github.com/invoicemonk/invoicemonk/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

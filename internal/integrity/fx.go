package integrity

import (
	"github.com/invoicemonk/invoicemonk/internal/integrity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("integrity.service",
	fx.Provide(service.NewSnapshotter),
)

package statuslog

import "go.uber.org/fx"

// Module provides the status ledger repository to Fx.
var Module = fx.Provide(NewRepository)

package app

import (
	"go.uber.org/fx"

	"github.com/quartermaster-app/quartermaster/internal/backup"
	"github.com/quartermaster-app/quartermaster/internal/cache"
	"github.com/quartermaster-app/quartermaster/internal/config"
	"github.com/quartermaster-app/quartermaster/internal/database"
	"github.com/quartermaster-app/quartermaster/internal/logger"
	"github.com/quartermaster-app/quartermaster/internal/messaging"
	"github.com/quartermaster-app/quartermaster/internal/notify"
	"github.com/quartermaster-app/quartermaster/internal/observability"
	repositoryorder "github.com/quartermaster-app/quartermaster/internal/repository/order"
	"github.com/quartermaster-app/quartermaster/internal/repository/statuslog"
	grpcserver "github.com/quartermaster-app/quartermaster/internal/server/grpc"
	httpserver "github.com/quartermaster-app/quartermaster/internal/server/http"
	serviceorder "github.com/quartermaster-app/quartermaster/internal/service/order"
	transporthttp "github.com/quartermaster-app/quartermaster/internal/transport/http"
	"github.com/quartermaster-app/quartermaster/internal/worker"
	workernotification "github.com/quartermaster-app/quartermaster/internal/worker/notification"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	notify.Module,
	backup.Module,
	repositoryorder.Module,
	statuslog.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background notification delivery.
var Worker = fx.Options(
	Core,
	worker.Module,
	workernotification.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP

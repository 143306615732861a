package app

import (
	httpx "github.com/yungbote/avatar-interview-backend/internal/http"
	httpH "github.com/yungbote/avatar-interview-backend/internal/http/handlers"
	"github.com/yungbote/avatar-interview-backend/internal/observability"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

const serviceName = "avatar-interview-backend"

type Handlers struct {
	Interview *httpH.InterviewHandler
	Health    *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Interview: httpH.NewInterviewHandlerWithDeps(httpH.InterviewHandlerDeps{
			Log:           log,
			Engine:        services.Interview,
			MaxAudioBytes: cfg.MaxAudioBytes,
		}),
		Health: httpH.NewHealthHandler(services.Store.Len),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *httpx.Server {
	log.Info("Wiring server...")
	rc := httpx.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		CORSOrigins:      cfg.CORSOrigins,
		LegacyRoutes:     cfg.LegacyRoutes,
		InterviewHandler: handlers.Interview,
		HealthHandler:    handlers.Health,
	}
	if cfg.OtelEnabled {
		rc.ServiceName = serviceName
	}
	return httpx.NewServer(rc)
}

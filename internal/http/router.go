package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/avatar-interview-backend/internal/http/handlers"
	httpMW "github.com/yungbote/avatar-interview-backend/internal/http/middleware"
	"github.com/yungbote/avatar-interview-backend/internal/http/response"
	"github.com/yungbote/avatar-interview-backend/internal/observability"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics
	// ServiceName enables otelgin spans when set.
	ServiceName string
	CORSOrigins []string
	// LegacyRoutes mounts the routes of the original candidate front-end.
	LegacyRoutes bool

	InterviewHandler *httpH.InterviewHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.NoRoute(func(c *gin.Context) {
		response.RespondError(c, http.StatusNotFound, "route_not_found", fmt.Errorf("no route for %s %s", c.Request.Method, c.Request.URL.Path))
	})

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	h := cfg.InterviewHandler
	if h == nil {
		return r
	}

	api := r.Group("/api")
	{
		api.POST("/interviews", h.Create)
		api.POST("/interviews/:id/turns", h.ProcessTurn)
		api.GET("/interviews/:id/results", h.Results)
		api.GET("/interviews/:id/question", h.CurrentQuestion)
	}

	if cfg.LegacyRoutes {
		r.POST("/upload_video_link/", h.LegacyUploadVideoLink)
		r.POST("/process_audio/", h.LegacyProcessAudio)
		r.GET("/get_results/:id", h.LegacyResults)
		r.GET("/current_question/:id", h.LegacyCurrentQuestion)
	}

	return r
}

package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var defaultOrigins = []string{
	"http://localhost:80",
	"http://localhost:3000",
	"http://localhost:5174",
	"http://localhost:5173",
	"http://127.0.0.1:80",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5174",
	"http://127.0.0.1:5173",
}

// CORS allows the candidate page and the recruiter dashboard. An empty list
// means the local dev origins.
func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With", "X-Request-Id"},
		ExposeHeaders:    []string{HeaderResponseText, HeaderCompleted, HeaderSkill, HeaderStage, headerTraceID, headerRequestID},
		AllowCredentials: true,
	})
}

// Turn metadata travels in headers because the body is the video.
const (
	HeaderResponseText = "X-Interview-Response-Text"
	HeaderCompleted    = "X-Interview-Completed"
	HeaderSkill        = "X-Interview-Skill"
	HeaderStage        = "X-Interview-Stage"
)

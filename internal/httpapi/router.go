package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kapsa-app/backend/internal/auth"
	"github.com/kapsa-app/backend/internal/common"
	"github.com/kapsa-app/backend/internal/config"
	"github.com/kapsa-app/backend/internal/httpapi/handlers"
	"github.com/kapsa-app/backend/internal/logger"
	"github.com/kapsa-app/backend/internal/study"
)

func NewRouter(cfg config.Config, svc *study.Service, verifier auth.Verifier, log *logger.Logger) *gin.Engine {
	if cfg.Mode == "prod" || cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(RequestID())
	r.Use(Recovery(log))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	r.Use(cors.New(corsCfg))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/healthz", func(c *gin.Context) {
		common.OK(c, gin.H{"status": "ok"})
	})

	h := handlers.NewHandler(svc, log)

	v1 := r.Group("/v1")
	v1.Use(auth.Required(verifier))
	v1.POST("/assistant", h.Assistant)
	v1.POST("/chat", h.Chat)
	v1.POST("/flashcards", h.GenerateFlashcards)
	v1.POST("/quiz", h.Quiz)
	v1.POST("/capture", h.Capture)
	v1.DELETE("/account", h.DeleteAccount)

	return r
}

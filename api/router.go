package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bufsearch/api/handlers"
)

func (s *server) setupRoutes(router *gin.Engine) {
	router.GET("/health", health())

	handlers.SetupBuffers(router, s.logger, s.buffers, s.sessions, s.validator)
	handlers.SetupSearch(router, s.logger, s.search, s.validator)
	handlers.SetupEvents(router, s.logger, s.hub, s.validator)
}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())

	return router
}

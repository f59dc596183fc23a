package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
	"github.com/meghashyamc/bufsearch/services/broadcast"
	"github.com/meghashyamc/bufsearch/validation"
)

type NavigateRequest struct {
	BufferID string `json:"buffer_id" validate:"valid_buffer_id"`
	Line     int    `json:"line" validate:"min=1"`
	Column   int    `json:"column" validate:"min=1"`
}

func SetupEvents(router *gin.Engine, logger logger.Logger, hub *broadcast.Hub, validator *validation.Validator) {
	router.GET("/events", handleEvents(hub, logger))
	router.POST("/navigate", handleNavigate(hub, logger, validator))
}

// handleEvents streams every broadcast event to one display surface as server-sent events.
func handleEvents(hub *broadcast.Hub, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, unsubscribe := hub.Subscribe()
		defer unsubscribe()

		logger.Info("display surface connected", "remote", c.ClientIP())
		c.Stream(func(w io.Writer) bool {
			select {
			case event, ok := <-events:
				if !ok {
					return false
				}
				c.SSEvent(string(event.Type), event)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
		logger.Info("display surface disconnected", "remote", c.ClientIP())
	}
}

func handleNavigate(hub *broadcast.Hub, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := NavigateRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from navigate request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate navigate request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		hub.PublishNavigate(models.NavigationRequest{
			BufferID: request.BufferID,
			Line:     request.Line,
			Column:   request.Column,
		})

		writeResponse(c, nil, http.StatusAccepted, nil)
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type response struct {
	Data   any      `json:"data"`
	Errors []string `json:"errors"`
}

func writeResponse(c *gin.Context, data interface{}, statusCode int, errors []string) {

	if statusCode == http.StatusNoContent {
		c.Status(statusCode)
		return

	}

	response := response{
		Data:   data,
		Errors: errors,
	}

	c.JSON(statusCode, response)
}

type bufferURI struct {
	ID string `uri:"id" json:"id" validate:"valid_buffer_id"`
}

type searchURI struct {
	ID string `uri:"id" json:"id" validate:"required,max=100"`
}

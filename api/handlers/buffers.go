package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bufsearch/db/bufferdb"
	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
	"github.com/meghashyamc/bufsearch/services/session"
	"github.com/meghashyamc/bufsearch/validation"
)

type SyncBufferRequest struct {
	Title    string `json:"title" validate:"max=1000"`
	FilePath string `json:"file_path" validate:"max=4096"`
	Content  string `json:"content"`
}

type OpenBufferRequest struct {
	Path string `json:"path" validate:"valid_path"`
}

type BufferSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	FilePath    string `json:"file_path,omitempty"`
	Fingerprint uint64 `json:"fingerprint"`
	Lines       int    `json:"lines"`
}

type SyncBufferResponse struct {
	BufferSummary
	Changed bool `json:"changed"`
}

func newBufferSummary(snapshot models.BufferSnapshot) BufferSummary {
	return BufferSummary{
		ID:          snapshot.ID,
		Title:       snapshot.Title,
		FilePath:    snapshot.FilePath,
		Fingerprint: snapshot.Fingerprint,
		Lines:       strings.Count(snapshot.Content, "\n") + 1,
	}
}

func SetupBuffers(router *gin.Engine, logger logger.Logger, buffers bufferdb.DB, sessions *session.Service, validator *validation.Validator) {
	router.GET("/buffers", handleListBuffers(buffers))
	router.POST("/buffers/open", handleOpenBuffer(sessions, logger, validator))
	router.GET("/buffers/:id", handleGetBuffer(buffers, logger, validator))
	router.PUT("/buffers/:id", handleSyncBuffer(buffers, logger, validator))
	router.DELETE("/buffers/:id", handleCloseBuffer(sessions, logger, validator))
	router.POST("/buffers/:id/save", handleSaveBuffer(sessions, logger, validator))
}

func handleListBuffers(buffers bufferdb.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshots := buffers.All()
		summaries := make([]BufferSummary, 0, len(snapshots))
		for _, snapshot := range snapshots {
			summaries = append(summaries, newBufferSummary(snapshot))
		}

		writeResponse(c, summaries, http.StatusOK, nil)
	}
}

func handleGetBuffer(buffers bufferdb.DB, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		uri, ok := bindBufferURI(c, logger, validator)
		if !ok {
			return
		}

		snapshot, found := buffers.Get(uri.ID)
		if !found {
			c.Abort()
			writeResponse(c, nil, http.StatusNotFound, []string{"buffer not found"})
			return
		}

		writeResponse(c, snapshot, http.StatusOK, nil)
	}
}

func handleSyncBuffer(buffers bufferdb.DB, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		uri, ok := bindBufferURI(c, logger, validator)
		if !ok {
			return
		}

		request := SyncBufferRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from buffer sync request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate buffer sync request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		title := request.Title
		if title == "" {
			title = uri.ID
		}

		snapshot, changed := buffers.Upsert(models.BufferSnapshot{
			ID:       uri.ID,
			Title:    title,
			FilePath: request.FilePath,
			Content:  request.Content,
		})

		writeResponse(c, SyncBufferResponse{BufferSummary: newBufferSummary(snapshot), Changed: changed}, http.StatusOK, nil)
	}
}

func handleOpenBuffer(sessions *session.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := OpenBufferRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from open request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate open request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		snapshot, err := sessions.Open(request.Path)
		if err != nil {
			c.Abort()
			writeResponse(c, nil, statusForSessionError(err), []string{err.Error()})
			return
		}

		writeResponse(c, snapshot, http.StatusCreated, nil)
	}
}

func handleSaveBuffer(sessions *session.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		uri, ok := bindBufferURI(c, logger, validator)
		if !ok {
			return
		}

		request := OpenBufferRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from save request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate save request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		snapshot, err := sessions.SaveAs(uri.ID, request.Path)
		if err != nil {
			c.Abort()
			writeResponse(c, nil, statusForSessionError(err), []string{err.Error()})
			return
		}

		writeResponse(c, newBufferSummary(snapshot), http.StatusOK, nil)
	}
}

func handleCloseBuffer(sessions *session.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		uri, ok := bindBufferURI(c, logger, validator)
		if !ok {
			return
		}

		if err := sessions.Close(uri.ID); err != nil {
			c.Abort()
			writeResponse(c, nil, statusForSessionError(err), []string{err.Error()})
			return
		}

		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}

func bindBufferURI(c *gin.Context, logger logger.Logger, validator *validation.Validator) (bufferURI, bool) {
	uri := bufferURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		logger.Warn("could not extract buffer id from path", "err", err.Error())
		c.Abort()
		writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract path parameters"})
		return uri, false
	}

	if err := validator.Validate(uri); err != nil {
		logger.Warn("could not validate buffer id", "err", err.Error())
		c.Abort()
		writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
		return uri, false
	}

	return uri, true
}

func statusForSessionError(err error) int {
	switch {
	case errors.Is(err, session.ErrBufferNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotText), errors.Is(err, session.ErrTooLarge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

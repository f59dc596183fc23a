package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
	"github.com/meghashyamc/bufsearch/services/scan"
	"github.com/meghashyamc/bufsearch/services/search"
	"github.com/meghashyamc/bufsearch/validation"
)

type ScopeRequest struct {
	Kind     string `json:"kind" validate:"omitempty,oneof=workspace search"`
	SearchID string `json:"search_id" validate:"max=100"`
}

type SearchRequest struct {
	Query        string        `json:"query" validate:"max=1000,valid_query"`
	IsRegex      bool          `json:"is_regex"`
	MatchCase    bool          `json:"match_case"`
	ExcludeQuery string        `json:"exclude_query" validate:"max=1000,valid_query"`
	Scope        *ScopeRequest `json:"scope"`
	DedupeLines  *bool         `json:"dedupe_lines"`
}

func (r *SearchRequest) toModel() (models.SearchRequest, error) {
	request := models.SearchRequest{
		Query:        r.Query,
		IsRegex:      r.IsRegex,
		MatchCase:    r.MatchCase,
		ExcludeQuery: r.ExcludeQuery,
		DedupeLines:  r.DedupeLines,
	}

	if r.Scope != nil {
		scope, err := models.ParseScope(r.Scope.Kind, r.Scope.SearchID)
		if err != nil {
			return models.SearchRequest{}, err
		}
		request.Scope = &scope
	}

	return request, nil
}

type InvalidPatternResponse struct {
	Field   string `json:"field"`
	Pattern string `json:"pattern"`
}

func SetupSearch(router *gin.Engine, logger logger.Logger, service *search.Service, validator *validation.Validator) {
	router.POST("/search", handleSearch(service, logger, validator))
	router.GET("/search/:id", handleGetSearch(service, logger, validator))
	router.DELETE("/search/:id", handleDisposeSearch(service, logger, validator))
	router.GET("/stats", handleStats(service))
}

func handleSearch(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		searchRequest, err := request.toModel()
		if err != nil {
			logger.Warn("could not validate search scope", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		response, err := service.Search(searchRequest)
		if err != nil {
			var patternErr *scan.InvalidPatternError
			if errors.As(err, &patternErr) {
				c.Abort()
				writeResponse(c, InvalidPatternResponse{Field: patternErr.Field, Pattern: patternErr.Pattern}, http.StatusBadRequest, []string{err.Error()})
				return
			}
			logger.Error("search failed", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, response, http.StatusOK, nil)
	}
}

func handleGetSearch(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		uri, ok := bindSearchURI(c, logger, validator)
		if !ok {
			return
		}

		response, found := service.Get(uri.ID)
		if !found {
			c.Abort()
			writeResponse(c, nil, http.StatusNotFound, []string{"search not found"})
			return
		}

		writeResponse(c, response, http.StatusOK, nil)
	}
}

func handleDisposeSearch(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		uri, ok := bindSearchURI(c, logger, validator)
		if !ok {
			return
		}

		service.Dispose(uri.ID)
		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}

func handleStats(service *search.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeResponse(c, service.Stats(), http.StatusOK, nil)
	}
}

func bindSearchURI(c *gin.Context, logger logger.Logger, validator *validation.Validator) (searchURI, bool) {
	uri := searchURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		logger.Warn("could not extract search id from path", "err", err.Error())
		c.Abort()
		writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract path parameters"})
		return uri, false
	}

	if err := validator.Validate(uri); err != nil {
		logger.Warn("could not validate search id", "err", err.Error())
		c.Abort()
		writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
		return uri, false
	}

	return uri, true
}

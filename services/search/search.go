package search

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/meghashyamc/bufsearch/db/bufferdb"
	"github.com/meghashyamc/bufsearch/db/resultdb"
	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
	"github.com/meghashyamc/bufsearch/services/scan"
)

// Publisher receives every response the service produces and every disposal.
type Publisher interface {
	PublishSearch(response *models.SearchResponse)
	PublishDispose(searchID string)
}

type Service struct {
	logger    logger.Logger
	buffers   bufferdb.DB
	results   resultdb.DB
	publisher Publisher
	newID     func() string

	// held for the whole of a search so each one runs to completion before the next starts
	mu sync.Mutex
}

type Stats struct {
	Buffers        int `json:"buffers"`
	CachedSearches int `json:"cached_searches"`
}

func New(logger logger.Logger, buffers bufferdb.DB, results resultdb.DB, publisher Publisher) *Service {
	return &Service{
		logger:    logger,
		buffers:   buffers,
		results:   results,
		publisher: publisher,
		newID:     func() string { return uuid.New().String() },
	}
}

// Search runs one request against the buffers or a cached parent search and caches the response.
// The only error is *scan.InvalidPatternError, returned as is; nothing is cached in that case.
func (s *Service) Search(rawRequest models.SearchRequest) (*models.SearchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request := rawRequest.Normalize()
	scope := request.ScopeOrDefault()

	response := &models.SearchResponse{
		SearchID: s.newID(),
		Request:  request,
		Results:  []models.SearchResult{},
	}
	if parentID, ok := scope.SearchID(); ok {
		response.ParentSearchID = parentID
	}

	if request.Query != "" {
		matcher, err := scan.Compile(optionsFromRequest(request))
		if err != nil {
			s.logger.Warn("search rejected", "err", err.Error())
			return nil, err
		}

		switch scope.Kind() {
		case models.ScopeRefine:
			response.Results = s.refine(matcher, response.ParentSearchID, request.ShouldDedupeLines())
		default:
			response.Results = s.searchWorkspace(matcher)
		}
	}

	s.results.Put(response)
	s.logger.Info("search completed", "search_id", response.SearchID, "parent_search_id", response.ParentSearchID,
		"scope", scope.Kind().String(), "buffers", len(response.Results), "matches", response.MatchCount())

	if s.publisher != nil {
		s.publisher.PublishSearch(response)
	}

	return response, nil
}

func (s *Service) Get(searchID string) (*models.SearchResponse, bool) {
	return s.results.Get(searchID)
}

// Dispose forgets a cached response. Disposing an unknown id is not an error.
func (s *Service) Dispose(searchID string) bool {
	disposed := s.results.Dispose(searchID)
	if !disposed {
		s.logger.Debug("dispose of unknown search", "search_id", searchID)
		return false
	}

	s.logger.Info("search disposed", "search_id", searchID)
	if s.publisher != nil {
		s.publisher.PublishDispose(searchID)
	}
	return true
}

func (s *Service) Stats() Stats {
	return Stats{
		Buffers:        s.buffers.Len(),
		CachedSearches: s.results.Len(),
	}
}

func (s *Service) searchWorkspace(matcher *scan.Matcher) []models.SearchResult {
	results := []models.SearchResult{}
	for _, snapshot := range s.buffers.All() {
		matches := matcher.FindMatches(snapshot.Content)
		if len(matches) == 0 {
			continue
		}
		results = append(results, models.SearchResult{
			BufferID: snapshot.ID,
			Title:    snapshot.Title,
			FilePath: snapshot.FilePath,
			Matches:  matches,
		})
	}
	return results
}

type lineKey struct {
	line int
	text string
}

// refine rescans only the lines the parent search matched, as they were when
// the parent ran. Line numbers come from the parent, columns from the new match.
func (s *Service) refine(matcher *scan.Matcher, parentID string, dedupeLines bool) []models.SearchResult {
	results := []models.SearchResult{}

	parent, ok := s.results.Get(parentID)
	if !ok {
		s.logger.Info("refinement parent not found, returning no results", "parent_search_id", parentID)
		return results
	}

	// a buffer can appear once per parent result; keep the first position and merge the rest into it
	positions := make(map[string]int)
	for _, previous := range parent.Results {
		seen := make(map[lineKey]struct{})
		var matches []models.MatchRecord
		for _, parentMatch := range previous.Matches {
			key := lineKey{line: parentMatch.Line, text: parentMatch.LineText}
			if dedupeLines {
				if _, done := seen[key]; done {
					continue
				}
				seen[key] = struct{}{}
			}
			matches = append(matches, matcher.FindLineMatches(parentMatch.LineText, parentMatch.Line)...)
		}
		if len(matches) == 0 {
			continue
		}

		if i, exists := positions[previous.BufferID]; exists {
			results[i].Matches = append(results[i].Matches, matches...)
			sortMatches(results[i].Matches)
			continue
		}

		sortMatches(matches)
		positions[previous.BufferID] = len(results)
		results = append(results, models.SearchResult{
			BufferID: previous.BufferID,
			Title:    previous.Title,
			FilePath: previous.FilePath,
			Matches:  matches,
		})
	}

	return results
}

func sortMatches(matches []models.MatchRecord) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Line != matches[j].Line {
			return matches[i].Line < matches[j].Line
		}
		return matches[i].Column < matches[j].Column
	})
}

func optionsFromRequest(request models.SearchRequest) scan.Options {
	return scan.Options{
		Query:          request.Query,
		IsRegex:        request.IsRegex,
		MatchCase:      request.MatchCase,
		ExcludeQuery:   request.ExcludeQuery,
		ExcludeIsRegex: request.IsRegex,
	}
}

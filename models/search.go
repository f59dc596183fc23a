package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ScopeKind int

const (
	ScopeWorkspace ScopeKind = iota
	ScopeRefine
)

const (
	scopeKindWorkspace = "workspace"
	scopeKindSearch    = "search"
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeRefine:
		return scopeKindSearch
	default:
		return scopeKindWorkspace
	}
}

// Scope selects the candidates of a search: every tracked buffer, or the
// matched lines of a previously cached search.
type Scope struct {
	kind     ScopeKind
	searchID string
}

func WorkspaceScope() Scope {
	return Scope{kind: ScopeWorkspace}
}

func RefineScope(searchID string) Scope {
	return Scope{kind: ScopeRefine, searchID: searchID}
}

func (s Scope) Kind() ScopeKind {
	return s.kind
}

// SearchID returns the parent search id for a refinement scope.
func (s Scope) SearchID() (string, bool) {
	if s.kind != ScopeRefine {
		return "", false
	}
	return s.searchID, true
}

type scopeJSON struct {
	Kind     string `json:"kind"`
	SearchID string `json:"search_id,omitempty"`
}

func (s Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal(scopeJSON{Kind: s.kind.String(), SearchID: s.searchID})
}

func (s *Scope) UnmarshalJSON(data []byte) error {
	var raw scopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	scope, err := ParseScope(raw.Kind, raw.SearchID)
	if err != nil {
		return err
	}
	*s = scope
	return nil
}

// ParseScope builds a Scope from its wire form. An empty kind means workspace.
func ParseScope(kind string, searchID string) (Scope, error) {
	switch strings.TrimSpace(kind) {
	case "", scopeKindWorkspace:
		return WorkspaceScope(), nil
	case scopeKindSearch:
		searchID = strings.TrimSpace(searchID)
		if searchID == "" {
			return Scope{}, fmt.Errorf("scope of kind %q requires a search_id", scopeKindSearch)
		}
		return RefineScope(searchID), nil
	default:
		return Scope{}, fmt.Errorf("unknown scope kind %q", kind)
	}
}

type SearchRequest struct {
	Query        string `json:"query"`
	IsRegex      bool   `json:"is_regex"`
	MatchCase    bool   `json:"match_case"`
	ExcludeQuery string `json:"exclude_query,omitempty"`
	Scope        *Scope `json:"scope,omitempty"`
	DedupeLines  *bool  `json:"dedupe_lines,omitempty"`
}

// Normalize returns a copy with trimmed queries and every optional field filled in.
func (r SearchRequest) Normalize() SearchRequest {
	normalized := SearchRequest{
		Query:        strings.TrimSpace(r.Query),
		IsRegex:      r.IsRegex,
		MatchCase:    r.MatchCase,
		ExcludeQuery: strings.TrimSpace(r.ExcludeQuery),
	}

	scope := WorkspaceScope()
	if r.Scope != nil {
		scope = *r.Scope
	}
	normalized.Scope = &scope

	dedupeLines := true
	if r.DedupeLines != nil {
		dedupeLines = *r.DedupeLines
	}
	normalized.DedupeLines = &dedupeLines

	return normalized
}

// ScopeOrDefault is safe to call on requests that were never normalized.
func (r SearchRequest) ScopeOrDefault() Scope {
	if r.Scope == nil {
		return WorkspaceScope()
	}
	return *r.Scope
}

func (r SearchRequest) ShouldDedupeLines() bool {
	return r.DedupeLines == nil || *r.DedupeLines
}

type MatchRecord struct {
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	MatchedText string `json:"matched_text"`
	LineText    string `json:"line_text"`
}

type SearchResult struct {
	BufferID string        `json:"buffer_id"`
	Title    string        `json:"title"`
	FilePath string        `json:"file_path,omitempty"`
	Matches  []MatchRecord `json:"matches"`
}

type SearchResponse struct {
	SearchID       string         `json:"search_id"`
	ParentSearchID string         `json:"parent_search_id,omitempty"`
	Request        SearchRequest  `json:"request"`
	Results        []SearchResult `json:"results"`
}

// MatchCount is the total number of matches across all results.
func (r *SearchResponse) MatchCount() int {
	count := 0
	for _, result := range r.Results {
		count += len(result.Matches)
	}
	return count
}

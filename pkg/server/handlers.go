package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/log/impl/periscope"
	"github.com/bascanada/loggate/pkg/service"
	"github.com/bascanada/loggate/pkg/ty"
)

// BaseResponse is the envelope for simple confirmations.
type BaseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details ty.MI  `json:"details,omitempty"`
}

type setAuthTokenRequest struct {
	AuthToken string `json:"auth_token"`
	TTL       int64  `json:"ttl,omitempty"`
}

type setConfigRequest struct {
	KeyPath string `json:"key_path"`
	Value   string `json:"value"`
}

type searchLogsRequest struct {
	QueryText     string   `json:"query_text"`
	MaxResults    int      `json:"max_results,omitempty"`
	StartTime     string   `json:"start_time,omitempty"`
	EndTime       string   `json:"end_time,omitempty"`
	Levels        []string `json:"levels,omitempty"`
	IncludeFields []string `json:"include_fields,omitempty"`
	ExcludeFields []string `json:"exclude_fields,omitempty"`
	SortBy        string   `json:"sort_by,omitempty"`
	SortOrder     string   `json:"sort_order,omitempty"`
	IndexPattern  string   `json:"index_pattern,omitempty"`
}

type recentLogsRequest struct {
	Count        int    `json:"count,omitempty"`
	Level        string `json:"level,omitempty"`
	IndexPattern string `json:"index_pattern,omitempty"`
}

type analyzeLogsRequest struct {
	TimeRange    string `json:"time_range,omitempty"`
	GroupBy      string `json:"group_by,omitempty"`
	IndexPattern string `json:"index_pattern,omitempty"`
}

type extractErrorsRequest struct {
	Hours              int    `json:"hours,omitempty"`
	IncludeStackTraces *bool  `json:"include_stack_traces,omitempty"`
	Limit              int    `json:"limit,omitempty"`
	IndexPattern       string `json:"index_pattern,omitempty"`
}

type extractSessionIDRequest struct {
	OrderID string `json:"order_id"`
	MaxLogs int    `json:"max_logs,omitempty"`
}

type correlateRequest struct {
	ErrorMessage string `json:"error_message"`
	RepoPath     string `json:"repo_path,omitempty"`
	IndexPattern string `json:"index_pattern,omitempty"`
}

type setCurrentIndexRequest struct {
	IndexPattern string `json:"index_pattern"`
}

type periscopeSearchRequest struct {
	SQLQuery      string `json:"sql_query"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
	OrgIdentifier string `json:"org_identifier,omitempty"`
}

type periscopeErrorsRequest struct {
	Hours         int    `json:"hours,omitempty"`
	Stream        string `json:"stream,omitempty"`
	ErrorCodes    string `json:"error_codes,omitempty"`
	OrgIdentifier string `json:"org_identifier,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
}

type createBoardRequest struct {
	Name string `json:"name"`
}

func decode(r *http.Request, dst interface{}) bool {
	return json.NewDecoder(r.Body).Decode(dst) == nil
}

func (s *Server) badBody(w http.ResponseWriter) {
	s.writeError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid request body")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ty.MI{
		"success": true,
		"version": Version,
		"status":  "ok",
		"message": "Server is healthy",
	})
}

func (s *Server) setAuthTokenHandler(context string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setAuthTokenRequest
		if !decode(r, &req) {
			s.badBody(w)
			return
		}
		ttl := time.Duration(req.TTL) * time.Second
		if err := s.tokens.Set(context, req.AuthToken, ttl); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, BaseResponse{
			Success: true,
			Message: context + " authentication token set successfully",
		})
	}
}

func (s *Server) setConfigHandler(w http.ResponseWriter, r *http.Request) {
	var req setConfigRequest
	if !decode(r, &req) || req.KeyPath == "" {
		s.badBody(w)
		return
	}
	previous := s.overrides.Get(req.KeyPath, "")
	s.overrides.Set(req.KeyPath, req.Value)
	s.writeJSON(w, http.StatusOK, BaseResponse{
		Success: true,
		Message: "Configuration updated: " + req.KeyPath,
		Details: ty.MI{
			"key_path":       req.KeyPath,
			"value":          req.Value,
			"previous_value": previous,
		},
	})
}

func (s *Server) searchLogsHandler(w http.ResponseWriter, r *http.Request) {
	var req searchLogsRequest
	if !decode(r, &req) {
		s.badBody(w)
		return
	}
	result, err := s.services.Logs.SearchLogs(r.Context(), service.SearchLogsInput{
		Query:         req.QueryText,
		MaxResults:    req.MaxResults,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Levels:        req.Levels,
		IncludeFields: req.IncludeFields,
		ExcludeFields: req.ExcludeFields,
		SortBy:        req.SortBy,
		SortOrder:     req.SortOrder,
		Index:         req.IndexPattern,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) recentLogsHandler(w http.ResponseWriter, r *http.Request) {
	var req recentLogsRequest
	if !decode(r, &req) {
		s.badBody(w)
		return
	}
	result, err := s.services.Logs.RecentLogs(r.Context(), req.Count, req.Level, req.IndexPattern)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) analyzeLogsHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeLogsRequest
	if !decode(r, &req) {
		s.badBody(w)
		return
	}
	result, err := s.services.Logs.AnalyzeLogs(r.Context(), req.TimeRange, req.GroupBy, req.IndexPattern)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) extractErrorsHandler(w http.ResponseWriter, r *http.Request) {
	var req extractErrorsRequest
	if !decode(r, &req) {
		s.badBody(w)
		return
	}
	includeTraces := true
	if req.IncludeStackTraces != nil {
		includeTraces = *req.IncludeStackTraces
	}
	result, err := s.services.Logs.ExtractErrors(r.Context(), req.Hours, includeTraces, req.Limit, req.IndexPattern)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) extractSessionIDHandler(w http.ResponseWriter, r *http.Request) {
	var req extractSessionIDRequest
	if !decode(r, &req) {
		s.badBody(w)
		return
	}
	result, err := s.services.Session.ExtractSessionID(r.Context(), req.OrderID, req.MaxLogs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) correlateHandler(w http.ResponseWriter, r *http.Request) {
	var req correlateRequest
	if !decode(r, &req) || req.ErrorMessage == "" {
		s.badBody(w)
		return
	}
	result, err := s.services.Correlate.CorrelateWithCode(r.Context(), req.ErrorMessage, req.RepoPath, req.IndexPattern)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) discoverIndexesHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.services.Index.Discover(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) setCurrentIndexHandler(w http.ResponseWriter, r *http.Request) {
	var req setCurrentIndexRequest
	if !decode(r, &req) {
		s.badBody(w)
		return
	}
	pattern, err := s.services.Index.SetCurrent(req.IndexPattern)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, BaseResponse{
		Success: true,
		Message: "Current index set to: " + pattern,
		Details: ty.MI{"index_pattern": pattern},
	})
}

// periscopeReady rejects the request when no periscope backend is configured.
func (s *Server) periscopeReady(w http.ResponseWriter) bool {
	if s.services.Periscope != nil {
		return true
	}
	s.writeError(w, http.StatusServiceUnavailable, ErrCodeConfig, "Periscope backend is not configured")
	return false
}

func (s *Server) periscopeSearchHandler(w http.ResponseWriter, r *http.Request) {
	if !s.periscopeReady(w) {
		return
	}
	var req periscopeSearchRequest
	if !decode(r, &req) {
		s.badBody(w)
		return
	}
	result, err := s.services.Periscope.Search(r.Context(), periscopeOptions(req))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) periscopeErrorsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.periscopeReady(w) {
		return
	}
	var req periscopeErrorsRequest
	if !decode(r, &req) {
		s.badBody(w)
		return
	}
	result, err := s.services.Periscope.SearchErrors(r.Context(), req.Hours, req.Stream, req.ErrorCodes, req.OrgIdentifier, req.Timezone)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) periscopeStreamsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.periscopeReady(w) {
		return
	}
	org := r.URL.Query().Get("org_identifier")
	streams, err := s.services.Periscope.Streams(r.Context(), org)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ty.MI{
		"success": true,
		"streams": streams,
		"count":   len(streams),
	})
}

func (s *Server) periscopeSchemaHandler(w http.ResponseWriter, r *http.Request) {
	if !s.periscopeReady(w) {
		return
	}
	stream := r.URL.Query().Get("stream_name")
	org := r.URL.Query().Get("org_identifier")
	schema, err := s.services.Periscope.StreamSchema(r.Context(), stream, org)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ty.MI{
		"success": true,
		"stream":  stream,
		"schema":  schema,
	})
}

func (s *Server) periscopeAllSchemasHandler(w http.ResponseWriter, r *http.Request) {
	if !s.periscopeReady(w) {
		return
	}
	org := r.URL.Query().Get("org_identifier")
	streams, err := s.services.Periscope.Streams(r.Context(), org)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	schemas := ty.MI{}
	for _, stream := range streams {
		name := stream.GetString("name")
		if name == "" {
			continue
		}
		schema, err := s.services.Periscope.StreamSchema(r.Context(), name, org)
		if err != nil {
			s.logger.Warn("failed to get stream schema",
				zap.String("stream", name), zap.Error(err))
			continue
		}
		schemas[name] = schema
	}
	s.writeJSON(w, http.StatusOK, ty.MI{
		"success": true,
		"schemas": schemas,
		"count":   len(schemas),
	})
}

func (s *Server) memoryListHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ty.MI{"boards": s.services.Memory.ListBoards()})
}

func (s *Server) memoryCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req createBoardRequest
	if !decode(r, &req) || req.Name == "" {
		s.badBody(w)
		return
	}
	board := s.services.Memory.CreateBoard(req.Name)
	s.writeJSON(w, http.StatusOK, board)
}

func (s *Server) memoryGetHandler(w http.ResponseWriter, r *http.Request) {
	board, ok := s.services.Memory.GetBoard(r.PathValue("boardId"))
	if !ok {
		s.writeError(w, http.StatusNotFound, ErrCodeValidation, "Memory board not found")
		return
	}
	s.writeJSON(w, http.StatusOK, board)
}

func (s *Server) memoryAddFindingHandler(w http.ResponseWriter, r *http.Request) {
	var finding ty.MI
	if !decode(r, &finding) {
		s.badBody(w)
		return
	}
	if err := s.services.Memory.AddFinding(r.PathValue("boardId"), finding); err != nil {
		s.writeError(w, http.StatusNotFound, ErrCodeValidation, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, BaseResponse{Success: true, Message: "Finding added"})
}

func (s *Server) memoryClearHandler(w http.ResponseWriter, r *http.Request) {
	if !s.services.Memory.ClearBoard(r.PathValue("boardId")) {
		s.writeError(w, http.StatusNotFound, ErrCodeValidation, "Memory board not found")
		return
	}
	s.writeJSON(w, http.StatusOK, BaseResponse{Success: true, Message: "Board cleared"})
}

func periscopeOptions(req periscopeSearchRequest) periscope.SearchOptions {
	return periscope.SearchOptions{
		SQL:        req.SQLQuery,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Timezone:   req.Timezone,
		MaxResults: req.MaxResults,
		Org:        req.OrgIdentifier,
	}
}

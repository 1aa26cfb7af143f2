// Package service holds the investigation logic built on top of the log
// backends: searching, error extraction, session tracing, index selection
// and in-memory investigation boards.
package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/log/client"
	"github.com/bascanada/loggate/pkg/log/impl/kibana"
	"github.com/bascanada/loggate/pkg/sanitize"
	"github.com/bascanada/loggate/pkg/ty"
)

const timestampField = "@timestamp"

// Searcher is the slice of the Kibana client the services need.
type Searcher interface {
	Search(ctx context.Context, in kibana.SearchInput) (*client.SearchResult, error)
}

// LogService builds Elasticsearch queries from validated inputs and shapes
// the results for investigation.
type LogService struct {
	search     Searcher
	summarizer Summarizer
	logger     *zap.Logger
}

func NewLogService(search Searcher, logger *zap.Logger) *LogService {
	return &LogService{search: search, logger: logger.Named("logs")}
}

// SetSummarizer attaches an optional summarizer used by ExtractErrors.
func (s *LogService) SetSummarizer(summarizer Summarizer) {
	s.summarizer = summarizer
}

// SearchLogsInput are the parameters of one KQL search.
type SearchLogsInput struct {
	Query         string
	MaxResults    int
	StartTime     string
	EndTime       string
	Levels        []string
	IncludeFields []string
	ExcludeFields []string
	SortBy        string
	SortOrder     string
	Index         string
}

// SearchLogsResult is a search outcome with its records.
type SearchLogsResult struct {
	Total    int64              `json:"total"`
	Logs     []client.LogRecord `json:"logs"`
	Took     int64              `json:"took"`
	TimedOut bool               `json:"timedOut"`
	Message  string             `json:"message"`
}

// SearchLogs validates the query, turns it into a query_string DSL with the
// optional time and level filters, and runs it.
func (s *LogService) SearchLogs(ctx context.Context, in SearchLogsInput) (*SearchLogsResult, error) {
	query, err := sanitize.Query(in.Query)
	if err != nil {
		return nil, err
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 100
	}

	var sortConfig []ty.MI
	if in.SortBy != "" {
		sortBy, err := sanitize.FieldName(in.SortBy)
		if err != nil {
			return nil, err
		}
		order := in.SortOrder
		if order != "asc" {
			order = "desc"
		}
		sortConfig = []ty.MI{{sortBy: ty.MI{"order": order}}}
	}

	result, err := s.search.Search(ctx, kibana.SearchInput{
		Index:         in.Index,
		Query:         buildQueryDSL(query, in.StartTime, in.EndTime, in.Levels),
		Size:          in.MaxResults,
		Sort:          sortConfig,
		IncludeFields: in.IncludeFields,
		ExcludeFields: in.ExcludeFields,
	})
	if err != nil {
		return nil, err
	}

	return &SearchLogsResult{
		Total:    result.Total,
		Logs:     result.Records,
		Took:     result.Took,
		TimedOut: result.TimedOut,
		Message:  fmt.Sprintf("Found %d logs for query: %s", result.Total, query),
	}, nil
}

// RecentLogs returns the newest entries, optionally filtered by level.
func (s *LogService) RecentLogs(ctx context.Context, count int, level, index string) (*SearchLogsResult, error) {
	if count <= 0 {
		count = 100
	}

	query := ty.MI{"match_all": ty.MI{}}
	if level != "" {
		query = ty.MI{"match": ty.MI{"level": strings.ToUpper(level)}}
	}

	result, err := s.search.Search(ctx, kibana.SearchInput{
		Index: index,
		Query: query,
		Size:  count,
		Sort:  []ty.MI{{timestampField: ty.MI{"order": "desc"}}},
	})
	if err != nil {
		return nil, err
	}

	return &SearchLogsResult{
		Total:    result.Total,
		Logs:     result.Records,
		Took:     result.Took,
		TimedOut: result.TimedOut,
		Message:  fmt.Sprintf("Found %d logs for query: recent logs", result.Total),
	}, nil
}

// AnalysisResult summarizes log volume over a time range.
type AnalysisResult struct {
	TimeRange    string          `json:"timeRange"`
	TotalLogs    int64           `json:"totalLogs"`
	Histogram    []client.Bucket `json:"histogram,omitempty"`
	Groups       []client.Bucket `json:"groups,omitempty"`
	Aggregations ty.MI           `json:"aggregations"`
	Message      string          `json:"message"`
}

// AnalyzeLogs aggregates logs over a time range: a date histogram always,
// plus a terms aggregation when groupBy is given.
func (s *LogService) AnalyzeLogs(ctx context.Context, timeRange, groupBy, index string) (*AnalysisResult, error) {
	if timeRange == "" {
		timeRange = "24h"
	}
	timeRange, err := sanitize.TimeRange(timeRange)
	if err != nil {
		return nil, err
	}

	aggs := ty.MI{
		"over_time": ty.MI{
			"date_histogram": ty.MI{
				"field":          timestampField,
				"fixed_interval": intervalForRange(timeRange),
			},
		},
	}
	var groupAgg string
	if groupBy != "" {
		field, err := sanitize.FieldName(groupBy)
		if err != nil {
			return nil, err
		}
		groupAgg = "by_" + field
		aggs[groupAgg] = ty.MI{
			"terms": ty.MI{
				"field": field + ".keyword",
				"size":  100,
			},
		}
	}

	result, err := s.search.Search(ctx, kibana.SearchInput{
		Index: index,
		Query: ty.MI{
			"range": ty.MI{
				timestampField: ty.MI{"gte": "now-" + timeRange, "lte": "now"},
			},
		},
		Size: 0,
		Aggs: aggs,
	})
	if err != nil {
		return nil, err
	}

	analysis := &AnalysisResult{
		TimeRange:    timeRange,
		TotalLogs:    result.Total,
		Histogram:    client.BucketsFrom(result.Aggregations, "over_time"),
		Aggregations: result.Aggregations,
		Message:      "Log analysis completed",
	}
	if groupAgg != "" {
		analysis.Groups = client.BucketsFrom(result.Aggregations, groupAgg)
	}
	return analysis, nil
}

// ErrorRecord is one extracted error entry.
type ErrorRecord struct {
	Timestamp  string `json:"timestamp"`
	Level      string `json:"level"`
	Message    string `json:"message"`
	StackTrace string `json:"stackTrace,omitempty"`
	Service    string `json:"service,omitempty"`
	Source     ty.MI  `json:"source"`
}

// ErrorsResult is the outcome of an error extraction.
type ErrorsResult struct {
	TimeRange   string        `json:"timeRange"`
	TotalErrors int           `json:"totalErrors"`
	Errors      []ErrorRecord `json:"errors"`
	Summary     string        `json:"summary,omitempty"`
	Message     string        `json:"message"`
}

// ExtractErrors pulls ERROR level entries from the last hours.
func (s *LogService) ExtractErrors(ctx context.Context, hours int, includeStackTraces bool, limit int, index string) (*ErrorsResult, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 {
		limit = 100
	}

	includeFields := []string{timestampField, "level", "message", "service"}
	if includeStackTraces {
		includeFields = append(includeFields, "stack_trace", "exception", "error")
	}

	result, err := s.search.Search(ctx, kibana.SearchInput{
		Index: index,
		Query: ty.MI{
			"bool": ty.MI{
				"must": []ty.MI{
					{"match": ty.MI{"level": "ERROR"}},
					{"range": ty.MI{
						timestampField: ty.MI{
							"gte": fmt.Sprintf("now-%dh", hours),
							"lte": "now",
						},
					}},
				},
			},
		},
		Size:          limit,
		IncludeFields: includeFields,
	})
	if err != nil {
		return nil, err
	}

	errors := make([]ErrorRecord, 0, len(result.Records))
	for _, record := range result.Records {
		entry := ErrorRecord{
			Timestamp: record.Fields.GetString(timestampField),
			Level:     record.Level,
			Message:   record.Message,
			Service:   record.Fields.GetString("service"),
			Source:    record.Fields,
		}
		if includeStackTraces {
			entry.StackTrace = record.Fields.GetString("stack_trace")
		}
		errors = append(errors, entry)
	}

	var summary string
	if s.summarizer != nil && len(result.Records) > 0 {
		summary, err = s.summarizer.Summarize(ctx, result.Records)
		if err != nil {
			s.logger.Warn("summarizer failed", zap.Error(err))
			summary = ""
		}
	}

	return &ErrorsResult{
		TimeRange:   fmt.Sprintf("%dh", hours),
		TotalErrors: len(errors),
		Errors:      errors,
		Summary:     summary,
		Message:     fmt.Sprintf("Found %d errors in last %d hours", len(errors), hours),
	}, nil
}

func buildQueryDSL(query, startTime, endTime string, levels []string) ty.MI {
	var parts []ty.MI

	if query != "" {
		parts = append(parts, ty.MI{
			"query_string": ty.MI{
				"query":         query,
				"default_field": "*",
			},
		})
	}

	if startTime != "" || endTime != "" {
		rangeQuery := ty.MI{}
		if startTime != "" {
			rangeQuery["gte"] = startTime
		}
		if endTime != "" {
			rangeQuery["lte"] = endTime
		}
		parts = append(parts, ty.MI{"range": ty.MI{timestampField: rangeQuery}})
	}

	if len(levels) > 0 {
		parts = append(parts, ty.MI{"terms": ty.MI{"level.keyword": levels}})
	}

	switch len(parts) {
	case 0:
		return ty.MI{"match_all": ty.MI{}}
	case 1:
		return parts[0]
	default:
		return ty.MI{"bool": ty.MI{"must": parts}}
	}
}

var rangeRe = regexp.MustCompile(`^(\d+)([hdwm])$`)

// intervalForRange picks a histogram interval proportional to the range.
func intervalForRange(timeRange string) string {
	m := rangeRe.FindStringSubmatch(timeRange)
	if m == nil {
		return "1h"
	}
	amount, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "h":
		if amount <= 24 {
			return "15m"
		}
		return "1h"
	case "d":
		if amount <= 7 {
			return "1h"
		}
		return "1d"
	default:
		return "1d"
	}
}

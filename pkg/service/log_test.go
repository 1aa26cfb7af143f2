package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bascanada/loggate/pkg/errs"
	"github.com/bascanada/loggate/pkg/log/client"
	"github.com/bascanada/loggate/pkg/log/impl/kibana"
	"github.com/bascanada/loggate/pkg/ty"
)

type fakeSearcher struct {
	lastInput kibana.SearchInput
	result    *client.SearchResult
	err       error

	indexes      []string
	currentIndex string
}

func (f *fakeSearcher) Search(_ context.Context, in kibana.SearchInput) (*client.SearchResult, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &client.SearchResult{Records: []client.LogRecord{}}, nil
	}
	return f.result, nil
}

func (f *fakeSearcher) DiscoverIndexes(_ context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.indexes, nil
}

func (f *fakeSearcher) CurrentIndex() string     { return f.currentIndex }
func (f *fakeSearcher) SetCurrentIndex(s string) { f.currentIndex = s }

func recordsResult(messages ...string) *client.SearchResult {
	records := make([]client.LogRecord, 0, len(messages))
	for _, m := range messages {
		records = append(records, client.LogRecord{
			Message: m,
			Level:   "ERROR",
			Fields:  ty.MI{"message": m, "level": "ERROR", "@timestamp": "2024-03-01T10:00:00Z"},
		})
	}
	return &client.SearchResult{Total: int64(len(messages)), Records: records}
}

func TestSearchLogsBuildsQueryString(t *testing.T) {
	fake := &fakeSearcher{result: recordsResult("a", "b")}
	svc := NewLogService(fake, zaptest.NewLogger(t))

	result, err := svc.SearchLogs(context.Background(), SearchLogsInput{
		Query:      "abc123 AND payment",
		MaxResults: 50,
		Levels:     []string{"ERROR", "WARN"},
		StartTime:  "now-24h",
		SortBy:     "@timestamp",
		SortOrder:  "asc",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Total)

	boolQuery := fake.lastInput.Query["bool"].(ty.MI)
	must := boolQuery["must"].([]ty.MI)
	require.Len(t, must, 3)
	qs := must[0]["query_string"].(ty.MI)
	assert.Equal(t, "abc123 AND payment", qs["query"])
	assert.Equal(t, 50, fake.lastInput.Size)
	require.Len(t, fake.lastInput.Sort, 1)
	assert.Contains(t, fake.lastInput.Sort[0], "@timestamp")
}

func TestSearchLogsRejectsDangerousQuery(t *testing.T) {
	fake := &fakeSearcher{}
	svc := NewLogService(fake, zaptest.NewLogger(t))

	_, err := svc.SearchLogs(context.Background(), SearchLogsInput{
		Query: "level:ERROR; DROP TABLE logs",
	})
	var valErr *errs.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Empty(t, fake.lastInput.Query)
}

func TestRecentLogsFiltersLevel(t *testing.T) {
	fake := &fakeSearcher{result: recordsResult("x")}
	svc := NewLogService(fake, zaptest.NewLogger(t))

	_, err := svc.RecentLogs(context.Background(), 10, "error", "")
	require.NoError(t, err)

	match := fake.lastInput.Query["match"].(ty.MI)
	assert.Equal(t, "ERROR", match["level"])
	require.Len(t, fake.lastInput.Sort, 1)
}

func TestAnalyzeLogsAggregations(t *testing.T) {
	fake := &fakeSearcher{result: &client.SearchResult{
		Total: 42,
		Aggregations: ty.MI{
			"by_level": ty.MI{"buckets": []interface{}{
				ty.MI{"key": "ERROR", "doc_count": float64(30)},
				ty.MI{"key": "WARN", "doc_count": float64(12)},
			}},
			"over_time": ty.MI{"buckets": []interface{}{
				ty.MI{"key_as_string": "2024-03-01T10:00:00Z", "doc_count": float64(42)},
			}},
		},
	}}
	svc := NewLogService(fake, zaptest.NewLogger(t))

	result, err := svc.AnalyzeLogs(context.Background(), "24h", "level", "")
	require.NoError(t, err)
	assert.EqualValues(t, 42, result.TotalLogs)
	require.Len(t, result.Groups, 2)
	assert.Equal(t, client.Bucket{Key: "ERROR", Count: 30}, result.Groups[0])
	require.Len(t, result.Histogram, 1)
	assert.Equal(t, "2024-03-01T10:00:00Z", result.Histogram[0].Key)

	assert.Equal(t, 0, fake.lastInput.Size)
	byLevel := fake.lastInput.Aggs["by_level"].(ty.MI)
	terms := byLevel["terms"].(ty.MI)
	assert.Equal(t, "level.keyword", terms["field"])
	overTime := fake.lastInput.Aggs["over_time"].(ty.MI)
	histogram := overTime["date_histogram"].(ty.MI)
	assert.Equal(t, "15m", histogram["fixed_interval"])
}

func TestAnalyzeLogsRejectsBadRange(t *testing.T) {
	svc := NewLogService(&fakeSearcher{}, zaptest.NewLogger(t))
	_, err := svc.AnalyzeLogs(context.Background(), "yesterday", "", "")
	var valErr *errs.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestIntervalForRange(t *testing.T) {
	assert.Equal(t, "15m", intervalForRange("6h"))
	assert.Equal(t, "1h", intervalForRange("48h"))
	assert.Equal(t, "1h", intervalForRange("7d"))
	assert.Equal(t, "1d", intervalForRange("30d"))
	assert.Equal(t, "1d", intervalForRange("2w"))
	assert.Equal(t, "1h", intervalForRange("garbage"))
}

func TestExtractErrorsQueryShape(t *testing.T) {
	fake := &fakeSearcher{result: recordsResult("boom")}
	svc := NewLogService(fake, zaptest.NewLogger(t))

	result, err := svc.ExtractErrors(context.Background(), 12, true, 50, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalErrors)
	assert.Equal(t, "12h", result.TimeRange)

	boolQuery := fake.lastInput.Query["bool"].(ty.MI)
	must := boolQuery["must"].([]ty.MI)
	rangeQuery := must[1]["range"].(ty.MI)["@timestamp"].(ty.MI)
	assert.Equal(t, "now-12h", rangeQuery["gte"])
	assert.Contains(t, fake.lastInput.IncludeFields, "stack_trace")
}

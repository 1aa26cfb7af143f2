package kibana

import (
	"time"

	"github.com/bascanada/loggate/pkg/log/client"
	"github.com/bascanada/loggate/pkg/ty"
)

// Body is the Elasticsearch search body carried inside the Kibana envelope.
type Body struct {
	Query  ty.MI   `json:"query"`
	Size   int     `json:"size"`
	Sort   []ty.MI `json:"sort,omitempty"`
	Aggs   ty.MI   `json:"aggs,omitempty"`
	Source ty.MI   `json:"_source,omitempty"`
}

// Params wraps the body with its target index.
type Params struct {
	Index string `json:"index"`
	Body  Body   `json:"body"`
}

// SearchRequest is the envelope POSTed to /internal/search/es.
type SearchRequest struct {
	Params Params `json:"params"`
}

// SearchInput describes one search before it is put on the wire.
type SearchInput struct {
	Index         string
	Query         ty.MI
	Size          int
	Sort          []ty.MI
	Aggs          ty.MI
	IncludeFields []string
	ExcludeFields []string
}

func (in SearchInput) request() SearchRequest {
	body := Body{
		Query: in.Query,
		Size:  in.Size,
		Sort:  in.Sort,
		Aggs:  in.Aggs,
	}
	if len(in.IncludeFields) > 0 || len(in.ExcludeFields) > 0 {
		body.Source = ty.MI{}
		if len(in.IncludeFields) > 0 {
			body.Source["includes"] = in.IncludeFields
		}
		if len(in.ExcludeFields) > 0 {
			body.Source["excludes"] = in.ExcludeFields
		}
	}
	return SearchRequest{Params: Params{Index: in.Index, Body: body}}
}

// normalize turns either response shape (the newer rawResponse envelope or
// a bare Elasticsearch body) into the canonical result. It runs once, here,
// so nothing downstream sees the wire format.
func normalize(raw ty.MI) *client.SearchResult {
	if rr, ok := raw["rawResponse"].(map[string]interface{}); ok {
		raw = ty.MI(rr)
	}

	result := &client.SearchResult{Records: []client.LogRecord{}}

	switch took := raw["took"].(type) {
	case float64:
		result.Took = int64(took)
	}
	result.TimedOut, _ = raw["timed_out"].(bool)
	if aggs, ok := raw["aggregations"].(map[string]interface{}); ok {
		result.Aggregations = ty.MI(aggs)
	}

	hits, ok := raw["hits"].(map[string]interface{})
	if !ok {
		return result
	}

	switch total := hits["total"].(type) {
	case float64:
		result.Total = int64(total)
	case map[string]interface{}:
		if v, ok := total["value"].(float64); ok {
			result.Total = int64(v)
		}
	}

	rawHits, _ := hits["hits"].([]interface{})
	for _, rh := range rawHits {
		hit, ok := rh.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hit["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		fields := ty.MI(source)
		record := client.LogRecord{
			Message: fields.GetString("message"),
			Level:   fields.GetString("level"),
			Fields:  fields,
		}
		if ts, ok := fields.GetStringOk("@timestamp"); ok {
			if date, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				record.Timestamp = date
			} else if date, err := time.Parse(ty.Format, ts); err == nil {
				record.Timestamp = date
			}
		}
		result.Records = append(result.Records, record)
	}
	return result
}

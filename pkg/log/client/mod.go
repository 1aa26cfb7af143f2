// Package client holds the canonical search types shared by the log
// backends. Backend adapters normalize their wire formats into these types
// at the client boundary so services never see raw responses.
package client

import (
	"time"

	"github.com/bascanada/loggate/pkg/ty"
)

// LogRecord is a single normalized log line.
type LogRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	Stream    string    `json:"stream,omitempty"`
	Fields    ty.MI     `json:"fields,omitempty"`
}

// SearchResult is the normalized outcome of a search.
type SearchResult struct {
	Total        int64       `json:"total"`
	Took         int64       `json:"took,omitempty"`
	Records      []LogRecord `json:"records"`
	Aggregations ty.MI       `json:"aggregations,omitempty"`
	TimedOut     bool        `json:"timedOut,omitempty"`
}

// Bucket is one aggregation bucket after normalization.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// BucketsFrom extracts terms-style buckets from a normalized aggregation.
func BucketsFrom(aggs ty.MI, name string) []Bucket {
	agg, ok := asMI(aggs[name])
	if !ok {
		return nil
	}
	raw, ok := agg["buckets"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]Bucket, 0, len(raw))
	for _, b := range raw {
		m, ok := asMI(b)
		if !ok {
			continue
		}
		bucket := Bucket{Key: m.GetString("key")}
		if keyAsString, ok := m.GetStringOk("key_as_string"); ok {
			bucket.Key = keyAsString
		}
		switch v := m["doc_count"].(type) {
		case float64:
			bucket.Count = int64(v)
		case int64:
			bucket.Count = v
		case int:
			bucket.Count = int64(v)
		}
		out = append(out, bucket)
	}
	return out
}

func asMI(v interface{}) (ty.MI, bool) {
	switch m := v.(type) {
	case ty.MI:
		return m, true
	case map[string]interface{}:
		return ty.MI(m), true
	default:
		return nil, false
	}
}

package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/errs"
	"github.com/bascanada/loggate/pkg/log/impl/kibana"
	"github.com/bascanada/loggate/pkg/sanitize"
	"github.com/bascanada/loggate/pkg/ty"
)

// IndexBackend is the slice of the Kibana client index management needs.
type IndexBackend interface {
	Searcher
	DiscoverIndexes(ctx context.Context) ([]string, error)
	CurrentIndex() string
	SetCurrentIndex(pattern string)
}

// IndexService manages index pattern discovery and selection.
type IndexService struct {
	backend IndexBackend
	logger  *zap.Logger
}

func NewIndexService(backend IndexBackend, logger *zap.Logger) *IndexService {
	return &IndexService{backend: backend, logger: logger.Named("index")}
}

// IndexDiscovery lists available index patterns plus the selected one.
type IndexDiscovery struct {
	Indexes      []string `json:"indexes"`
	CurrentIndex string   `json:"currentIndex,omitempty"`
	Count        int      `json:"count"`
	Message      string   `json:"message"`
}

func (s *IndexService) Discover(ctx context.Context) (*IndexDiscovery, error) {
	indexes, err := s.backend.DiscoverIndexes(ctx)
	if err != nil {
		return nil, err
	}
	return &IndexDiscovery{
		Indexes:      indexes,
		CurrentIndex: s.backend.CurrentIndex(),
		Count:        len(indexes),
		Message:      fmt.Sprintf("Discovered %d index patterns", len(indexes)),
	}, nil
}

// SetCurrent validates and selects the index pattern used by later
// searches.
func (s *IndexService) SetCurrent(pattern string) (string, error) {
	pattern, err := sanitize.IndexPattern(pattern)
	if err != nil {
		return "", err
	}
	s.backend.SetCurrentIndex(pattern)
	return pattern, nil
}

// Current returns the selected index pattern, empty when none is set.
func (s *IndexService) Current() string {
	return s.backend.CurrentIndex()
}

// IndexInfo carries basic statistics for one index pattern.
type IndexInfo struct {
	IndexPattern string `json:"indexPattern"`
	DocCount     int64  `json:"docCount"`
	Message      string `json:"message"`
}

// Info counts the documents behind an index pattern.
func (s *IndexService) Info(ctx context.Context, pattern string) (*IndexInfo, error) {
	pattern, err := sanitize.IndexPattern(pattern)
	if err != nil {
		return nil, err
	}

	result, err := s.backend.Search(ctx, kibana.SearchInput{
		Index: pattern,
		Query: ty.MI{"match_all": ty.MI{}},
		Size:  0,
	})
	if err != nil {
		s.logger.Error("index info failed", zap.String("index", pattern), zap.Error(err))
		return nil, &errs.BackendError{
			Backend: "kibana",
			Message: fmt.Sprintf("failed to get info for index %s: %v", pattern, err),
		}
	}

	return &IndexInfo{
		IndexPattern: pattern,
		DocCount:     result.Total,
		Message:      fmt.Sprintf("Index has %d documents", result.Total),
	}, nil
}

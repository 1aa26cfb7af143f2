package service

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/log/impl/kibana"
	"github.com/bascanada/loggate/pkg/ty"
)

// stackLineRes cover the stack trace line formats seen across the services
// feeding the clusters: Node.js, Python, JVM and a generic file:line.
var stackLineRes = []*regexp.Regexp{
	regexp.MustCompile(`at\s+[\w$.]+\s+\((.+):(\d+):\d+\)`),
	regexp.MustCompile(`at\s+(.+):(\d+):\d+`),
	regexp.MustCompile(`File "(.+)", line (\d+)`),
	regexp.MustCompile(`at\s+[\w$.]+\((.+):(\d+)\)`),
	regexp.MustCompile(`at\s+(.+):(\d+)`),
}

// CodeLocation points into a source file referenced by a log entry.
type CodeLocation struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Context string `json:"context,omitempty"`
}

// ExtractCodeLocations pulls file and line references from a log entry's
// stack trace or context fields.
func ExtractCodeLocations(fields ty.MI) []CodeLocation {
	var locations []CodeLocation

	if errField, ok := fields["error"].(map[string]interface{}); ok {
		if trace, ok := ty.MI(errField).GetStringOk("stack_trace"); ok {
			locations = append(locations, locationsFromStackTrace(trace)...)
		}
	} else if trace, ok := fields.GetStringOk("stack_trace"); ok {
		locations = append(locations, locationsFromStackTrace(trace)...)
	}

	if contextField, ok := fields["context"].(map[string]interface{}); ok {
		cm := ty.MI(contextField)
		if file, ok := cm.GetStringOk("file"); ok {
			locations = append(locations, CodeLocation{
				File: file,
				Line: cm.GetInt("line", 0),
			})
		}
	}

	return locations
}

func locationsFromStackTrace(trace string) []CodeLocation {
	var locations []CodeLocation
	for _, line := range strings.Split(trace, "\n") {
		if loc, ok := locationFromLine(line); ok {
			locations = append(locations, loc)
		}
	}
	return locations
}

func locationFromLine(line string) (CodeLocation, bool) {
	if line == "" {
		return CodeLocation{}, false
	}
	for _, re := range stackLineRes {
		if m := re.FindStringSubmatch(line); m != nil {
			num, _ := strconv.Atoi(m[2])
			return CodeLocation{File: m[1], Line: num}, true
		}
	}
	return CodeLocation{}, false
}

// CorrelationService links error messages to the code locations that
// produced them.
type CorrelationService struct {
	search Searcher
	logger *zap.Logger
}

func NewCorrelationService(search Searcher, logger *zap.Logger) *CorrelationService {
	return &CorrelationService{search: search, logger: logger.Named("correlate")}
}

// Correlation is the outcome of a code correlation.
type Correlation struct {
	ErrorMessage  string         `json:"errorMessage"`
	MatchingLogs  int            `json:"matchingLogs"`
	CodeLocations []CodeLocation `json:"codeLocations"`
}

// CorrelateWithCode searches for error logs matching the message and
// extracts code locations from their stack traces. When repoPath is given,
// a few lines of context around each location are read from disk.
func (s *CorrelationService) CorrelateWithCode(ctx context.Context, errorMessage, repoPath, index string) (*Correlation, error) {
	result, err := s.search.Search(ctx, kibana.SearchInput{
		Index: index,
		Query: ty.MI{
			"bool": ty.MI{
				"must": []ty.MI{
					{"match_phrase": ty.MI{"message": errorMessage}},
					{"terms": ty.MI{"level": []string{"error", "fatal", "critical"}}},
				},
			},
		},
		Size: 10,
	})
	if err != nil {
		return nil, err
	}

	var locations []CodeLocation
	for _, record := range result.Records {
		locations = append(locations, ExtractCodeLocations(record.Fields)...)
	}

	if repoPath != "" {
		for i := range locations {
			locations[i].Context = readContext(repoPath, locations[i].File, locations[i].Line)
		}
	}

	return &Correlation{
		ErrorMessage:  errorMessage,
		MatchingLogs:  len(result.Records),
		CodeLocations: locations,
	}, nil
}

// readContext returns three lines of source around the location, empty on
// any failure.
func readContext(repoPath, file string, line int) string {
	if file == "" || line <= 0 {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(repoPath, file))
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	start := line - 3
	if start < 0 {
		start = 0
	}
	end := line + 3
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

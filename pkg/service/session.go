package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/errs"
	"github.com/bascanada/loggate/pkg/log/impl/kibana"
	"github.com/bascanada/loggate/pkg/sanitize"
	"github.com/bascanada/loggate/pkg/ty"
)

// sessionIDRe matches the pipe-delimited payment log format:
// message:num | some_id | session_id | ...
var sessionIDRe = regexp.MustCompile(`message:\d+\s*\|\s*[^|]+\s*\|\s*([^|]+)\s*\|`)

// SessionService traces a payment session from its order ID by mining the
// payment start logs.
type SessionService struct {
	search Searcher
	logger *zap.Logger
}

func NewSessionService(search Searcher, logger *zap.Logger) *SessionService {
	return &SessionService{search: search, logger: logger.Named("session")}
}

// ExtractionAttempt records the outcome of parsing one log message.
type ExtractionAttempt struct {
	Message   string `json:"message,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SessionExtraction is a successful session lookup.
type SessionExtraction struct {
	OrderID       string              `json:"orderId"`
	SessionID     string              `json:"sessionId"`
	Status        string              `json:"status"`
	Attempts      []ExtractionAttempt `json:"extractionAttempts"`
	AllSessionIDs []string            `json:"allSessionIds"`
	LogsSearched  int                 `json:"logsSearched"`
	Message       string              `json:"message"`
}

// ExtractSessionID finds the session behind an order by searching for its
// payment start log and parsing the pipe-delimited message.
func (s *SessionService) ExtractSessionID(ctx context.Context, orderID string, maxLogs int) (*SessionExtraction, error) {
	orderID, err := sanitize.OrderID(orderID)
	if err != nil {
		return nil, err
	}
	if maxLogs <= 0 {
		maxLogs = 3
	}

	kql := fmt.Sprintf(`%s AND "callStartPayment"`, orderID)
	result, err := s.search.Search(ctx, kibana.SearchInput{
		Query: ty.MI{
			"query_string": ty.MI{
				"query":         kql,
				"default_field": "*",
			},
		},
		Size: maxLogs,
	})
	if err != nil {
		s.logger.Error("session search failed", zap.String("orderId", orderID), zap.Error(err))
		return nil, &errs.SessionNotFoundError{
			OrderID: orderID,
			Message: fmt.Sprintf("failed to search logs for order ID: %s", orderID),
			Hint:    err.Error(),
		}
	}

	if len(result.Records) == 0 {
		return nil, &errs.SessionNotFoundError{
			OrderID: orderID,
			Message: fmt.Sprintf("no logs found for order ID: %s", orderID),
			Hint:    "verify order ID and ensure logs exist",
		}
	}

	var attempts []ExtractionAttempt
	var found []string
	seen := map[string]bool{}

	for _, record := range result.Records {
		sessionID, status := extractSessionFromMessage(record.Message)
		attempts = append(attempts, ExtractionAttempt{
			Message:   sanitize.ForLogging(record.Message, 200),
			SessionID: sessionID,
			Status:    status,
			Timestamp: record.Fields.GetString(timestampField),
		})
		if sessionID != "" && !seen[sessionID] {
			seen[sessionID] = true
			found = append(found, sessionID)
		}
	}

	if len(found) == 0 {
		return nil, &errs.SessionNotFoundError{
			OrderID: orderID,
			Message: fmt.Sprintf("could not extract session ID from logs for order ID: %s", orderID),
			Hint:    "session ID pattern not found in log messages",
		}
	}

	return &SessionExtraction{
		OrderID:       orderID,
		SessionID:     found[0],
		Status:        "extracted",
		Attempts:      attempts,
		AllSessionIDs: found,
		LogsSearched:  len(result.Records),
		Message:       fmt.Sprintf("Session ID extracted successfully: %s", found[0]),
	}, nil
}

func extractSessionFromMessage(message string) (sessionID, status string) {
	if message == "" {
		return "", "empty_message"
	}
	m := sessionIDRe.FindStringSubmatch(message)
	if m == nil {
		return "", "pattern_not_found"
	}
	candidate := strings.TrimSpace(m[1])
	if _, err := sanitize.SessionID(candidate); err != nil {
		return "", "invalid_format"
	}
	return candidate, "extracted"
}

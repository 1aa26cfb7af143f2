package service

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/log/client"
	"github.com/bascanada/loggate/pkg/ty"
)

// Summarizer condenses a batch of log records into a short narrative.
type Summarizer interface {
	Summarize(ctx context.Context, records []client.LogRecord) (string, error)
}

// ExecSummarizer pipes records as JSON into an external command and reads
// the summary from its stdout.
type ExecSummarizer struct {
	command string
	args    []string
	timeout time.Duration
	logger  *zap.Logger
}

func NewExecSummarizer(command string, timeout time.Duration, logger *zap.Logger) (*ExecSummarizer, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("summarizer command is empty")
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &ExecSummarizer{
		command: parts[0],
		args:    parts[1:],
		timeout: timeout,
		logger:  logger.Named("summarize"),
	}, nil
}

func (s *ExecSummarizer) Summarize(ctx context.Context, records []client.LogRecord) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := ty.ToJSONString(records)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Stdin = strings.NewReader(payload)

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		s.logger.Error("summarizer command failed",
			zap.Error(err),
			zap.String("stderr", strings.TrimSpace(errOut.String())))
		return "", fmt.Errorf("summarizer failed: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}

// NoopSummarizer is used when no summarizer command is configured.
type NoopSummarizer struct{}

func (NoopSummarizer) Summarize(_ context.Context, records []client.LogRecord) (string, error) {
	return fmt.Sprintf("%d log records (no summarizer configured)", len(records)), nil
}

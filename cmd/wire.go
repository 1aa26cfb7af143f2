// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/auth"
	"github.com/bascanada/loggate/pkg/config"
	myhttp "github.com/bascanada/loggate/pkg/http"
	"github.com/bascanada/loggate/pkg/log/impl/kibana"
	"github.com/bascanada/loggate/pkg/log/impl/periscope"
	"github.com/bascanada/loggate/pkg/retry"
	"github.com/bascanada/loggate/pkg/server"
	"github.com/bascanada/loggate/pkg/service"
)

// app bundles everything the commands share: clients, services and the
// token store, built once from the configuration.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	tokens    *auth.Store
	overrides *config.Overrides
	kibana    *kibana.Client
	periscope *periscope.Client
	services  server.Services
}

// buildApp wires the backend clients and services. The periscope client is
// only built when a periscope URL is configured.
func buildApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	kibanaURL, err := cfg.RequireKibanaURL()
	if err != nil {
		return nil, err
	}

	tokens := auth.NewStore(logger)
	seedTokens(tokens)

	policy := retryPolicy(cfg)
	manager := myhttp.NewConnectionManager(true, cfg.KibanaTimeout())

	kibanaHTTP := myhttp.NewClient("kibana", kibanaURL, manager, myhttp.ClientOptions{
		VerifyTLS: &cfg.Kibana.VerifyTLS,
		Timeout:   cfg.KibanaTimeout(),
	}, logger)
	kibanaClient := kibana.NewClient(kibanaHTTP, tokens, policy, cfg.Kibana.Version, logger)
	if cfg.Kibana.DefaultIndex != "" {
		kibanaClient.SetCurrentIndex(cfg.Kibana.DefaultIndex)
	}

	var periscopeClient *periscope.Client
	if cfg.Periscope.URL != "" {
		periscopeHTTP := myhttp.NewClient("periscope", cfg.Periscope.URL, manager, myhttp.ClientOptions{
			VerifyTLS: &cfg.Periscope.VerifyTLS,
			Timeout:   cfg.PeriscopeTimeout(),
		}, logger)
		periscopeClient = periscope.NewClient(periscopeHTTP, tokens, policy,
			cfg.Periscope.Org, cfg.Periscope.DefaultStream, logger)
	}

	logService := service.NewLogService(kibanaClient, logger)
	if cfg.Summary.Command != "" {
		summarizer, err := service.NewExecSummarizer(cfg.Summary.Command,
			time.Duration(cfg.Summary.Timeout)*time.Second, logger)
		if err != nil {
			return nil, err
		}
		logService.SetSummarizer(summarizer)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		tokens:    tokens,
		overrides: config.NewOverrides(),
		kibana:    kibanaClient,
		periscope: periscopeClient,
		services: server.Services{
			Logs:      logService,
			Session:   service.NewSessionService(kibanaClient, logger),
			Index:     service.NewIndexService(kibanaClient, logger),
			Memory:    service.NewMemoryService(),
			Correlate: service.NewCorrelationService(kibanaClient, logger),
			Periscope: periscopeClient,
		},
	}, nil
}

// seedTokens loads credentials handed over through the environment so
// deployments can start authenticated without calling set_auth_token.
func seedTokens(tokens *auth.Store) {
	if token := os.Getenv("LOGGATE_KIBANA_TOKEN"); token != "" {
		_ = tokens.Set(auth.ContextKibana, token, 0)
	}
	if token := os.Getenv("LOGGATE_PERISCOPE_TOKEN"); token != "" {
		_ = tokens.Set(auth.ContextPeriscope, token, 0)
	}
}

// retryPolicy maps the retry section onto the backoff policy, keeping the
// default status classification.
func retryPolicy(cfg *config.Config) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.Retry.MaxRetries > 0 {
		policy.MaxRetries = cfg.Retry.MaxRetries
	}
	initial, max := cfg.RetryDurations()
	if initial > 0 {
		policy.InitialBackoff = initial
	}
	if max > 0 {
		policy.MaxBackoff = max
	}
	if cfg.Retry.Multiplier > 0 {
		policy.Multiplier = cfg.Retry.Multiplier
	}
	if cfg.Retry.Jitter > 0 {
		policy.JitterFactor = cfg.Retry.Jitter
	}
	return policy
}

// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/ratelimit"
	"github.com/bascanada/loggate/pkg/server"
)

var (
	port int
	host string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the loggate REST server",
	Long:  `Starts an HTTP server exposing log search, analysis and investigation endpoints.`,
	Run: func(_ *cobra.Command, _ []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal(err)
		}
		logger, err := buildLogger(cfg, false)
		if err != nil {
			fatal(err)
		}
		defer logger.Sync()

		a, err := buildApp(cfg, logger)
		if err != nil {
			fatal(err)
		}

		limiters, err := buildLimiters(cfg.RateLimit.Search, cfg.RateLimit.Auth, cfg.RateLimit.Config, logger)
		if err != nil {
			fatal(err)
		}

		if host == "" {
			host = cfg.Server.Host
		}
		if port == 0 {
			port = cfg.Server.Port
		}

		s := server.NewServer(host, port, a.services, a.tokens, a.overrides, limiters, logger)
		if err := s.Start(); err != nil {
			logger.Error("server failed", zap.Error(err))
			fatal(err)
		}
	},
}

func buildLimiters(search, authRate, configRate int, logger *zap.Logger) (server.Limiters, error) {
	searchLimiter, err := ratelimit.NewLimiter(search, time.Minute, logger)
	if err != nil {
		return server.Limiters{}, err
	}
	authLimiter, err := ratelimit.NewLimiter(authRate, time.Minute, logger)
	if err != nil {
		return server.Limiters{}, err
	}
	configLimiter, err := ratelimit.NewLimiter(configRate, time.Minute, logger)
	if err != nil {
		return server.Limiters{}, err
	}
	return server.Limiters{
		Search: searchLimiter,
		Auth:   authLimiter,
		Config: configLimiter,
	}, nil
}

func init() {
	serverCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	serverCmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	rootCmd.AddCommand(serverCmd)
}

// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/server"
	"github.com/bascanada/loggate/pkg/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long:  `Starts an MCP server exposing the log investigation operations as tools over stdio.`,
	Run: func(_ *cobra.Command, _ []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal(err)
		}
		// stdout carries the MCP protocol, logs must go to stderr.
		logger, err := buildLogger(cfg, true)
		if err != nil {
			fatal(err)
		}
		defer logger.Sync()

		a, err := buildApp(cfg, logger)
		if err != nil {
			fatal(err)
		}

		module, err := tools.New(tools.Deps{
			Logs:      a.services.Logs,
			Session:   a.services.Session,
			Index:     a.services.Index,
			Correlate: a.services.Correlate,
			Periscope: a.periscope,
			Tokens:    a.tokens,
		}, server.Version, logger)
		if err != nil {
			fatal(err)
		}

		mcpServer := mcpserver.NewMCPServer("loggate", server.Version)
		moduleTools := module.GetTools()
		for _, serverTool := range moduleTools {
			mcpServer.AddTool(serverTool.Tool, serverTool.Handler)
		}
		logger.Info("mcp server initialized", zap.Int("tools", len(moduleTools)))

		if err := mcpserver.ServeStdio(mcpServer); err != nil {
			logger.Error("mcp server failed", zap.Error(err))
			fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bascanada/loggate/pkg/auth"
	"github.com/bascanada/loggate/pkg/log/printer"
	"github.com/bascanada/loggate/pkg/service"
)

var (
	querySize      int
	queryLevels    []string
	queryIndex     string
	queryStartTime string
	queryEndTime   string
	queryToken     string
	queryJSON      bool
	queryFields    bool
	queryNoColor   bool
)

var queryCommand = &cobra.Command{
	Use:   "query [query text]",
	Short: "Run a one-shot log search and print the results",
	Long: `Runs a single search against the configured Kibana backend and prints
the matching log entries. The auth token comes from --token or the
LOGGATE_KIBANA_TOKEN environment variable.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal(err)
		}
		logger, err := buildLogger(cfg, true)
		if err != nil {
			fatal(err)
		}
		defer logger.Sync()

		a, err := buildApp(cfg, logger)
		if err != nil {
			fatal(err)
		}
		if queryToken != "" {
			if err := a.tokens.Set(auth.ContextKibana, queryToken, 0); err != nil {
				fatal(err)
			}
		}
		if !a.tokens.Has(auth.ContextKibana) {
			fatal(fmt.Errorf("no auth token: pass --token or set LOGGATE_KIBANA_TOKEN"))
		}

		result, err := a.services.Logs.SearchLogs(context.Background(), service.SearchLogsInput{
			Query:      strings.Join(args, " "),
			MaxResults: querySize,
			StartTime:  queryStartTime,
			EndTime:    queryEndTime,
			Levels:     queryLevels,
			Index:      queryIndex,
		})
		if err != nil {
			fatal(err)
		}

		var explicitColor *bool
		if queryNoColor {
			disabled := false
			explicitColor = &disabled
		}
		printer.InitColorState(explicitColor, os.Stdout)

		p := printer.New(os.Stdout, printer.Options{
			JSON:       queryJSON,
			ShowFields: queryFields,
		})
		if err := p.Print(result.Logs); err != nil {
			fatal(err)
		}
		if !queryJSON {
			fmt.Printf("\n%d of %d logs in %dms\n", len(result.Logs), result.Total, result.Took)
		}
	},
}

func init() {
	queryCommand.Flags().IntVarP(&querySize, "size", "s", 50, "Maximum number of entries to return")
	queryCommand.Flags().StringSliceVarP(&queryLevels, "level", "l", nil, "Log levels to include (repeatable)")
	queryCommand.Flags().StringVarP(&queryIndex, "index", "i", "", "Index pattern to search")
	queryCommand.Flags().StringVar(&queryStartTime, "from", "", "Start of time range (RFC3339 or relative like 24h)")
	queryCommand.Flags().StringVar(&queryEndTime, "to", "", "End of time range (RFC3339)")
	queryCommand.Flags().StringVar(&queryToken, "token", "", "Kibana auth token")
	queryCommand.Flags().BoolVar(&queryJSON, "json", false, "Print results as JSON")
	queryCommand.Flags().BoolVar(&queryFields, "fields", false, "Print record fields")
	queryCommand.Flags().BoolVar(&queryNoColor, "no-color", false, "Disable colored output")
	rootCmd.AddCommand(queryCommand)
}

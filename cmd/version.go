// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/bascanada/loggate/pkg/server"
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("loggate %s %s/%s\n", server.Version, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCommand)
}

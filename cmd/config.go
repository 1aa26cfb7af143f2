// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCommand = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  `Prints the configuration as loaded from the config file, environment and defaults, rendered as YAML.`,
	Run: func(_ *cobra.Command, _ []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal(err)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fatal(err)
		}
		fmt.Print(string(out))
	},
}

func init() {
	rootCmd.AddCommand(configCommand)
}

/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newsbrief/cmd/handlers"
	"newsbrief/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "newsbrief",
	Short: "Newsbrief generates personalized daily news briefings from your feeds.",
	Long: `Newsbrief clusters stories across your subscriptions, scores unread
stories against your classifiers and reading habits, and asks an LLM to
write a short personal briefing published back into a dedicated feed.

Run 'newsbrief sweep' from cron or as a daemon to generate briefings on
schedule, or 'newsbrief generate --user N' to generate one on demand.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.newsbrief.yaml)")

	rootCmd.AddCommand(handlers.NewSweepCmd())
	rootCmd.AddCommand(handlers.NewGenerateCmd())
	rootCmd.AddCommand(handlers.NewClusterCmd())
	rootCmd.AddCommand(handlers.NewMetricsCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if config.Get().App.ConfigFile != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", config.Get().App.ConfigFile)
	}
}

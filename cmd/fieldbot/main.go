// Command fieldbot runs the field-service report chat bot.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	schemaPath  string
	showDefault bool
)

var rootCmd = &cobra.Command{
	Use:   "fieldbot",
	Short: "Telegram wizard for pest-control intervention reports",
	Long: `fieldbot walks an operator through a short questionnaire in a Telegram chat,
collects a receipt photo and stores the report in the configured record and
object stores. Configuration is read from the environment.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start polling Telegram and serving the health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Check and print the effective questionnaire as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printFields(cmd.OutOrStdout())
	},
}

func init() {
	fieldsCmd.Flags().StringVar(&schemaPath, "schema", "", "YAML questionnaire (default: $SCHEMA_PATH or built-in)")
	fieldsCmd.Flags().BoolVar(&showDefault, "default", false, "Print the built-in questionnaire")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fieldsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

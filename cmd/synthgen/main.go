// Command synthgen runs the dataset generator on local files.
//
//	synthgen generate people.csv orders.xlsx --rows 500 --format csv --out ./out
//	synthgen inspect people.csv --output yaml
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datapoint/internal/logging"
)

func main() {
	// A .env file is optional; existing variables win.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:           "synthgen",
		Short:         "Fill, extend or truncate tabular datasets with synthetic rows",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupWriter(cmd.ErrOrStderr(), logLevel, logFormat)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", envOr("LOG_FORMAT", "text"), "log format: text or json")

	root.AddCommand(newGenerateCmd(), newInspectCmd())
	return root
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// errorf is fmt.Errorf with the file name prefixed.
func errorf(file, format string, args ...any) error {
	return fmt.Errorf("%s: "+format, append([]any{file}, args...)...)
}

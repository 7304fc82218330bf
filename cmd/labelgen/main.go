// Command labelgen converts shipping-remark CSV files into USPS label CSVs
// from the command line.
//
//	labelgen convert --in remarks.csv --out usps_output.csv
//	labelgen parse --handle jdoe "Jane Doe
//	123 Main St
//	Austin, TX 78701"
//	labelgen template --out usps_template.csv
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/shiplabel/internal/logging"
)

func main() {
	// .env is optional for the CLI; existing env vars win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	var logLevel, logFormat string

	rootCmd := &cobra.Command{
		Use:           "labelgen",
		Short:         "Generate USPS label CSVs from shipping remarks",
		Long:          `Extract US addresses from free-text shipping remarks and merge them into the 57-column USPS label template.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupWriter(cmd.ErrOrStderr(), logLevel, logFormat)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", envOr("LOG_FORMAT", "text"), "log format: text or json")

	rootCmd.AddCommand(createConvertCmd())
	rootCmd.AddCommand(createParseCmd())
	rootCmd.AddCommand(createTemplateCmd())

	return rootCmd
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

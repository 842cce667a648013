package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/devserver"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Local development helpers",
}

var devServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an in-memory orchestrator for the test data endpoints",
	Long: `Serve POST /testdata/upload, /testdata/by-url, /testdata/paste and
GET /testdata/{id} from memory. Bundles expire after --ttl and are lost on exit.

Point aqk at it with --base-url http://<addr>.`,
	Args: cobra.NoArgs,
	RunE: runDevServe,
}

var (
	flagDevAddr  string
	flagDevToken string
	flagDevTTL   time.Duration
)

func init() {
	devServeCmd.Flags().StringVar(&flagDevAddr, "addr", "127.0.0.1:8000", "Listen address")
	devServeCmd.Flags().StringVar(&flagDevToken, "require-token", "", "Require this bearer token on every request")
	devServeCmd.Flags().DurationVar(&flagDevTTL, "ttl", devserver.DefaultTTL, "Bundle lifetime")
	devCmd.AddCommand(devServeCmd)
	rootCmd.AddCommand(devCmd)
}

func runDevServe(cmd *cobra.Command, _ []string) error {
	log := commandLogger()
	srv := devserver.New(devserver.Options{
		Token:  flagDevToken,
		TTL:    flagDevTTL,
		Logger: log,
	})
	printOK("", "dev orchestrator on http://"+flagDevAddr)
	if flagDevToken != "" {
		printInfo("", "bearer token required")
	}
	return srv.ListenAndServe(cmd.Context(), flagDevAddr)
}

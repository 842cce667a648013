package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/config"
	"github.com/talentinsight/ai-quality-kit-sub003/internal/kvstore"
	"github.com/talentinsight/ai-quality-kit-sub003/internal/logging"
	"github.com/talentinsight/ai-quality-kit-sub003/internal/testdata"
)

var rootCmd = &cobra.Command{
	Use:           "aqk",
	Short:         "AI Quality Kit operator console",
	SilenceUsage:  true, // don't print usage on operational errors
	SilenceErrors: true, // Execute prints them once
	Long: `aqk ingests test data bundles into the AI Quality Kit orchestrator,
checks them, and prepares the test selection for a run.

Settings come from flags, the environment, ~/.aqk/.env and ~/.aqk/aqk.yaml,
in that order.`,
}

var (
	flagBaseURL   string
	flagToken     string
	flagTimeout   time.Duration
	flagLogLevel  string
	flagLogFormat string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBaseURL, "base-url", "", "Orchestrator base URL (env "+config.EnvBaseURL+")")
	pf.StringVar(&flagToken, "token", "", "Bearer token (env "+config.EnvToken+")")
	pf.DurationVar(&flagTimeout, "timeout", 0, "Per-request timeout (env "+config.EnvTimeout+")")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (env "+config.EnvLogLevel+")")
	pf.StringVar(&flagLogFormat, "log-format", "text", "Log format: text or json")
}

// errReported marks a failure that has already been shown to the operator.
var errReported = errors.New("reported")

// Execute is called by main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// session is what a command needs to talk to the orchestrator.
type session struct {
	settings *config.Settings
	log      *slog.Logger
	store    kvstore.Store
}

func resolve() (*config.Settings, *slog.Logger, error) {
	settings, err := config.Resolve(config.Overrides{
		BaseURL:  flagBaseURL,
		Token:    flagToken,
		Timeout:  flagTimeout,
		LogLevel: flagLogLevel,
	})
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(logging.Options{Level: settings.LogLevel, Format: flagLogFormat})
	if err != nil {
		return nil, nil, err
	}
	return settings, log, nil
}

// commandLogger returns the configured logger for commands that work
// offline, or a discarding one when settings cannot be resolved.
func commandLogger() *slog.Logger {
	_, log, err := resolve()
	if err != nil {
		return logging.Discard()
	}
	return log
}

// openSession resolves settings and opens the local state file.
func openSession() (*session, error) {
	settings, log, err := resolve()
	if err != nil {
		return nil, err
	}
	store, err := kvstore.NewFileStore(settings.StateFile)
	if err != nil {
		return nil, err
	}
	log.Debug("session ready",
		"base_url", settings.BaseURL,
		"timeout", settings.Timeout,
		"state_file", settings.StateFile,
		"token_present", settings.Token != "")
	return &session{settings: settings, log: log, store: store}, nil
}

func (s *session) client() (*testdata.Client, error) {
	return testdata.NewClient(testdata.ClientConfig{
		BaseURL:   s.settings.BaseURL,
		Token:     s.settings.Token,
		Timeout:   s.settings.Timeout,
		Logger:    s.log,
		UserAgent: userAgent(),
	})
}

func (s *session) manager() (*testdata.Manager, error) {
	c, err := s.client()
	if err != nil {
		return nil, err
	}
	return testdata.NewManager(c, s.store, s.log), nil
}

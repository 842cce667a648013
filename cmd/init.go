package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default aqk configuration",
	Long: `Create ~/.aqk/ with a default aqk.yaml and a .env template.

Existing files are left untouched. Put the bearer token in ~/.aqk/.env
(AQK_TOKEN=...) rather than in aqk.yaml.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var flagInitBaseURL string

func init() {
	initCmd.Flags().StringVar(&flagInitBaseURL, "orchestrator", "", "Orchestrator base URL to write into aqk.yaml")
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	// ── 1. Resolve ~/.aqk directory ───────────────────────────────────────────
	aqkDir, err := config.AqkDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(aqkDir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", aqkDir, err)
	}
	printOK("", fmt.Sprintf("aqk directory ready: %s", aqkDir))

	// ── 2. Write aqk.yaml if missing ──────────────────────────────────────────
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		cfg := config.DefaultConfig()
		if flagInitBaseURL != "" {
			cfg.BaseURL = flagInitBaseURL
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else if err != nil {
		return fmt.Errorf("cannot stat %s: %w", cfgPath, err)
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}

	// ── 3. Write .env template if missing ─────────────────────────────────────
	created, err := config.EnsureDotEnvTemplate()
	if err != nil {
		return err
	}
	envPath, _ := config.DotEnvPath()
	if created {
		printOK("", fmt.Sprintf("Env template written: %s", envPath))
	} else {
		printSkip("", fmt.Sprintf("Env file already exists: %s", envPath))
	}

	// ── 4. Validate the result ────────────────────────────────────────────────
	if _, err := config.Load(); err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  Next: set AQK_TOKEN in the env file, then run 'aqk doctor'.")
	return nil
}

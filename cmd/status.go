package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/kvstore"
	"github.com/talentinsight/ai-quality-kit-sub003/internal/selection"
	"github.com/talentinsight/ai-quality-kit-sub003/internal/wizard"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective settings and what the next run would use",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var flagStatusCheck bool

func init() {
	statusCmd.Flags().BoolVar(&flagStatusCheck, "check", false, "Also validate the last ingested bundle against the orchestrator")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return fmt.Errorf("cannot load settings: %w\nRun 'aqk init' first.", err)
	}

	fmt.Fprintln(stdout, "=== Settings ===")
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  orchestrator\t%s\n", s.settings.BaseURL)
	fmt.Fprintf(tw, "  timeout\t%s\n", s.settings.Timeout)
	fmt.Fprintf(tw, "  token\t%s\n", presence(s.settings.Token != ""))
	fmt.Fprintf(tw, "  state file\t%s\n", s.settings.StateFile)
	_ = tw.Flush()

	fmt.Fprintln(stdout, "\n=== Next run ===")
	last, _, err := s.store.Get(kvstore.KeyLastTestdataID)
	if err != nil {
		printErr("", err.Error())
	} else if last == "" {
		printMiss("", "no test data ingested yet")
	} else {
		printInfo("", "last test data id: "+last)
	}

	cfg, err := wizard.NewHolder(s.store, s.log).Load()
	if err != nil {
		printErr("", "wizard: "+err.Error())
	} else {
		norm := selection.Normalize(cfg.Suites)
		printInfo("", fmt.Sprintf("target %s, %s/%s, %d tests selected",
			cfg.TargetMode, cfg.Provider, cfg.Model, norm.Count()))
	}

	if !flagStatusCheck || last == "" {
		return nil
	}
	m, err := s.manager()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "\n=== Bundle ===")
	_, err = m.Validate(cmd.Context(), last)
	printNotice(m.State().Notice)
	if err != nil {
		fmt.Fprintln(stderr, "     Ingest the data again with 'aqk testdata upload|url|paste'.")
	}
	return reported(err)
}

func presence(ok bool) string {
	if ok {
		return "set"
	}
	return "not set"
}

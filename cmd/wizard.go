package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/wizard"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Prepare a run: target, model, test data and selection",
	Long: `The wizard keeps the answers for the next run in ~/.aqk/state.json.
'aqk wizard plan' prints the run request they produce.`,
}

var wizardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved wizard answers",
	Args:  cobra.NoArgs,
	RunE:  runWizardShow,
}

var wizardSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set one wizard field",
	Long: `Set one wizard field. Fields: ` + strings.Join(wizard.Fields, ", ") + `,
and threshold.<metric> (0..1, empty to clear).`,
	Example: `  aqk wizard set target_mode mcp
  aqk wizard set suites "red_team=prompt_injection safety=toxicity"
  aqk wizard set threshold.rag.faithfulness 0.8`,
	Args: cobra.ExactArgs(2),
	RunE: runWizardSet,
}

var wizardResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the saved wizard answers",
	Args:  cobra.NoArgs,
	RunE:  runWizardReset,
}

var wizardPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the run request built from the wizard answers",
	Args:  cobra.NoArgs,
	RunE:  runWizardPlan,
}

func init() {
	wizardCmd.AddCommand(wizardShowCmd, wizardSetCmd, wizardResetCmd, wizardPlanCmd)
	rootCmd.AddCommand(wizardCmd)
}

func openHolder() (*wizard.Holder, error) {
	s, err := openSession()
	if err != nil {
		return nil, err
	}
	return wizard.NewHolder(s.store, s.log), nil
}

func printWizard(cfg wizard.Config) {
	printInfo("target_mode", cfg.TargetMode)
	if cfg.BaseURL != "" {
		printInfo("base_url", cfg.BaseURL)
	} else {
		printSkip("base_url", "not set")
	}
	printInfo("provider", cfg.Provider)
	printInfo("model", cfg.Model)
	printInfo("ground_truth", strconv.FormatBool(cfg.GroundTruth))
	if cfg.TestdataID != "" {
		printInfo("testdata_id", cfg.TestdataID)
	} else {
		printSkip("testdata_id", "not set, the last ingested bundle is used")
	}
	printBullet("Selection:")
	printSelection(cfg.Suites)
	if keys := cfg.ThresholdKeys(); len(keys) > 0 {
		printBullet("Thresholds:")
		for _, k := range keys {
			printInfo(k, strconv.FormatFloat(cfg.Thresholds[k], 'f', -1, 64))
		}
	}
}

func runWizardShow(_ *cobra.Command, _ []string) error {
	h, err := openHolder()
	if err != nil {
		return err
	}
	cfg, err := h.Load()
	if err != nil {
		return err
	}
	printSection("Wizard")
	printWizard(cfg)
	return nil
}

func runWizardSet(_ *cobra.Command, args []string) error {
	h, err := openHolder()
	if err != nil {
		return err
	}
	if _, err := h.Set(args[0], args[1]); err != nil {
		return err
	}
	printOK(args[0], "saved")
	return nil
}

func runWizardReset(_ *cobra.Command, _ []string) error {
	h, err := openHolder()
	if err != nil {
		return err
	}
	if err := h.Reset(); err != nil {
		return err
	}
	printOK("", "wizard answers cleared")
	return nil
}

func runWizardPlan(_ *cobra.Command, _ []string) error {
	h, err := openHolder()
	if err != nil {
		return err
	}
	plan, report, err := h.Plan()
	if err != nil {
		return err
	}
	for suite, ids := range report.UnknownTests {
		printErr(suite, "unknown test ids dropped from the plan: "+strings.Join(ids, ", "))
	}
	if plan.TestdataID == "" {
		return fmt.Errorf("no test data: ingest a bundle or set testdata_id")
	}
	return printJSON(plan)
}

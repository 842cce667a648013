package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/selection"
)

var selectionCmd = &cobra.Command{
	Use:     "selection",
	Aliases: []string{"sel"},
	Short:   "Convert and normalize test selections",
	Long: `Work with test selections: suite buckets of test ids on one side, canonical
metric keys such as rag.faithfulness on the other.

Selections are written as suite=test1,test2 arguments, e.g.
  red_team=prompt_injection,jailbreak_attempts safety=toxicity`,
}

var selectionCatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List every known test id and its metric key",
	Args:  cobra.NoArgs,
	RunE:  runSelectionCatalog,
}

var selectionMetricsCmd = &cobra.Command{
	Use:   "metrics suite=ids...",
	Short: "Turn a suite selection into metric keys",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSelectionMetrics,
}

var selectionTestsCmd = &cobra.Command{
	Use:   "tests metric[,metric]...",
	Short: "Turn metric keys back into a suite selection",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSelectionTests,
}

var selectionNormalizeCmd = &cobra.Command{
	Use:   "normalize suite=ids...",
	Short: "Collapse duplicate metrics and rebucket test ids",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSelectionNormalize,
}

var selectionDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Show the default RAG run selection",
	Args:  cobra.NoArgs,
	RunE:  runSelectionDefaults,
}

var (
	flagSelectionJSON bool
	flagGroundTruth   bool
)

func init() {
	for _, c := range []*cobra.Command{selectionMetricsCmd, selectionTestsCmd, selectionNormalizeCmd, selectionDefaultsCmd} {
		c.Flags().BoolVar(&flagSelectionJSON, "json", false, "Print JSON instead of text")
	}
	selectionDefaultsCmd.Flags().BoolVar(&flagGroundTruth, "ground-truth", false, "The QA set carries expected answers")

	selectionCmd.AddCommand(selectionCatalogCmd, selectionMetricsCmd, selectionTestsCmd,
		selectionNormalizeCmd, selectionDefaultsCmd)
	rootCmd.AddCommand(selectionCmd)
}

// reportDrift logs what a conversion dropped, and prints it unless the
// output is JSON.
func reportDrift(r selection.Report) {
	if r.Clean() {
		return
	}
	log := commandLogger()
	show := !flagSelectionJSON
	for _, suite := range sortedKeys(r.UnknownTests) {
		ids := r.UnknownTests[suite]
		log.Warn("unknown test ids dropped", "suite", suite, "tests", ids)
		if show {
			printWarn(suite, "unknown test ids dropped: "+strings.Join(ids, ", "))
		}
	}
	if len(r.UnknownMetrics) > 0 {
		log.Warn("unknown metric keys dropped", "metrics", r.UnknownMetrics)
		if show {
			printWarn("", "unknown metric keys dropped: "+strings.Join(r.UnknownMetrics, ", "))
		}
	}
	if len(r.Duplicates) > 0 {
		log.Info("duplicate metrics collapsed", "metrics", r.Duplicates)
		if show {
			printInfo("", "selected more than once: "+strings.Join(r.Duplicates, ", "))
		}
	}
}

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(b))
	return nil
}

func printSelection(sel selection.Selection) {
	for _, suite := range selection.Suites {
		ids := sel[suite]
		if len(ids) == 0 {
			printSkip(selection.SuiteLabel(suite), "none")
			continue
		}
		printOK(selection.SuiteLabel(suite), strings.Join(ids, ", "))
	}
}

func printMetrics(metrics []string) {
	for _, m := range metrics {
		fmt.Fprintln(stdout, m)
	}
}

func runSelectionCatalog(_ *cobra.Command, _ []string) error {
	current := ""
	for _, e := range selection.Catalog() {
		if e.Suite != current {
			current = e.Suite
			printBullet(selection.SuiteLabel(e.Suite) + " (" + e.Suite + ")")
		}
		printInfo("", fmt.Sprintf("%-24s %s", e.TestID, e.Metric))
	}
	return nil
}

func runSelectionMetrics(_ *cobra.Command, args []string) error {
	sel, err := selection.ParseSuiteArgs(args)
	if err != nil {
		return err
	}
	reportDrift(selection.Inspect(sel))
	metrics := selection.ToMetrics(sel)
	if flagSelectionJSON {
		return printJSON(metrics)
	}
	printMetrics(metrics)
	return nil
}

func runSelectionTests(_ *cobra.Command, args []string) error {
	metrics := selection.SplitMetrics(args)
	reportDrift(selection.InspectMetrics(metrics))
	sel := selection.FromMetrics(metrics)
	if flagSelectionJSON {
		return printJSON(sel)
	}
	printSelection(sel)
	return nil
}

func runSelectionNormalize(_ *cobra.Command, args []string) error {
	sel, err := selection.ParseSuiteArgs(args)
	if err != nil {
		return err
	}
	reportDrift(selection.Inspect(sel))
	norm := selection.Normalize(sel)
	if flagSelectionJSON {
		return printJSON(norm)
	}
	printSelection(norm)
	return nil
}

func runSelectionDefaults(_ *cobra.Command, _ []string) error {
	metrics := selection.DefaultRAGSelection(flagGroundTruth)
	if flagSelectionJSON {
		return printJSON(metrics)
	}
	printMetrics(metrics)
	return nil
}

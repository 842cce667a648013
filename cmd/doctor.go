package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/config"
	"github.com/talentinsight/ai-quality-kit-sub003/internal/kvstore"
	"github.com/talentinsight/ai-quality-kit-sub003/internal/testdata"
	"github.com/talentinsight/ai-quality-kit-sub003/internal/wizard"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that aqk's configuration, local state and orchestrator connection
are usable. Run this command when something seems wrong.`,
	RunE: runDoctor,
}

var doctorFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Automatically fix detected issues",
	Long: `Fix detected issues in the local aqk environment.

Currently fixes:
  - Unreadable state file: moves it aside as state.json.corrupt-<time>

Run 'aqk doctor' first to see what will be fixed.`,
	RunE: runDoctorFix,
}

var flagDoctorOffline bool

func init() {
	doctorCmd.Flags().BoolVar(&flagDoctorOffline, "offline", false, "Skip the orchestrator connectivity check")
	doctorCmd.AddCommand(doctorFixCmd)
	rootCmd.AddCommand(doctorCmd)
}

func runDoctorFix(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	printSection("aqk doctor fix")

	fmt.Fprintln(stdout, "\n[ State file ]")
	fs, ok := s.store.(*kvstore.FileStore)
	if !ok {
		printSkip("", "state is not file backed")
		return nil
	}
	moved, err := fs.Quarantine(time.Now())
	if err != nil {
		printErr("", err.Error())
		return errReported
	}
	if moved == "" {
		printOK("", "state file is readable, nothing to fix")
		return nil
	}
	printOK("", fmt.Sprintf("moved unreadable state to %s", moved))
	return nil
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("aqk doctor")
	fmt.Fprintln(stdout)

	// ── Check 1: aqk.yaml ─────────────────────────────────────────────────────
	fmt.Fprintln(stdout, "[ aqk.yaml ]")
	cfgPath, err := config.ConfigPath()
	if err != nil {
		failD("cannot determine home directory: %v", err)
	} else if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		printWarn("", fmt.Sprintf("%s not found, using defaults (run 'aqk init')", cfgPath))
	} else if _, err := config.Load(); err != nil {
		failD("%v", err)
	} else {
		printOK("", fmt.Sprintf("valid YAML: %s", cfgPath))
	}
	fmt.Fprintln(stdout)

	// ── Check 2: effective settings ───────────────────────────────────────────
	fmt.Fprintln(stdout, "[ Settings ]")
	s, err := openSession()
	if err != nil {
		failD("%v", err)
		fmt.Fprintln(stdout)
		return doctorSummary(false)
	}
	printOK("", "orchestrator: "+s.settings.BaseURL)
	printOK("", "timeout: "+s.settings.Timeout.String())
	if s.settings.Token == "" {
		printWarn("", "no bearer token set ("+config.EnvToken+"); protected endpoints will answer 401")
	} else {
		printOK("", "bearer token present")
	}
	fmt.Fprintln(stdout)

	// ── Check 3: local state ──────────────────────────────────────────────────
	fmt.Fprintln(stdout, "[ Local state ]")
	if fs, ok := s.store.(*kvstore.FileStore); ok {
		if err := fs.Verify(); err != nil {
			failD("%v (run 'aqk doctor fix')", err)
		} else {
			printOK("", "state file readable: "+fs.Path())
		}
	}
	if last, ok, err := s.store.Get(kvstore.KeyLastTestdataID); err == nil && ok {
		printInfo("", "last test data id: "+last)
	}
	if _, err := wizard.NewHolder(s.store, s.log).Load(); err != nil {
		failD("wizard config: %v (run 'aqk wizard reset')", err)
	} else {
		printOK("", "wizard config readable")
	}
	fmt.Fprintln(stdout)

	// ── Check 4: orchestrator ─────────────────────────────────────────────────
	fmt.Fprintln(stdout, "[ Orchestrator ]")
	if flagDoctorOffline {
		printSkip("", "skipped (--offline)")
	} else if err := probeOrchestrator(cmd.Context(), s); err != nil {
		failD("%s", err)
	} else {
		printOK("", "reachable, token accepted")
	}
	fmt.Fprintln(stdout)

	return doctorSummary(allOK)
}

// probeOrchestrator asks for a bundle that cannot exist. A 404 proves the
// server is reachable and accepted the credentials.
func probeOrchestrator(ctx context.Context, s *session) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()

	_, err = c.Meta(ctx, "doctor-"+uuid.NewString())
	switch testdata.KindOf(err) {
	case testdata.NotFound, testdata.Expired:
		return nil
	case 0:
		if err == nil {
			return nil
		}
	}
	return errors.New(testdata.Message(err))
}

func doctorSummary(allOK bool) error {
	fmt.Fprintln(stdout, "===================")
	if allOK {
		fmt.Fprintln(stdout, "✓  All checks passed. aqk is ready to use.")
		return nil
	}
	fmt.Fprintln(stderr, "✗  One or more checks failed. See details above.")
	return fmt.Errorf("doctor found issues")
}

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/testdata"
)

// ── Unified output helpers ────────────────────────────────────────────────────
// All commands use these functions to ensure consistent icon usage and
// indentation throughout aqk's output.
//
// Icon semantics:
//   ✓  success / healthy
//   ✗  error / failure          (written to stderr)
//   ⚠  warning
//   ○  skipped / not applicable
//   -  not found / absent
//   ~  neutral info / state change

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// printSection prints a top-level section header, e.g. "=== Test data ===".
func printSection(title string) {
	fmt.Fprintf(stdout, "\n=== %s ===\n", title)
}

// printBullet prints a grouped-section bullet, e.g. "● Artifacts:".
func printBullet(title string) {
	fmt.Fprintf(stdout, "\n● %s\n", title)
}

func line(w io.Writer, icon, name, msg string) {
	if name == "" {
		fmt.Fprintf(w, "  %s  %s\n", icon, msg)
	} else {
		fmt.Fprintf(w, "  %s  [%s] %s\n", icon, name, msg)
	}
}

// printOK prints a success line.
//
//	name = "" → "  ✓  msg"
//	name set  → "  ✓  [name] msg"
func printOK(name, msg string) { line(stdout, "✓", name, msg) }

// printErr prints an error line to stderr.
func printErr(name, msg string) { line(stderr, "✗", name, msg) }

// printWarn prints a warning line.
func printWarn(name, msg string) { line(stdout, "⚠", name, msg) }

// printSkip prints a skipped / not-applicable line.
func printSkip(name, msg string) { line(stdout, "○", name, msg) }

// printMiss prints a not-found / absent line.
func printMiss(name, msg string) { line(stdout, "-", name, msg) }

// printInfo prints a neutral informational / state-change line.
func printInfo(name, msg string) { line(stdout, "~", name, msg) }

// printNotice renders the Manager's notification with the matching icon.
func printNotice(n testdata.Notice) {
	switch n.Level {
	case testdata.LevelSuccess:
		printOK("", n.Text)
	case testdata.LevelError:
		printErr("", n.Text)
	case testdata.LevelInfo:
		printInfo("", n.Text)
	}
}

// printState renders what the intake panel shows: the notice, then the last
// ingestion result and the displayed metadata when present.
func printState(st testdata.State) {
	printNotice(st.Notice)
	if st.Result != nil {
		printBullet(fmt.Sprintf("Bundle %s:", st.Result.TestdataID))
		for _, s := range testdata.FormatCounts(st.Result) {
			printOK("", s)
		}
	}
	if st.Meta != nil {
		printBundle(st.Meta)
	}
}

func printBundle(b *testdata.Bundle) {
	printBullet(fmt.Sprintf("Bundle %s metadata:", b.TestdataID))
	if !b.CreatedAt.IsZero() {
		printInfo("", "created "+b.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if !b.ExpiresAt.IsZero() {
		printInfo("", "expires "+b.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	}
	for i, s := range testdata.DescribeArtifacts(b) {
		if b.Artifacts[testdata.AllArtifacts[i]].Present {
			printOK("", s)
		} else {
			printMiss("", s)
		}
	}
}

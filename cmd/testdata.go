package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/testdata"
)

var testdataCmd = &cobra.Command{
	Use:     "testdata",
	Aliases: []string{"td"},
	Short:   "Ingest and inspect test data bundles",
	Long: `Ingest passages, QA sets, attacks and output schemas into a server-side
bundle, then check the bundle before a run.

A bundle is identified by its testdata_id and expires after its TTL. The id of
the last successful ingestion is remembered and used when 'show' gets no id.`,
}

var testdataUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload artifact files",
	Example: `  aqk testdata upload --passages passages.jsonl --qaset qaset.jsonl
  aqk testdata upload --attacks attacks.txt --check --validate`,
	Args: cobra.NoArgs,
	RunE: runTestdataUpload,
}

var testdataURLCmd = &cobra.Command{
	Use:     "url",
	Short:   "Let the orchestrator fetch artifacts from URLs",
	Example: `  aqk testdata url --passages https://example.com/passages.jsonl`,
	Args:    cobra.NoArgs,
	RunE:    runTestdataURL,
}

var testdataPasteCmd = &cobra.Command{
	Use:   "paste",
	Short: "Send artifact content inline",
	Long: `Send artifact content inline. A value of "-" reads standard input and a
value starting with "@" reads the named file.`,
	Example: `  aqk testdata paste --qaset '{"qid":"1","question":"What?","expected_answer":"Answer"}'
  cat attacks.txt | aqk testdata paste --attacks -`,
	Args: cobra.NoArgs,
	RunE: runTestdataPaste,
}

var testdataShowCmd = &cobra.Command{
	Use:   "show [testdata-id]",
	Short: "Validate a bundle and show its metadata",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTestdataShow,
}

var testdataLastCmd = &cobra.Command{
	Use:   "last",
	Short: "Print the id of the last ingested bundle",
	Args:  cobra.NoArgs,
	RunE:  runTestdataLast,
}

var testdataLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check artifact files locally without sending them",
	Args:  cobra.NoArgs,
	RunE:  runTestdataLint,
}

var (
	uploadFlags = map[testdata.Artifact]*string{}
	urlFlags    = map[testdata.Artifact]*string{}
	pasteFlags  = map[testdata.Artifact]*string{}
	lintFlags   = map[testdata.Artifact]*string{}

	flagUploadCheck    bool
	flagUploadValidate bool
)

func init() {
	for _, a := range testdata.AllArtifacts {
		uploadFlags[a] = testdataUploadCmd.Flags().String(string(a), "", fmt.Sprintf("Path to the %s file", a))
		urlFlags[a] = testdataURLCmd.Flags().String(string(a), "", fmt.Sprintf("URL of the %s artifact", a))
		pasteFlags[a] = testdataPasteCmd.Flags().String(string(a), "", fmt.Sprintf("Inline %s content, - for stdin, @file", a))
		lintFlags[a] = testdataLintCmd.Flags().String(string(a), "", fmt.Sprintf("Path to the %s file", a))
	}
	testdataUploadCmd.Flags().BoolVar(&flagUploadCheck, "check", false, "Lint files locally and stop on problems before uploading")
	testdataUploadCmd.Flags().BoolVar(&flagUploadValidate, "validate", false, "Fetch the bundle metadata after a successful upload")

	testdataCmd.AddCommand(testdataUploadCmd, testdataURLCmd, testdataPasteCmd,
		testdataShowCmd, testdataLastCmd, testdataLintCmd)
	rootCmd.AddCommand(testdataCmd)
}

// flagValues returns the non-empty flag values keyed by artifact.
func flagValues(flags map[testdata.Artifact]*string) map[testdata.Artifact]string {
	out := map[testdata.Artifact]string{}
	for a, v := range flags {
		if v != nil && strings.TrimSpace(*v) != "" {
			out[a] = *v
		}
	}
	return out
}

func readFiles(paths map[testdata.Artifact]string) (map[testdata.Artifact]testdata.File, error) {
	files := make(map[testdata.Artifact]testdata.File, len(paths))
	for a, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
		files[a] = testdata.File{Name: filepath.Base(p), Data: data}
	}
	return files, nil
}

// pasteValue resolves "-" and "@file" paste values.
func pasteValue(v string, stdin io.Reader) (string, error) {
	switch {
	case v == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("cannot read stdin: %w", err)
		}
		return string(b), nil
	case strings.HasPrefix(v, "@"):
		b, err := os.ReadFile(v[1:])
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return v, nil
}

// lintFiles prints lint results and reports whether all files passed.
func lintFiles(files map[testdata.Artifact]testdata.File) bool {
	ok := true
	for _, a := range testdata.AllArtifacts {
		f, present := files[a]
		if !present {
			continue
		}
		res := testdata.Lint(a, f.Data)
		if res.OK() {
			printOK(string(a), fmt.Sprintf("%s: %d %s", f.Name, res.Count, plural(res.Count, "record", "records")))
			continue
		}
		ok = false
		for _, p := range res.Problems {
			printErr(string(a), fmt.Sprintf("%s: %s", f.Name, p))
		}
	}
	return ok
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func runTestdataUpload(cmd *cobra.Command, _ []string) error {
	files, err := readFiles(flagValues(uploadFlags))
	if err != nil {
		return err
	}
	if flagUploadCheck && len(files) > 0 {
		printSection("Lint")
		if !lintFiles(files) {
			return fmt.Errorf("lint failed, nothing uploaded")
		}
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	m, err := s.manager()
	if err != nil {
		return err
	}

	printSection("Upload")
	res, err := m.Upload(cmd.Context(), files)
	if err == nil && flagUploadValidate {
		_, err = m.Validate(cmd.Context(), res.TestdataID)
	}
	printState(m.State())
	return reported(err)
}

func runTestdataURL(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	m, err := s.manager()
	if err != nil {
		return err
	}
	printSection("URL ingest")
	_, err = m.IngestURLs(cmd.Context(), flagValues(urlFlags))
	printState(m.State())
	return reported(err)
}

func runTestdataPaste(cmd *cobra.Command, _ []string) error {
	texts := map[testdata.Artifact]string{}
	for a, v := range flagValues(pasteFlags) {
		text, err := pasteValue(v, cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("%s: %w", a, err)
		}
		texts[a] = text
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	m, err := s.manager()
	if err != nil {
		return err
	}
	printSection("Paste")
	_, err = m.Paste(cmd.Context(), texts)
	printState(m.State())
	return reported(err)
}

func runTestdataShow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	m, err := s.manager()
	if err != nil {
		return err
	}
	id := m.LastID()
	if len(args) == 1 {
		id = args[0]
	}
	if strings.TrimSpace(id) == "" {
		printMiss("", "no test data id given and none ingested yet")
		return nil
	}

	printSection("Test data " + id)
	_, err = m.Validate(cmd.Context(), id)
	printState(m.State())
	return reported(err)
}

func runTestdataLast(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	m, err := s.manager()
	if err != nil {
		return err
	}
	id := m.LastID()
	if id == "" {
		printMiss("", "no test data ingested yet")
		return nil
	}
	fmt.Fprintln(stdout, id)
	return nil
}

func runTestdataLint(_ *cobra.Command, _ []string) error {
	paths := flagValues(lintFlags)
	if len(paths) == 0 {
		return fmt.Errorf("nothing to lint: pass at least one of --passages, --qaset, --attacks, --schema")
	}
	files, err := readFiles(paths)
	if err != nil {
		return err
	}
	printSection("Lint")
	if !lintFiles(files) {
		return errReported
	}
	return nil
}

// reported turns an error already rendered through the Manager's notice into
// errReported so Execute does not print it twice.
func reported(err error) error {
	if err == nil {
		return nil
	}
	if testdata.KindOf(err) != 0 {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return err
}

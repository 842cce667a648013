package selection

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Suite bucket names.
const (
	SuiteRAG         = "rag_reliability_robustness"
	SuiteRedTeam     = "red_team"
	SuiteSafety      = "safety"
	SuitePerformance = "performance"
)

// Suites lists the four buckets in canonical order.
var Suites = []string{SuiteRAG, SuiteRedTeam, SuiteSafety, SuitePerformance}

// suitePrefix maps each bucket to the domain prefix of its metric keys.
var suitePrefix = map[string]string{
	SuiteRAG:         "rag.",
	SuiteRedTeam:     "red.",
	SuiteSafety:      "safety.",
	SuitePerformance: "perf.",
}

// Entry ties one internal test id to its canonical metric key.
type Entry struct {
	Suite  string
	TestID string
	Metric string
}

// catalog is the single source of truth for both lookup directions.
var catalog = []Entry{
	{SuiteRAG, "faithfulness", "rag.faithfulness"},
	{SuiteRAG, "context_recall", "rag.context_recall"},
	{SuiteRAG, "answer_relevancy", "rag.answer_relevancy"},
	{SuiteRAG, "context_precision", "rag.context_precision"},
	{SuiteRAG, "answer_correctness", "rag.answer_correctness"},
	{SuiteRAG, "answer_similarity", "rag.answer_similarity"},
	{SuiteRAG, "context_entities_recall", "rag.context_entities_recall"},
	{SuiteRAG, "context_utilization", "rag.context_utilization"},
	{SuiteRAG, "prompt_robustness", "rag.prompt_robustness"},

	{SuiteRedTeam, "prompt_injection", "red.prompt_injection"},
	{SuiteRedTeam, "jailbreak_attempts", "red.jailbreak"},
	{SuiteRedTeam, "data_extraction", "red.data_extraction"},
	{SuiteRedTeam, "context_manipulation", "red.context_manipulation"},
	{SuiteRedTeam, "social_engineering", "red.social_engineering"},

	{SuiteSafety, "toxicity", "safety.toxicity"},
	{SuiteSafety, "hate", "safety.hate"},
	{SuiteSafety, "violence", "safety.violence"},
	{SuiteSafety, "adult", "safety.adult"},
	{SuiteSafety, "self_harm", "safety.self_harm"},
	{SuiteSafety, "misinformation", "safety.misinformation"},

	{SuitePerformance, "cold_start", "perf.cold_start"},
	{SuitePerformance, "warm_performance", "perf.warm"},
	{SuitePerformance, "throughput", "perf.throughput"},
	{SuitePerformance, "stress_test", "perf.stress"},
	{SuitePerformance, "memory_usage", "perf.memory"},
}

var (
	testToMetric = map[string]string{}
	metricToTest = map[string]string{}
)

func init() {
	if err := buildLookups(catalog, testToMetric, metricToTest); err != nil {
		panic(err)
	}
}

// buildLookups fills both directions from entries and rejects anything that
// would break the one-to-one mapping.
func buildLookups(entries []Entry, fwd, rev map[string]string) error {
	for _, e := range entries {
		prefix, ok := suitePrefix[e.Suite]
		if !ok {
			return fmt.Errorf("selection: unknown suite %q for test %q", e.Suite, e.TestID)
		}
		if !strings.HasPrefix(e.Metric, prefix) {
			return fmt.Errorf("selection: metric %q does not belong to suite %q", e.Metric, e.Suite)
		}
		if prev, dup := fwd[e.TestID]; dup {
			return fmt.Errorf("selection: test id %q mapped twice (%s, %s)", e.TestID, prev, e.Metric)
		}
		if prev, dup := rev[e.Metric]; dup {
			return fmt.Errorf("selection: metric %q mapped twice (%s, %s)", e.Metric, prev, e.TestID)
		}
		fwd[e.TestID] = e.Metric
		rev[e.Metric] = e.TestID
	}
	return nil
}

// Catalog returns a copy of every known entry in catalog order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// MetricFor returns the canonical metric key for a test id.
func MetricFor(testID string) (string, bool) {
	m, ok := testToMetric[testID]
	return m, ok
}

// TestIDFor returns the test id for a canonical metric key.
func TestIDFor(metric string) (string, bool) {
	id, ok := metricToTest[metric]
	return id, ok
}

// SuiteForMetric routes a metric key to its bucket by prefix.
func SuiteForMetric(metric string) (string, bool) {
	for _, s := range Suites {
		if strings.HasPrefix(metric, suitePrefix[s]) {
			return s, true
		}
	}
	return "", false
}

// metricsOf returns the catalog metrics of one suite in catalog order.
func metricsOf(suite string) []string {
	var out []string
	for _, e := range catalog {
		if e.Suite == suite {
			out = append(out, e.Metric)
		}
	}
	return out
}

// SuiteLabel renders a bucket or test name for display, e.g. "Red Team".
func SuiteLabel(name string) string {
	switch name {
	case SuiteRAG:
		return "RAG Reliability & Robustness"
	}
	// Casers carry state, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

package selection

// RAG metric sets offered by default. Without ground truth only the
// reference-free metrics can be computed.
var (
	ragNoGroundTruth = []string{
		"rag.faithfulness",
		"rag.answer_relevancy",
		"rag.context_utilization",
		"rag.prompt_robustness",
	}
	ragRequired = []string{
		"rag.faithfulness",
		"rag.context_recall",
		"rag.answer_relevancy",
		"rag.context_precision",
		"rag.answer_correctness",
	}
	ragAdvanced = []string{
		"rag.answer_similarity",
		"rag.context_entities_recall",
		"rag.prompt_robustness",
	}
)

// DefaultRAGMetrics returns the RAG portion of the default selection.
func DefaultRAGMetrics(groundTruth bool) []string {
	if !groundTruth {
		return append([]string(nil), ragNoGroundTruth...)
	}
	out := make([]string, 0, len(ragRequired)+len(ragAdvanced))
	out = append(out, ragRequired...)
	return append(out, ragAdvanced...)
}

// DefaultRAGSelection returns the default metric keys for a RAG run: the RAG
// set picked by groundTruth followed by the full red-team, safety and
// performance sets.
func DefaultRAGSelection(groundTruth bool) []string {
	out := DefaultRAGMetrics(groundTruth)
	for _, s := range []string{SuiteRedTeam, SuiteSafety, SuitePerformance} {
		out = append(out, metricsOf(s)...)
	}
	return out
}

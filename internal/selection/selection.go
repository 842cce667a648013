// Package selection converts between the suite-bucketed test selection shown
// to operators and the flat list of canonical metric keys the orchestrator
// evaluates.
//
// Conversions never fail: unknown test ids and metric keys are dropped.
// Inspect and InspectMetrics report what would be dropped so callers can
// surface catalog drift between the console and the orchestrator.
package selection

import "sort"

// Selection maps a suite name to an ordered list of test ids.
type Selection map[string][]string

// suiteOrder returns the suite names of sel: the canonical buckets first,
// then any other names sorted, so iteration is deterministic.
func suiteOrder(sel Selection) []string {
	out := make([]string, 0, len(sel))
	for _, s := range Suites {
		if _, ok := sel[s]; ok {
			out = append(out, s)
		}
	}
	var extra []string
	for s := range sel {
		if _, ok := suitePrefix[s]; !ok {
			extra = append(extra, s)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// ToMetrics flattens sel into canonical metric keys. Duplicates are kept;
// use Normalize to collapse them.
func ToMetrics(sel Selection) []string {
	var out []string
	for _, suite := range suiteOrder(sel) {
		for _, id := range sel[suite] {
			if m, ok := testToMetric[id]; ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// FromMetrics buckets metric keys back into test ids. All four canonical
// buckets are present in the result, empty when nothing routes to them.
func FromMetrics(metrics []string) Selection {
	out := make(Selection, len(Suites))
	for _, s := range Suites {
		out[s] = []string{}
	}
	for _, m := range metrics {
		suite, ok := SuiteForMetric(m)
		if !ok {
			continue
		}
		id, ok := metricToTest[m]
		if !ok {
			continue
		}
		out[suite] = append(out[suite], id)
	}
	return out
}

// Dedupe returns metrics with repeats removed, keeping first occurrences.
func Dedupe(metrics []string) []string {
	seen := make(map[string]struct{}, len(metrics))
	out := make([]string, 0, len(metrics))
	for _, m := range metrics {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Normalize returns sel with every canonical metric selected at most once,
// each test id placed in the bucket its metric belongs to.
func Normalize(sel Selection) Selection {
	return FromMetrics(Dedupe(ToMetrics(sel)))
}

// Count returns the number of test ids across all buckets.
func (s Selection) Count() int {
	n := 0
	for _, ids := range s {
		n += len(ids)
	}
	return n
}

// Report lists what a conversion dropped.
type Report struct {
	UnknownTests   map[string][]string
	UnknownMetrics []string
	Duplicates     []string
}

// Clean reports whether nothing was dropped or collapsed.
func (r Report) Clean() bool {
	return len(r.UnknownTests) == 0 && len(r.UnknownMetrics) == 0 && len(r.Duplicates) == 0
}

// Inspect reports unknown test ids per suite and metrics selected more than once.
func Inspect(sel Selection) Report {
	var r Report
	for _, suite := range suiteOrder(sel) {
		for _, id := range sel[suite] {
			if _, ok := testToMetric[id]; ok {
				continue
			}
			if r.UnknownTests == nil {
				r.UnknownTests = map[string][]string{}
			}
			r.UnknownTests[suite] = append(r.UnknownTests[suite], id)
		}
	}
	r.Duplicates = duplicates(ToMetrics(sel))
	return r
}

// InspectMetrics reports metric keys that FromMetrics would drop.
func InspectMetrics(metrics []string) Report {
	var r Report
	for _, m := range metrics {
		_, routed := SuiteForMetric(m)
		_, known := metricToTest[m]
		if !routed || !known {
			r.UnknownMetrics = append(r.UnknownMetrics, m)
		}
	}
	r.Duplicates = duplicates(metrics)
	return r
}

func duplicates(metrics []string) []string {
	counts := map[string]int{}
	var out []string
	for _, m := range metrics {
		counts[m]++
		if counts[m] == 2 {
			out = append(out, m)
		}
	}
	return out
}

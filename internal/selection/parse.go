package selection

import (
	"fmt"
	"strings"
)

// ParseSuiteArgs builds a Selection from "suite=id1,id2" arguments.
// Repeating a suite appends to it. Blank ids are skipped.
func ParseSuiteArgs(args []string) (Selection, error) {
	sel := Selection{}
	for _, a := range args {
		suite, ids, ok := strings.Cut(a, "=")
		suite = strings.TrimSpace(suite)
		if !ok || suite == "" {
			return nil, fmt.Errorf("invalid suite argument %q (expected suite=test1,test2)", a)
		}
		if _, seen := sel[suite]; !seen {
			sel[suite] = []string{}
		}
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				sel[suite] = append(sel[suite], id)
			}
		}
	}
	return sel, nil
}

// SplitMetrics splits comma or whitespace separated metric keys.
func SplitMetrics(args []string) []string {
	var out []string
	for _, a := range args {
		for _, f := range strings.FieldsFunc(a, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' }) {
			out = append(out, f)
		}
	}
	return out
}

package testdata

import (
	"fmt"
	"strings"
)

func items(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

// FormatCounts renders each ingested artifact with its count, e.g. "qaset (1 item)".
func FormatCounts(res *IngestResult) []string {
	if res == nil {
		return nil
	}
	out := make([]string, 0, len(res.Artifacts))
	for _, a := range res.Artifacts {
		if n, ok := res.Counts[a]; ok {
			out = append(out, fmt.Sprintf("%s (%s)", a, items(n)))
		} else {
			out = append(out, string(a))
		}
	}
	return out
}

// DescribeArtifacts renders every artifact slot of b in display order, e.g.
// "passages: present (10 items, sha256 abc)" or "attacks: absent".
func DescribeArtifacts(b *Bundle) []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(AllArtifacts))
	for _, a := range AllArtifacts {
		info := b.Artifacts[a]
		if !info.Present {
			out = append(out, fmt.Sprintf("%s: absent", a))
			continue
		}
		var details []string
		if info.Count != nil {
			details = append(details, items(*info.Count))
		}
		if info.SHA256 != "" {
			details = append(details, "sha256 "+info.SHA256)
		}
		if len(details) == 0 {
			out = append(out, fmt.Sprintf("%s: present", a))
		} else {
			out = append(out, fmt.Sprintf("%s: present (%s)", a, strings.Join(details, ", ")))
		}
	}
	return out
}

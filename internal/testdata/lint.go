package testdata

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxProblems caps the problems reported per artifact.
const maxProblems = 10

// LintResult previews how the server will read one artifact.
type LintResult struct {
	Artifact Artifact
	Count    int
	Problems []string
}

// OK reports whether no problems were found.
func (r LintResult) OK() bool { return len(r.Problems) == 0 }

func (r *LintResult) addf(format string, args ...any) {
	if len(r.Problems) == maxProblems {
		r.Problems = append(r.Problems, "further problems omitted")
	}
	if len(r.Problems) > maxProblems {
		return
	}
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Lint checks data locally before it is sent. passages and qaset must be
// JSON Lines with one object per line (qaset rows need a question); attacks
// are one attack per line, plain text or JSON; schema must be a JSON Schema.
func Lint(a Artifact, data []byte) LintResult {
	r := LintResult{Artifact: a}
	if len(bytes.TrimSpace(data)) == 0 {
		r.addf("empty content")
		return r
	}
	switch {
	case !a.Valid():
		r.addf("unknown artifact %q", a)
	case !a.LineDelimited():
		lintSchema(&r, data)
	case a == Attacks:
		eachLine(&r, data, func(int, string) { r.Count++ })
	default:
		lintJSONLines(&r, data)
	}
	return r
}

// maxLineBytes bounds one line of a line-delimited artifact.
const maxLineBytes = 16 << 20

func eachLine(r *LintResult, data []byte, fn func(lineNo int, line string)) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	n := 0
	for sc.Scan() {
		n++
		if line := strings.TrimSpace(sc.Text()); line != "" {
			fn(n, line)
		}
	}
	if err := sc.Err(); err != nil {
		r.addf("line %d: %v", n+1, err)
	}
}

func lintJSONLines(r *LintResult, data []byte) {
	eachLine(r, data, func(n int, line string) {
		r.Count++
		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			r.addf("line %d: not a JSON object: %v", n, err)
			return
		}
		if r.Artifact == QASet {
			q, _ := row["question"].(string)
			if strings.TrimSpace(q) == "" {
				r.addf("line %d: missing question", n)
			}
		}
	})
}

func lintSchema(r *LintResult, data []byte) {
	r.Count = 1
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		r.addf("not a JSON object: %v", err)
		return
	}
	if _, err := jsonschema.CompileString("schema.json", string(data)); err != nil {
		r.addf("invalid JSON Schema: %v", err)
	}
}

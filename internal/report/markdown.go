package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
	"github.com/yuin/goldmark"

	"github.com/agentbridge/agentbridge/internal/session"
)

// Markdown renders the report for human review.
func Markdown(r Report) string {
	var lines []string
	push := func(line string) { lines = append(lines, line) }

	push("### Agent Bridge Coordinator Report")
	push("")
	push("**Mode:** " + r.Mode)
	push("**Task:** " + r.Task)
	push("**Success Criteria:**")
	for _, criterion := range r.SuccessCriteria {
		push("- " + criterion)
	}

	push("")
	push("**Sources Used:**")
	for _, source := range r.SourcesUsed {
		push("- " + source)
	}

	push("")
	push("**Verdict:** " + r.Verdict)
	push("")
	push("**Findings:**")
	for _, f := range r.Findings {
		push(fmt.Sprintf("- **%s:** %s (evidence: %s; confidence: %.2f)",
			f.Severity, f.Summary, strings.Join(f.Evidence, ", "), f.Confidence))
	}

	push("")
	push("**Recommended Next Actions:**")
	for i, action := range r.RecommendedNextActions {
		push(fmt.Sprintf("%d. %s", i+1, action))
	}

	if len(r.OpenQuestions) > 0 {
		push("")
		push("**Open Questions:**")
		for _, question := range r.OpenQuestions {
			push("- " + question)
		}
	}

	return strings.Join(lines, "\n")
}

// HTML renders the markdown report as an HTML fragment.
func HTML(r Report) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(r)), &buf); err != nil {
		return "", session.WrapErr(session.KindIO, err, "Failed to render report HTML")
	}
	return buf.String(), nil
}

// CanonicalJSON serializes the report in RFC 8785 canonical form so
// byte-identical reports imply identical content.
func CanonicalJSON(r Report) ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, session.WrapErr(session.KindIO, err, "Failed to encode report")
	}
	return jcs.Transform(raw)
}

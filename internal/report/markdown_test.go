package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Mode:            "verify",
		Task:            "check the fix",
		SuccessCriteria: []string{"tests pass"},
		SourcesUsed:     []string{"[claude:latest] /tmp/s.jsonl"},
		Verdict:         "PASS",
		Findings: []Finding{{
			Severity:   "P3",
			Summary:    "All available agent outputs are aligned",
			Evidence:   []string{"[claude:latest]"},
			Confidence: 0.9,
		}},
		RecommendedNextActions: []string{"No immediate action required."},
		OpenQuestions:          []string{"Missing source codex: No Codex session found."},
	}
}

func TestMarkdownLayout(t *testing.T) {
	md := Markdown(sampleReport())
	lines := strings.Split(md, "\n")

	assert.Equal(t, "### Agent Bridge Coordinator Report", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "**Mode:** verify", lines[2])
	assert.Equal(t, "**Task:** check the fix", lines[3])
	assert.Contains(t, md, "- tests pass")
	assert.Contains(t, md, "**Verdict:** PASS")
	assert.Contains(t, md,
		"- **P3:** All available agent outputs are aligned (evidence: [claude:latest]; confidence: 0.90)")
	assert.Contains(t, md, "1. No immediate action required.")
	assert.Contains(t, md, "**Open Questions:**")
}

func TestMarkdownOmitsEmptyOpenQuestions(t *testing.T) {
	r := sampleReport()
	r.OpenQuestions = nil
	assert.NotContains(t, Markdown(r), "**Open Questions:**")
}

func TestHTMLRendering(t *testing.T) {
	html, err := HTML(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, html, "<h3")
	assert.Contains(t, html, "Agent Bridge Coordinator Report")
	assert.Contains(t, html, "<strong>Verdict:</strong> PASS")
}

func TestCanonicalJSONStable(t *testing.T) {
	first, err := CanonicalJSON(sampleReport())
	require.NoError(t, err)
	second, err := CanonicalJSON(sampleReport())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(first, &decoded))
	assert.Equal(t, "verify", decoded["mode"])
	assert.Equal(t, "PASS", decoded["verdict"])

	// Canonical form carries no insignificant whitespace.
	assert.NotContains(t, string(first), "\n")
}

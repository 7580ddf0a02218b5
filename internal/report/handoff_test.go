package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/agentbridge/internal/session"
)

const validHandoff = `{
	"mode": "Verify",
	"task": "check the auth fix",
	"success_criteria": ["login works", "tests pass"],
	"sources": [
		{"agent": "claude", "session_id": "abc-123"},
		{"agent": "codex", "current_session": true, "cwd": "/work/app"}
	],
	"constraints": ["no schema changes"]
}`

func writeHandoff(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handoff.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadHandoffValid(t *testing.T) {
	req, err := LoadHandoff(writeHandoff(t, validHandoff))
	require.NoError(t, err)

	want := Request{
		Mode:            "verify",
		Task:            "check the auth fix",
		SuccessCriteria: []string{"login works", "tests pass"},
		Sources: []SourceSpec{
			{Agent: "claude", SessionID: "abc-123"},
			{Agent: "codex", CurrentSession: true, Cwd: "/work/app"},
		},
		Constraints: []string{"no schema changes"},
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadHandoffRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    session.Kind
	}{
		{
			name:    "not json",
			content: "not json at all",
			kind:    session.KindInvalidHandoff,
		},
		{
			name: "unknown top-level key",
			content: `{
				"mode": "verify", "task": "t",
				"success_criteria": ["c"],
				"sources": [{"agent": "claude", "current_session": true}],
				"extra_field": true
			}`,
			kind: session.KindInvalidHandoff,
		},
		{
			name: "unknown source key",
			content: `{
				"mode": "verify", "task": "t",
				"success_criteria": ["c"],
				"sources": [{"agent": "claude", "session-id": "typo"}]
			}`,
			kind: session.KindInvalidHandoff,
		},
		{
			name: "empty criteria",
			content: `{
				"mode": "verify", "task": "t",
				"success_criteria": [],
				"sources": [{"agent": "claude", "current_session": true}]
			}`,
			kind: session.KindInvalidHandoff,
		},
		{
			name: "missing sources",
			content: `{
				"mode": "verify", "task": "t",
				"success_criteria": ["c"]
			}`,
			kind: session.KindInvalidHandoff,
		},
		{
			name: "unsupported mode",
			content: `{
				"mode": "audit", "task": "t",
				"success_criteria": ["c"],
				"sources": [{"agent": "claude", "current_session": true}]
			}`,
			kind: session.KindUnsupportedMode,
		},
		{
			name: "unsupported agent",
			content: `{
				"mode": "verify", "task": "t",
				"success_criteria": ["c"],
				"sources": [{"agent": "copilot", "current_session": true}]
			}`,
			kind: session.KindUnsupportedAgent,
		},
		{
			name: "source without id or current",
			content: `{
				"mode": "verify", "task": "t",
				"success_criteria": ["c"],
				"sources": [{"agent": "claude"}]
			}`,
			kind: session.KindInvalidHandoff,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadHandoff(writeHandoff(t, tt.content))
			require.Error(t, err)
			assert.Equal(t, tt.kind, session.KindOf(err))
		})
	}
}

func TestLoadHandoffSizeCeiling(t *testing.T) {
	huge := `{"mode":"verify","task":"` +
		strings.Repeat("x", MaxHandoffSize) + `"}`
	_, err := LoadHandoff(writeHandoff(t, huge))
	require.Error(t, err)
	assert.Equal(t, session.KindInvalidHandoff, session.KindOf(err))
	assert.Contains(t, err.Error(), "exceeds")
}

func TestLoadHandoffMissingFile(t *testing.T) {
	_, err := LoadHandoff(filepath.Join(t.TempDir(), "gone.json"))
	require.Error(t, err)
	assert.Equal(t, session.KindIO, session.KindOf(err))
}

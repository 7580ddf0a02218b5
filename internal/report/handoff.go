package report

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/agentbridge/agentbridge/internal/session"
)

// MaxHandoffSize caps handoff documents. Anything larger is rejected
// before parsing.
const MaxHandoffSize = 1 << 20

// handoffSchema is strict: unknown top-level or per-source keys are
// hard errors so a typo ("session-id") fails loudly instead of
// silently resolving the wrong session.
const handoffSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["mode", "task", "success_criteria", "sources"],
  "properties": {
    "mode": {"type": "string"},
    "task": {"type": "string"},
    "success_criteria": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string"}
    },
    "sources": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["agent"],
        "properties": {
          "agent": {"type": "string"},
          "session_id": {"type": "string"},
          "current_session": {"type": "boolean"},
          "cwd": {"type": "string"}
        }
      }
    },
    "constraints": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

var compileHandoffSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.NewCompiler().Compile([]byte(handoffSchema))
})

// LoadHandoff reads and validates a handoff document. Every rejection
// carries a typed kind so callers can map it to an exit code.
func LoadHandoff(path string) (Request, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Request{}, session.WrapErr(session.KindIO, err,
			"Failed to read handoff file: %s", path)
	}
	if info.Size() > MaxHandoffSize {
		return Request{}, session.Errorf(session.KindInvalidHandoff,
			"Invalid handoff: file exceeds %d byte limit", int64(MaxHandoffSize))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, session.WrapErr(session.KindIO, err,
			"Failed to read handoff file: %s", path)
	}
	return ParseHandoff(data)
}

// ParseHandoff validates raw handoff JSON and builds the request.
func ParseHandoff(data []byte) (Request, error) {
	if !gjson.ValidBytes(data) {
		return Request{}, session.Errorf(session.KindInvalidHandoff,
			"Invalid handoff: not valid JSON")
	}

	schema, err := compileHandoffSchema()
	if err != nil {
		return Request{}, session.WrapErr(session.KindInvalidHandoff, err,
			"Invalid handoff schema")
	}
	if result := schema.ValidateJSON(data); !result.IsValid() {
		return Request{}, session.Errorf(session.KindInvalidHandoff,
			"Invalid handoff: %s", formatSchemaErrors(result))
	}

	root := gjson.ParseBytes(data)

	req := Request{
		Mode: strings.ToLower(strings.TrimSpace(root.Get("mode").Str)),
		Task: root.Get("task").Str,
	}
	if err := ValidateMode(req.Mode); err != nil {
		return Request{}, err
	}

	for _, c := range root.Get("success_criteria").Array() {
		req.SuccessCriteria = append(req.SuccessCriteria, c.Str)
	}
	for _, c := range root.Get("constraints").Array() {
		req.Constraints = append(req.Constraints, c.Str)
	}

	for _, s := range root.Get("sources").Array() {
		src := SourceSpec{
			Agent:          strings.ToLower(strings.TrimSpace(s.Get("agent").Str)),
			SessionID:      s.Get("session_id").Str,
			CurrentSession: s.Get("current_session").Bool(),
			Cwd:            s.Get("cwd").Str,
		}
		if _, ok := session.ProviderByAgent(src.Agent); !ok {
			return Request{}, session.Errorf(
				session.KindUnsupportedAgent, "Unsupported agent: %s", src.Agent)
		}
		if src.SessionID == "" && !src.CurrentSession {
			return Request{}, session.Errorf(session.KindInvalidHandoff,
				"Invalid handoff: source %q must provide session_id or set current_session=true",
				src.Agent)
		}
		req.Sources = append(req.Sources, src)
	}
	return req, nil
}

func formatSchemaErrors(result *jsonschema.EvaluationResult) string {
	var parts []string
	for field, detail := range result.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", field, detail))
	}
	if len(parts) == 0 {
		return "document does not match handoff schema"
	}
	return strings.Join(parts, "; ")
}

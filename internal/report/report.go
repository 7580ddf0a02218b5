// Package report aggregates multiple resolved sessions into one
// structured verdict. A single source's failure is never fatal: it
// downgrades to a missing entry and a P1 finding, so the report
// always completes when the request itself is well-formed.
package report

import (
	"fmt"
	"strings"

	"github.com/agentbridge/agentbridge/internal/session"
)

// Modes for a report request. The set is closed.
const (
	ModeVerify   = "verify"
	ModeSteer    = "steer"
	ModeAnalyze  = "analyze"
	ModeFeedback = "feedback"
)

// SourceSpec names one session to resolve for a report. Either
// SessionID is set or CurrentSession is true.
type SourceSpec struct {
	Agent          string `json:"agent"`
	SessionID      string `json:"session_id,omitempty"`
	CurrentSession bool   `json:"current_session,omitempty"`
	Cwd            string `json:"cwd,omitempty"`
	Dir            string `json:"-"` // explicit directory, CLI-only
}

// Request is one divergence-report request.
type Request struct {
	Mode            string
	Task            string
	SuccessCriteria []string
	Sources         []SourceSpec
	Constraints     []string
	Normalize       bool
}

// Finding is one report observation. Never mutated after creation.
type Finding struct {
	Severity   string   `json:"severity"`
	Summary    string   `json:"summary"`
	Evidence   []string `json:"evidence"`
	Confidence float64  `json:"confidence"`
}

// Report is the structured output of Build.
type Report struct {
	Mode                   string    `json:"mode"`
	Task                   string    `json:"task"`
	SuccessCriteria        []string  `json:"success_criteria"`
	SourcesUsed            []string  `json:"sources_used"`
	Verdict                string    `json:"verdict"`
	Findings               []Finding `json:"findings"`
	RecommendedNextActions []string  `json:"recommended_next_actions"`
	OpenQuestions          []string  `json:"open_questions"`
}

// ValidateMode checks mode against the closed set.
func ValidateMode(mode string) error {
	switch mode {
	case ModeVerify, ModeSteer, ModeAnalyze, ModeFeedback:
		return nil
	}
	return session.Errorf(session.KindUnsupportedMode, "Unsupported mode: %s", mode)
}

// ParseSourceArg parses an "agent" or "agent:session-id" argument.
// An id-less spec targets the agent's current (latest) session.
func ParseSourceArg(raw string) (SourceSpec, error) {
	agent, id, _ := strings.Cut(raw, ":")
	agent = strings.ToLower(strings.TrimSpace(agent))
	id = strings.TrimSpace(id)

	if _, ok := session.ProviderByAgent(agent); !ok {
		return SourceSpec{}, session.Errorf(
			session.KindUnsupportedAgent, "Unsupported agent: %s", agent)
	}
	return SourceSpec{
		Agent:          agent,
		SessionID:      id,
		CurrentSession: id == "",
	}, nil
}

type resolvedSource struct {
	spec     SourceSpec
	session  *session.Session
	evidence string
}

type missingSource struct {
	spec     SourceSpec
	reason   string
	evidence string
}

// Build resolves every source and computes findings, verdict,
// recommended actions, and open questions. All derivations are
// deterministic functions of the missing/divergence facts.
func Build(dirs session.Dirs, req Request, defaultCwd string) (Report, error) {
	if err := ValidateMode(req.Mode); err != nil {
		return Report{}, err
	}
	if len(req.Sources) == 0 {
		return Report{}, session.Errorf(session.KindInvalidHandoff,
			"Invalid handoff: at least one source is required")
	}
	if len(req.SuccessCriteria) == 0 {
		return Report{}, session.Errorf(session.KindInvalidHandoff,
			"Invalid handoff: success_criteria must contain at least one string")
	}

	var successful []resolvedSource
	var missing []missingSource

	for _, src := range req.Sources {
		evidence := evidenceTag(src)
		cwd := src.Cwd
		if cwd == "" {
			cwd = defaultCwd
		}
		sess, err := session.Resolve(dirs, session.Spec{
			Agent: src.Agent,
			ID:    src.SessionID,
			Cwd:   cwd,
			Dir:   src.Dir,
			LastN: 1,
		})
		if err != nil {
			missing = append(missing, missingSource{
				spec: src, reason: err.Error(), evidence: evidence,
			})
			continue
		}
		successful = append(successful, resolvedSource{
			spec: src, session: sess, evidence: evidence,
		})
	}

	var findings []Finding
	for _, m := range missing {
		findings = append(findings, Finding{
			Severity:   "P1",
			Summary:    fmt.Sprintf("Source unavailable: %s (%s)", m.spec.Agent, m.reason),
			Evidence:   []string{m.evidence},
			Confidence: 0.9,
		})
	}
	for _, s := range successful {
		for _, warning := range s.session.Warnings {
			findings = append(findings, Finding{
				Severity:   "P2",
				Summary:    "Source warning: " + warning,
				Evidence:   []string{s.evidence},
				Confidence: 0.75,
			})
		}
	}

	uniqueContents := distinctContents(successful, req.Normalize)
	allEvidence := evidenceTags(successful)

	if len(successful) >= 2 {
		if len(uniqueContents) > 1 {
			findings = append(findings, Finding{
				Severity:   "P1",
				Summary:    "Divergent agent outputs detected",
				Evidence:   allEvidence,
				Confidence: 0.75,
			})
		} else {
			findings = append(findings, Finding{
				Severity:   "P3",
				Summary:    "All available agent outputs are aligned",
				Evidence:   allEvidence,
				Confidence: 0.9,
			})
		}
	} else {
		findings = append(findings, Finding{
			Severity:   "P2",
			Summary:    "Insufficient comparable sources",
			Evidence:   allEvidence,
			Confidence: 0.5,
		})
	}

	var actions []string
	if len(missing) > 0 {
		actions = append(actions,
			"Provide valid session identifiers or cwd values for unavailable sources.")
	}
	if len(uniqueContents) > 1 {
		actions = append(actions,
			"Inspect full transcripts for diverging sources before final decisions.")
	}
	if len(req.Constraints) > 0 {
		actions = append(actions, fmt.Sprintf(
			"Verify recommendations against constraints: %s.",
			strings.Join(req.Constraints, "; ")))
	}
	if len(actions) == 0 {
		actions = append(actions, "No immediate action required.")
	}

	var openQuestions []string
	for _, m := range missing {
		openQuestions = append(openQuestions, fmt.Sprintf(
			"Missing source %s: %s", m.spec.Agent, m.reason))
	}

	var sourcesUsed []string
	for _, s := range successful {
		sourcesUsed = append(sourcesUsed, s.evidence+" "+s.session.Source)
	}

	return Report{
		Mode:                   req.Mode,
		Task:                   req.Task,
		SuccessCriteria:        req.SuccessCriteria,
		SourcesUsed:            sourcesUsed,
		Verdict:                verdict(req.Mode, len(missing), len(uniqueContents), len(successful)),
		Findings:               findings,
		RecommendedNextActions: actions,
		OpenQuestions:          openQuestions,
	}, nil
}

// distinctContents collects the set of trimmed (optionally
// whitespace-normalized) contents across successful sources.
func distinctContents(successful []resolvedSource, normalize bool) map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range successful {
		text := strings.TrimSpace(s.session.Content)
		if normalize {
			text = strings.Join(strings.Fields(text), " ")
		}
		set[text] = struct{}{}
	}
	return set
}

func evidenceTags(successful []resolvedSource) []string {
	var tags []string
	for _, s := range successful {
		tags = append(tags, s.evidence)
	}
	return tags
}

// evidenceTag renders the short [agent:id] citation attached to
// findings.
func evidenceTag(src SourceSpec) string {
	id := "unspecified"
	switch {
	case src.SessionID != "":
		id = shorten(src.SessionID)
	case src.CurrentSession:
		id = "latest"
	}
	return fmt.Sprintf("[%s:%s]", src.Agent, id)
}

func shorten(value string) string {
	if len(value) > 8 {
		return value[:8]
	}
	return value
}

// verdict maps the comparison facts to the mode's completion label.
// Zero successful sources is INCOMPLETE regardless of mode.
func verdict(mode string, missing, uniqueContents, successCount int) string {
	if successCount == 0 {
		return "INCOMPLETE"
	}
	switch mode {
	case ModeVerify:
		if missing == 0 && uniqueContents <= 1 {
			return "PASS"
		}
		return "FAIL"
	case ModeSteer:
		return "STEERING_PLAN_READY"
	case ModeAnalyze:
		return "ANALYSIS_COMPLETE"
	case ModeFeedback:
		return "FEEDBACK_COMPLETE"
	}
	return "INCOMPLETE"
}

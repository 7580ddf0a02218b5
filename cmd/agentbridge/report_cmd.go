package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/shlex"

	"github.com/agentbridge/agentbridge/internal/report"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	handoff := fs.String("handoff", "", "Path to a handoff JSON document")
	mode := fs.String("mode", "", "verify, steer, analyze, or feedback")
	task := fs.String("task", "", "Task description")
	var sources multiFlag
	fs.Var(&sources, "source", "agent or agent:session-id (repeatable)")
	criteria := fs.String("criteria", "", "Success criteria (shell-quoted list)")
	constraints := fs.String("constraints", "", "Constraints (shell-quoted list)")
	cwd := fs.String("cwd", "", "Default working directory for sources")
	normalize := fs.Bool("normalize", false,
		"Collapse whitespace before comparing outputs")
	format := fs.String("format", "text",
		"Output format: text, markdown, html, json, canonical")
	parseFlags(fs, "report", args)

	if *cwd == "" {
		*cwd = workingDir()
	}

	var req report.Request
	var err error
	if *handoff != "" {
		req, err = report.LoadHandoff(*handoff)
		if err != nil {
			fail(*format == "json" || *format == "canonical", err)
		}
	} else {
		req, err = requestFromFlags(*mode, *task, sources, *criteria, *constraints)
		if err != nil {
			fail(*format == "json" || *format == "canonical", err)
		}
	}
	req.Normalize = req.Normalize || *normalize

	cfg := mustLoadConfig()
	rep, err := report.Build(cfg.SessionDirs(), req, *cwd)
	if err != nil {
		fail(*format == "json" || *format == "canonical", err)
	}

	switch *format {
	case "text":
		fmt.Println(styledReport(rep))
	case "markdown":
		fmt.Println(report.Markdown(rep))
	case "html":
		html, err := report.HTML(rep)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Println(html)
	case "json":
		emitJSON(rep)
	case "canonical":
		out, err := report.CanonicalJSON(rep)
		if err != nil {
			fail(true, err)
		}
		fmt.Println(string(out))
	default:
		fatalf("unknown format %q", *format)
	}
}

// requestFromFlags assembles a Request from the flag form of the
// report command. Criteria and constraints are shell-quoted lists:
// -criteria "'tests pass' 'no regressions'"
func requestFromFlags(
	mode, task string, sources []string, criteria, constraints string,
) (report.Request, error) {
	req := report.Request{Mode: strings.ToLower(strings.TrimSpace(mode)), Task: task}

	for _, raw := range sources {
		src, err := report.ParseSourceArg(raw)
		if err != nil {
			return report.Request{}, err
		}
		req.Sources = append(req.Sources, src)
	}

	var err error
	req.SuccessCriteria, err = shlex.Split(criteria)
	if err != nil {
		return report.Request{}, fmt.Errorf("parsing -criteria: %w", err)
	}
	req.Constraints, err = shlex.Split(constraints)
	if err != nil {
		return report.Request{}, fmt.Errorf("parsing -constraints: %w", err)
	}
	return req, nil
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	verdictStyle = map[string]lipgloss.Style{
		"PASS":                lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		"FAIL":                lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		"INCOMPLETE":          lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		"STEERING_PLAN_READY": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		"ANALYSIS_COMPLETE":   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		"FEEDBACK_COMPLETE":   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
	}
	severityStyle = map[string]lipgloss.Style{
		"P1": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		"P2": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"P3": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	}
)

// styledReport renders the report for terminals. Layout mirrors the
// markdown form; only emphasis differs.
func styledReport(r report.Report) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Agent Bridge Coordinator Report"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Mode: %s\n", r.Mode)
	fmt.Fprintf(&b, "Task: %s\n", r.Task)
	b.WriteString("Success Criteria:\n")
	for _, criterion := range r.SuccessCriteria {
		fmt.Fprintf(&b, "  - %s\n", criterion)
	}

	b.WriteString("\nSources Used:\n")
	for _, source := range r.SourcesUsed {
		fmt.Fprintf(&b, "  - %s\n", source)
	}

	verdict := r.Verdict
	if style, ok := verdictStyle[verdict]; ok {
		verdict = style.Render(verdict)
	}
	fmt.Fprintf(&b, "\nVerdict: %s\n", verdict)

	b.WriteString("\nFindings:\n")
	for _, f := range r.Findings {
		severity := f.Severity
		if style, ok := severityStyle[severity]; ok {
			severity = style.Render(severity)
		}
		fmt.Fprintf(&b, "  %s %s (evidence: %s; confidence: %.2f)\n",
			severity, f.Summary, strings.Join(f.Evidence, ", "), f.Confidence)
	}

	b.WriteString("\nRecommended Next Actions:\n")
	for i, action := range r.RecommendedNextActions {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, action)
	}

	if len(r.OpenQuestions) > 0 {
		b.WriteString("\nOpen Questions:\n")
		for _, question := range r.OpenQuestions {
			fmt.Fprintf(&b, "  - %s\n", question)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Package inputguard screens free-form submissions for injection payloads
// and strips markup and shell metacharacters from the values that pass.
package inputguard

import (
	"regexp"
	"strings"
)

// Severity ranks a detected payload. High and Critical findings mark the
// caller for banning; lower ones only reject the submission.
type Severity int

const (
	Low Severity = iota
	Medium
	High
	Critical
)

func (s Severity) String() string {
	switch s {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// ThreatKind classifies what a pattern targets.
type ThreatKind string

const (
	KindXSS ThreatKind = "xss"
	KindSQL ThreatKind = "sql_injection"
)

// Threat is a single pattern hit inside an input value.
type Threat struct {
	Kind     ThreatKind
	Payload  string
	Severity Severity
}

// Report collects the findings for one value or one submission.
type Report struct {
	Threats []Threat
}

// Clean reports whether nothing was flagged.
func (r Report) Clean() bool { return len(r.Threats) == 0 }

// Ban reports whether any finding is severe enough to ban the caller.
func (r Report) Ban() bool {
	for _, t := range r.Threats {
		if t.Severity >= High {
			return true
		}
	}
	return false
}

// Kinds returns the distinct threat kinds in the report, in first-seen order.
func (r Report) Kinds() []string {
	var kinds []string
	seen := make(map[ThreatKind]bool)
	for _, t := range r.Threats {
		if !seen[t.Kind] {
			seen[t.Kind] = true
			kinds = append(kinds, string(t.Kind))
		}
	}
	return kinds
}

type rule struct {
	re       *regexp.Regexp
	kind     ThreatKind
	severity Severity
}

var rules = []rule{
	// Script injection.
	{regexp.MustCompile(`(?i)<\s*script[^>]*>`), KindXSS, Critical},
	{regexp.MustCompile(`(?i)<\s*/\s*script\s*>`), KindXSS, Critical},
	{regexp.MustCompile(`(?i)%3C\s*script`), KindXSS, Critical},
	{regexp.MustCompile(`(?i)javascript\s*:`), KindXSS, Critical},
	{regexp.MustCompile(`(?i)vbscript\s*:`), KindXSS, Critical},
	{regexp.MustCompile(`(?i)data:text/html`), KindXSS, Critical},
	{regexp.MustCompile(`(?i)\bon\w+\s*=`), KindXSS, High},
	{regexp.MustCompile(`(?i)\beval\s*\(`), KindXSS, High},
	{regexp.MustCompile(`(?i)\bset(timeout|interval)\s*\(`), KindXSS, High},
	{regexp.MustCompile(`(?i)document\.(cookie|write|location)`), KindXSS, High},
	{regexp.MustCompile(`(?i)expression\s*\(`), KindXSS, Medium},
	{regexp.MustCompile(`(?i)<\s*(iframe|object|embed|svg)[^>]*>`), KindXSS, Medium},
	{regexp.MustCompile(`&#x?[0-9a-fA-F]+;`), KindXSS, Low},
	{regexp.MustCompile(`\{\{[^}]*\}\}|\{%[^}]*%\}`), KindXSS, Low},

	// SQL injection.
	{regexp.MustCompile(`(?i)union\s+select`), KindSQL, Critical},
	{regexp.MustCompile(`(?i)drop\s+(table|database)`), KindSQL, Critical},
	{regexp.MustCompile(`(?i)\bexec(ute)?\s*\(`), KindSQL, Critical},
	{regexp.MustCompile(`(?i)select\s+.+\s+from\s`), KindSQL, High},
	{regexp.MustCompile(`(?i)insert\s+into\s`), KindSQL, High},
	{regexp.MustCompile(`(?i)update\s+\S+\s+set\s`), KindSQL, High},
	{regexp.MustCompile(`(?i)delete\s+from\s`), KindSQL, High},
	{regexp.MustCompile(`(?i)\b(and|or)\s+1\s*=\s*[12]\b`), KindSQL, Medium},
	{regexp.MustCompile(`--`), KindSQL, Medium},
	{regexp.MustCompile(`/\*.*\*/`), KindSQL, Low},
	{regexp.MustCompile(`(?i)\b(sleep|benchmark)\s*\(|waitfor\s+delay`), KindSQL, Low},
	{regexp.MustCompile(`(?i)information_schema`), KindSQL, Low},
	{regexp.MustCompile(`\$(where|ne|gt|lt|regex|or|and)\b`), KindSQL, Low},
}

// Scan checks a single value against every rule.
func Scan(input string) Report {
	var r Report
	for _, rule := range rules {
		if m := rule.re.FindString(input); m != "" {
			r.Threats = append(r.Threats, Threat{Kind: rule.kind, Payload: m, Severity: rule.severity})
		}
	}
	return r
}

// ScanFields checks every value of a submission and merges the findings.
func ScanFields(fields map[string]string) Report {
	var r Report
	for _, v := range fields {
		r.Threats = append(r.Threats, Scan(v).Threats...)
	}
	return r
}

var (
	angleBrackets = regexp.MustCompile(`[<>]`)
	jsProtocol    = regexp.MustCompile(`(?i)javascript:`)
	eventHandlers = regexp.MustCompile(`(?i)on\w+=`)
	quoteChars    = regexp.MustCompile(`['"]`)
	shellChars    = regexp.MustCompile("[;|&$`]")
)

// Sanitize strips markup, script protocols, quotes and shell metacharacters
// from a value that already passed Scan. Flagged input comes back empty.
func Sanitize(input string) string {
	if input == "" {
		return ""
	}
	if !Scan(input).Clean() {
		return ""
	}
	out := angleBrackets.ReplaceAllString(input, "")
	out = jsProtocol.ReplaceAllString(out, "")
	out = eventHandlers.ReplaceAllString(out, "")
	out = quoteChars.ReplaceAllString(out, "")
	out = shellChars.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// SanitizeUsername is Sanitize without quote stripping, so names like
// O'Brien survive.
func SanitizeUsername(input string) string {
	if input == "" {
		return ""
	}
	if !Scan(input).Clean() {
		return ""
	}
	out := angleBrackets.ReplaceAllString(input, "")
	out = jsProtocol.ReplaceAllString(out, "")
	out = eventHandlers.ReplaceAllString(out, "")
	out = shellChars.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

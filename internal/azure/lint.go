// Package azure lints and auto-repairs Azure DevOps YAML pipelines produced
// by the conversion step.
package azure

import (
	"fmt"
	"regexp"
	"strings"
)

// KnownTasks are task names accepted without an "unknown task" warning.
// A task matches when its name contains one of these.
var KnownTasks = []string{
	"UsePythonVersion", "NodeTool", "DotNetCoreCLI", "Maven", "Gradle",
	"PowerShell", "Bash", "CmdLine", "PublishTestResults", "PublishBuildArtifacts",
	"DownloadBuildArtifacts", "Docker", "KubernetesManifest",
}

const (
	defaultTrigger = "trigger:\n- main\n\n"
	defaultPool    = "pool:\n  vmImage: 'ubuntu-latest'\n\n"
)

// LintResult is the outcome of Lint
type LintResult struct {
	IsValid   bool             `json:"isValid"`
	Errors    []string         `json:"errors"`
	Warnings  []string         `json:"warnings"`
	AutoFixed bool             `json:"autoFixed"`
	FixedYAML string           `json:"fixedYaml"`
	Summary   *PipelineSummary `json:"summary,omitempty"`
}

// issue is one regex-driven check with its repair
type issue struct {
	detect  func(yaml string) bool
	fix     func(yaml string) string
	message string
	isError bool
}

var (
	scriptHeaderRe = regexp.MustCompile(`(?m)script:[ \t]*\|[ \t]*$`)
	taskNoVerRe    = regexp.MustCompile(`(?m)task:[ \t]*([^@\n]*[^@\s])[ \t]*$`)
	taskNameRe     = regexp.MustCompile(`task:\s*([^\s@]+)`)
	variablesRe    = regexp.MustCompile(`^([ \t]*)(?:- )?variables:[ \t]*$`)
)

var commonIssues = []issue{
	{
		detect: func(y string) bool {
			for _, m := range scriptHeaderRe.FindAllString(y, -1) {
				if m != "script: |" {
					return true
				}
			}
			return false
		},
		fix:     func(y string) string { return scriptHeaderRe.ReplaceAllString(y, "script: |") },
		message: "Invalid script block syntax",
		isError: true,
	},
	{
		detect:  taskNoVerRe.MatchString,
		fix:     func(y string) string { return taskNoVerRe.ReplaceAllString(y, "task: ${1}@2") },
		message: "Task missing version specification",
	},
	{
		detect:  func(y string) bool { return len(emptyVariableSections(y)) > 0 },
		fix:     fillEmptyVariables,
		message: "Empty variables section",
	},
}

// IsErrorText reports whether s is a failed conversion rather than YAML.
func IsErrorText(s string) bool {
	return strings.HasPrefix(s, "Error") || strings.HasPrefix(s, "Conversion Error")
}

// Lint checks yaml for structural problems and returns the findings along
// with an auto-fixed copy. It returns nil for empty or error input. The
// fixed copy always uses LF line endings.
func Lint(yaml string) *LintResult {
	if yaml == "" || IsErrorText(yaml) {
		return nil
	}
	original := yaml
	// The checks are line-anchored; CRLF input is linted and fixed as LF.
	yaml = strings.ReplaceAll(yaml, "\r\n", "\n")

	var errs, warns, added []string
	fixed := yaml

	var header strings.Builder
	if !strings.Contains(yaml, "trigger") {
		added = append(added, "trigger")
		header.WriteString(defaultTrigger)
	}
	if !strings.Contains(yaml, "pool:") && !strings.Contains(yaml, "vmImage") {
		added = append(added, "pool/vmImage")
		header.WriteString(defaultPool)
	}
	fixed = header.String() + fixed

	if !strings.Contains(yaml, "jobs:") && !strings.Contains(yaml, "steps:") {
		errs = append(errs, "Missing jobs or steps section - required for Azure DevOps pipeline")
	}

	indentErrs, hasTabs := checkIndentation(yaml)
	if hasTabs {
		fixed = strings.ReplaceAll(fixed, "\t", "  ")
	}

	for _, is := range commonIssues {
		if !is.detect(yaml) {
			continue
		}
		if is.isError {
			errs = append(errs, is.message)
		} else {
			warns = append(warns, is.message)
		}
		fixed = is.fix(fixed)
	}

	for _, f := range added {
		warns = append(warns, "Added missing required field: "+f)
	}
	errs = append(errs, indentErrs...)

	if strings.Contains(yaml, "jenkinsfile") || strings.Contains(yaml, "Jenkins") {
		warns = append(warns, "YAML may contain Jenkins-specific references that need manual review")
	}
	for _, m := range taskNameRe.FindAllStringSubmatch(yaml, -1) {
		if !knownTask(m[1]) {
			warns = append(warns, fmt.Sprintf("Unknown or custom task detected: %s - verify this is a valid Azure DevOps task", m[1]))
		}
	}

	summary, err := Summarize(fixed)
	if err != nil {
		warns = append(warns, "Fixed YAML could not be decoded: "+err.Error())
	}

	if errs == nil {
		errs = []string{}
	}
	if warns == nil {
		warns = []string{}
	}
	return &LintResult{
		IsValid:   len(errs) == 0,
		Errors:    errs,
		Warnings:  warns,
		AutoFixed: fixed != original,
		FixedYAML: fixed,
		Summary:   summary,
	}
}

// checkIndentation flags tab characters and odd leading whitespace on
// non-blank lines that do not start with '#'.
func checkIndentation(yaml string) (errs []string, hasTabs bool) {
	for i, line := range strings.Split(yaml, "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "\t") {
			hasTabs = true
			errs = append(errs, fmt.Sprintf("Line %d: Uses tabs instead of spaces", i+1))
		}
		leading := len(line) - len(strings.TrimLeft(line, " \t\r\v\f"))
		if leading%2 != 0 {
			errs = append(errs, fmt.Sprintf("Line %d: Inconsistent indentation (not multiple of 2)", i+1))
		}
	}
	return errs, hasTabs
}

func knownTask(name string) bool {
	for _, t := range KnownTasks {
		if strings.Contains(name, t) {
			return true
		}
	}
	return false
}

// emptyVariableSections returns the line indices of "variables:" headers
// with no nested content. A sequence at the same indentation counts as
// content.
func emptyVariableSections(yaml string) []int {
	lines := strings.Split(yaml, "\n")
	var out []int
	for i, line := range lines {
		m := variablesRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent := len(m[1])
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "- ") {
			indent += 2
		}
		if !hasNestedContent(lines[i+1:], indent) {
			out = append(out, i)
		}
	}
	return out
}

func hasNestedContent(rest []string, indent int) bool {
	for _, l := range rest {
		trimmed := strings.TrimLeft(l, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		n := len(l) - len(trimmed)
		return n > indent || (n == indent && strings.HasPrefix(trimmed, "- "))
	}
	return false
}

func fillEmptyVariables(yaml string) string {
	idx := emptyVariableSections(yaml)
	if len(idx) == 0 {
		return yaml
	}
	lines := strings.Split(yaml, "\n")
	out := make([]string, 0, len(lines)+len(idx))
	next := 0
	for i, line := range lines {
		out = append(out, line)
		if next < len(idx) && idx[next] == i {
			m := variablesRe.FindStringSubmatch(line)
			out = append(out, m[1]+"  # Add your variables here")
			next++
		}
	}
	return strings.Join(out, "\n")
}

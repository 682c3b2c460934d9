// Package jenkins lints uploaded Jenkins pipeline definitions before they
// are sent for conversion. The checks are substring heuristics, not a
// Groovy or XML parser.
package jenkins

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxRecommendedSize is the character count above which a file is flagged
const MaxRecommendedSize = 50000

// Kind classifies an uploaded file by name
type Kind string

const (
	KindGroovy  Kind = "groovy"
	KindXML     Kind = "xml"
	KindUnknown Kind = "unknown"
)

// ValidationResult is the outcome of Validate
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// KindOf reports which rule set applies to filename. Extensions match
// case-insensitively, like Supported.
func KindOf(filename string) Kind {
	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "jenkinsfile"), strings.HasSuffix(lower, ".groovy"):
		return KindGroovy
	case strings.HasSuffix(lower, ".xml"):
		return KindXML
	default:
		return KindUnknown
	}
}

// Supported reports whether filename is in the accepted upload list
// (Jenkinsfile, .groovy, .xml).
func Supported(filename string) bool {
	base := filepath.Base(filename)
	if strings.HasPrefix(strings.ToLower(base), "jenkinsfile") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".groovy" || ext == ".xml"
}

// Validate runs the rule set matching filename over content.
func Validate(filename, content string) ValidationResult {
	var errs, warns []string

	switch KindOf(filename) {
	case KindGroovy:
		errs, warns = checkGroovy(content)
	case KindXML:
		errs, warns = checkXML(content)
	}

	if strings.TrimSpace(content) == "" {
		errs = append(errs, "File appears to be empty")
	}
	if utf8.RuneCountInString(content) > MaxRecommendedSize {
		warns = append(warns, "File size is quite large - consider breaking into smaller components")
	}

	if errs == nil {
		errs = []string{}
	}
	if warns == nil {
		warns = []string{}
	}
	return ValidationResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
}

func checkGroovy(content string) (errs, warns []string) {
	has := func(s string) bool { return strings.Contains(content, s) }

	if !has("pipeline") {
		errs = append(errs, `Missing "pipeline" block - declarative pipeline required`)
	}
	if !has("agent") {
		warns = append(warns, `Missing "agent" declaration`)
	}
	if !has("stages") {
		errs = append(errs, `Missing "stages" block`)
	}
	if !has("stage(") {
		warns = append(warns, "No stage definitions found")
	}
	if has("pipeline") && !has("steps") {
		warns = append(warns, "No step definitions found in pipeline stages")
	}
	if !has("checkout") && !has("git") {
		warns = append(warns, "No source code checkout detected")
	}
	return errs, warns
}

func checkXML(content string) (errs, warns []string) {
	has := func(s string) bool { return strings.Contains(content, s) }

	if !has("<project>") && !has("<flow-definition>") {
		errs = append(errs, "Invalid Jenkins XML - missing project or flow-definition root element")
	}
	if !has("<builders>") && !has("<script>") {
		warns = append(warns, "No build steps or script found in XML configuration")
	}
	if !has("<scm>") && !has("<definition>") {
		warns = append(warns, "No source control management configuration found")
	}
	return errs, warns
}

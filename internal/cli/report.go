package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"jenkins2ado/internal/azure"
	"jenkins2ado/internal/evaluation"
	"jenkins2ado/internal/jenkins"
	"jenkins2ado/internal/ledger"
	"jenkins2ado/pkg/utils"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.Faint)
)

func printMessages(w io.Writer, errs, warns []string) {
	for _, e := range errs {
		errorColor.Fprintf(w, "  ✗ %s\n", e)
	}
	for _, m := range warns {
		warnColor.Fprintf(w, "  ! %s\n", m)
	}
}

func printValidation(w io.Writer, name string, res jenkins.ValidationResult) {
	titleColor.Fprintf(w, "File validation: %s\n", name)
	if res.IsValid {
		successColor.Fprintln(w, "  ✓ valid Jenkins pipeline")
	}
	printMessages(w, res.Errors, res.Warnings)
}

func printLint(w io.Writer, res *azure.LintResult) {
	titleColor.Fprintln(w, "YAML validation")
	if res.IsValid {
		successColor.Fprintln(w, "  ✓ valid Azure DevOps YAML")
	}
	printMessages(w, res.Errors, res.Warnings)
	if res.AutoFixed {
		warnColor.Fprintln(w, "  auto-fixes available")
	}
	if s := res.Summary; s != nil {
		dimColor.Fprintf(w, "  stages=%d jobs=%d steps=%d", s.Stages, s.Jobs, s.Steps)
		if len(s.Triggers) > 0 {
			dimColor.Fprintf(w, " triggers=%s", strings.Join(s.Triggers, ","))
		}
		if s.Pool != "" {
			dimColor.Fprintf(w, " pool=%s", s.Pool)
		}
		fmt.Fprintln(w)
	}
}

func printEvaluation(w io.Writer, res *evaluation.Result) {
	titleColor.Fprintln(w, "Evaluation")
	c := warnColor
	verdict := "Needs Review"
	if res.Passed {
		c = successColor
		verdict = "Passed"
	}
	c.Fprintf(w, "  Overall %d/10 (%s) %s\n", res.OverallScore, evaluation.Band(res.OverallScore), verdict)
	fmt.Fprintf(w, "  quality=%d completeness=%d best-practices=%d\n",
		res.QualityScore, res.Completeness, res.BestPractices)
	if res.HasIssues() {
		fmt.Fprintf(w, "  Issues: %s\n", res.Issues)
	}
	if res.HasRecommendations() {
		fmt.Fprintf(w, "  Recommendations: %s\n", res.Recommendations)
	}
	fmt.Fprintf(w, "  Summary: %s\n", res.Summary)
}

func printRecord(w io.Writer, r ledger.Record) {
	fmt.Fprintf(w, "#%d %s %s approver=%s yaml=%s hash=%s\n",
		r.Index, r.Timestamp, r.SourceName, r.Approver, utils.ShortHash(r.YAMLHash), utils.ShortHash(r.Hash))
}

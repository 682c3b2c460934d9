// Package evaluation asks the language model to grade a finished conversion
// and parses its structured answer.
package evaluation

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"jenkins2ado/internal/azure"
	"jenkins2ado/internal/llm"
	"jenkins2ado/internal/metrics"
)

// PassingScore is the lowest overall score that counts as passed.
const PassingScore = 7

const (
	noIssues          = "No issues identified"
	noRecommendations = "No recommendations"
	noSummary         = "No summary available"
	noEvaluation      = "No evaluation available"
)

// Result is a parsed review.
type Result struct {
	QualityScore    int    `json:"qualityScore"`
	Completeness    int    `json:"completeness"`
	BestPractices   int    `json:"bestPractices"`
	OverallScore    int    `json:"overallScore"`
	Passed          bool   `json:"passed"`
	Issues          string `json:"issues"`
	Recommendations string `json:"recommendations"`
	Summary         string `json:"summary"`
	RawEvaluation   string `json:"rawEvaluation"`
}

// HasIssues reports whether the review listed any issue.
func (r *Result) HasIssues() bool { return r.Issues != noIssues }

// HasRecommendations reports whether the review made recommendations.
func (r *Result) HasRecommendations() bool { return r.Recommendations != noRecommendations }

var (
	qualityRe         = regexp.MustCompile(`QUALITY_SCORE:\s*(\d+)`)
	completenessRe    = regexp.MustCompile(`COMPLETENESS:\s*(\d+)`)
	bestPracticesRe   = regexp.MustCompile(`BEST_PRACTICES:\s*(\d+)`)
	issuesRe          = regexp.MustCompile(`(?s)ISSUES:\s*(.*?)(?:RECOMMENDATIONS:|SUMMARY:|$)`)
	recommendationsRe = regexp.MustCompile(`(?s)RECOMMENDATIONS:\s*(.*?)(?:SUMMARY:|$)`)
	summaryRe         = regexp.MustCompile(`(?s)SUMMARY:\s*(.*?)$`)
)

// Evaluator grades conversions with a language model.
type Evaluator struct {
	client llm.Client
	logger *zap.Logger
}

func NewEvaluator(client llm.Client, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{client: client, logger: logger}
}

// Evaluate reviews yaml against the original Jenkins source. It returns nil
// when there is nothing to evaluate; a failed call yields a zero-score
// result describing the failure rather than an error.
func (e *Evaluator) Evaluate(ctx context.Context, yaml, jenkins string) *Result {
	if yaml == "" || jenkins == "" || azure.IsErrorText(yaml) {
		return nil
	}

	start := time.Now()
	text, err := e.client.Generate(ctx, Prompt(jenkins, yaml))
	metrics.ObserveLLM(e.client.Name(), "evaluation", start, err)
	if err != nil {
		e.logger.Error("evaluation failed", zap.String("provider", e.client.Name()), zap.Error(err))
		return Failed(err)
	}
	if text == "" {
		text = noEvaluation
	}

	res := Parse(text)
	metrics.EvaluationScore.Observe(float64(res.OverallScore))
	e.logger.Info("evaluation complete",
		zap.Int("overall", res.OverallScore),
		zap.Bool("passed", res.Passed),
		zap.Duration("took", time.Since(start)))
	return res
}

// Parse reads the structured review format requested by Prompt.
func Parse(text string) *Result {
	r := &Result{
		QualityScore:    intField(qualityRe, text),
		Completeness:    intField(completenessRe, text),
		BestPractices:   intField(bestPracticesRe, text),
		Issues:          textField(issuesRe, text, noIssues),
		Recommendations: textField(recommendationsRe, text, noRecommendations),
		Summary:         textField(summaryRe, text, noSummary),
		RawEvaluation:   text,
	}
	r.OverallScore = int(math.Round(float64(r.QualityScore+r.Completeness+r.BestPractices) / 3))
	r.Passed = r.OverallScore >= PassingScore
	return r
}

// Failed builds the result reported when the review call fails.
func Failed(err error) *Result {
	return &Result{
		Issues:          "Evaluation failed: " + err.Error(),
		Recommendations: "Please check API configuration and try again",
		Summary:         "Evaluation could not be completed",
		RawEvaluation:   "Error: " + err.Error(),
	}
}

func intField(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func textField(re *regexp.Regexp, text, fallback string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	return strings.TrimSpace(m[1])
}

// Band names the display band of a 0-10 score.
func Band(score int) string {
	switch {
	case score >= 8:
		return "excellent"
	case score >= 6:
		return "good"
	default:
		return "needs-improvement"
	}
}

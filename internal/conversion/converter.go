// Package conversion asks the language model to rewrite a Jenkins pipeline
// as Azure DevOps YAML.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"jenkins2ado/internal/llm"
	"jenkins2ado/internal/metrics"
)

const (
	promptHeader = "Convert this Jenkins pipeline to Azure DevOps YAML format. Please provide only the YAML output without explanations:\n\n"

	// EmptyResult stands in for a model answer with no text.
	EmptyResult = "No conversion result available"
)

// ErrNotReady is returned when there is no content or the file failed validation.
var ErrNotReady = errors.New("conversion requires validated file content")

var fenceRe = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*[ \t]*\r?\n(.*?)\r?\n?```$")

// Converter turns Jenkins pipeline text into Azure DevOps YAML.
type Converter struct {
	client llm.Client
	logger *zap.Logger
}

func NewConverter(client llm.Client, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{client: client, logger: logger}
}

// Prompt builds the conversion request for content.
func Prompt(content string) string {
	return promptHeader + content
}

// Convert sends content to the model. valid is the file validation verdict;
// an invalid or empty file is refused with ErrNotReady.
func (c *Converter) Convert(ctx context.Context, content string, valid bool) (string, error) {
	if content == "" || !valid {
		return "", ErrNotReady
	}

	start := time.Now()
	out, err := c.client.Generate(ctx, Prompt(content))
	metrics.ObserveLLM(c.client.Name(), "conversion", start, err)
	if err != nil {
		c.logger.Error("conversion failed", zap.String("provider", c.client.Name()), zap.Error(err))
		return "", err
	}

	out = StripFence(out)
	if strings.TrimSpace(out) == "" {
		return EmptyResult, nil
	}
	c.logger.Info("conversion complete",
		zap.String("provider", c.client.Name()),
		zap.Int("yaml_bytes", len(out)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// StripFence removes one Markdown code fence wrapping the whole answer.
func StripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		return m[1] + "\n"
	}
	return s
}

// ErrorText renders a failed conversion for display in place of the YAML.
func ErrorText(err error) string {
	return fmt.Sprintf("Conversion Error: %s\n\nPlease verify your API configuration and network connection.", err.Error())
}

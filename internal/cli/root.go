// Package cli implements the j2ado command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jenkins2ado/internal/config"
	"jenkins2ado/internal/llm"
	"jenkins2ado/internal/logging"
)

// Version is set at build time.
var Version = "dev"

// newClient builds the model client; tests replace it.
var newClient = llm.New

type rootOptions struct {
	configPath string
	jsonOutput bool
	logLevel   string
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "j2ado",
		Short: "Convert Jenkins pipelines to Azure DevOps YAML",
		Long: `j2ado validates Jenkins pipeline definitions, converts them to Azure
DevOps YAML with a language model, checks and reviews the result, and
records approved pipelines in a signed ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./j2ado.yaml)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newVersionCommand(),
		newValidateCommand(opts),
		newLintCommand(opts),
		newConvertCommand(opts),
		newSubmitCommand(opts),
		newLedgerCommand(opts),
		newKeygenCommand(opts),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "j2ado %s (%s)\n", Version, runtime.Version())
		},
	}
}

// Execute runs the root command
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

func (o *rootOptions) config() (*config.Config, error) {
	return config.LoadFile(o.configPath)
}

func (o *rootOptions) logger(cmd *cobra.Command) *zap.Logger {
	logger, err := logging.New(o.logLevel, "console")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		return zap.NewNop()
	}
	return logger
}

func (o *rootOptions) client(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	temp := cfg.LLM.Temperature
	return newClient(ctx, llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
		Temperature: &temp,
	}, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeOutput(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

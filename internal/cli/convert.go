package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jenkins2ado/internal/config"
	"jenkins2ado/internal/conversion"
	"jenkins2ado/internal/core"
	"jenkins2ado/internal/evaluation"
	"jenkins2ado/internal/ledger"
	"jenkins2ado/internal/security"
	"jenkins2ado/internal/storage"
)

type convertOptions struct {
	output     string
	noEvaluate bool
	approve    bool
	approver   string
}

func newConvertCommand(opts *rootOptions) *cobra.Command {
	co := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert <Jenkinsfile|job.xml>",
		Short: "Run the full conversion workflow locally",
		Long: `Validate a Jenkins definition, convert it with the configured model,
check the YAML and review it. The YAML goes to stdout (or -o) and the
report to stderr.

With --approve the result is also stored under storage.artifact_dir and
recorded in the signed ledger, exactly as the server's approve endpoint does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, co, args[0])
		},
	}
	cmd.Flags().StringVarP(&co.output, "output", "o", "", "write the YAML to this file")
	cmd.Flags().BoolVar(&co.noEvaluate, "no-evaluate", false, "skip the model review")
	cmd.Flags().BoolVar(&co.approve, "approve", false, "approve the result and record it in the ledger")
	cmd.Flags().StringVar(&co.approver, "approver", os.Getenv("USER"), "name recorded with the approval")
	return cmd
}

func runConvert(cmd *cobra.Command, opts *rootOptions, co *convertOptions, path string) error {
	ctx := cmd.Context()
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cfg, err := opts.config()
	if err != nil {
		return err
	}
	logger := opts.logger(cmd)
	defer func() { _ = logger.Sync() }()

	client, err := opts.client(ctx, cfg, logger)
	if err != nil {
		return err
	}

	runOpts := core.Options{
		Converter:   conversion.NewConverter(client, logger),
		Scheduler:   core.NewScheduler(cfg.Approval.RequirePassingEvaluation),
		StepTimeout: cfg.LLM.StepTimeout,
		Logger:      logger,
	}
	if !co.noEvaluate {
		runOpts.Evaluator = evaluation.NewEvaluator(client, logger)
	}
	if co.approve {
		if err := attachApproval(&runOpts, cfg, logger); err != nil {
			return err
		}
	}
	runner := core.NewRunner(core.NewStore(), runOpts)

	report := cmd.ErrOrStderr()
	sess, err := runner.Upload(ctx, name, data)
	if err != nil {
		return err
	}
	if !opts.jsonOutput {
		printValidation(report, name, *sess.Validation)
	}
	if !sess.Validation.IsValid {
		if opts.jsonOutput {
			_ = printJSON(cmd.OutOrStdout(), sess)
		}
		return errValidationFailed
	}

	sess, err = runner.Convert(ctx, sess.ID)
	if err != nil {
		return err
	}
	if sess.ConversionError != "" {
		if opts.jsonOutput {
			_ = printJSON(cmd.OutOrStdout(), sess)
		}
		return errors.New(sess.ConversionError)
	}
	if !opts.jsonOutput {
		printSessionReport(report, sess)
	}

	yaml := sess.ReviewYAML()
	if co.approve {
		sess, err = runner.Approve(ctx, sess.ID, co.approver)
		if err != nil {
			return err
		}
		yaml = sess.ApprovedYAML
		if !opts.jsonOutput {
			successColor.Fprintf(report, "Approved by %s, ledger record #%d\n", sess.Approval.Approver, sess.Approval.Index)
		}
	}

	switch {
	case opts.jsonOutput:
		if co.output != "" {
			if err := writeOutput(co.output, yaml); err != nil {
				return err
			}
		}
		return printJSON(cmd.OutOrStdout(), sess)
	case co.output != "":
		if err := writeOutput(co.output, yaml); err != nil {
			return err
		}
		successColor.Fprintf(report, "YAML written to %s\n", co.output)
		return nil
	default:
		_, err := io.WriteString(cmd.OutOrStdout(), yaml)
		return err
	}
}

func attachApproval(o *core.Options, cfg *config.Config, logger *zap.Logger) error {
	keys, created, err := security.EnsureKeyPair(cfg.Keys.Dir)
	if err != nil {
		return fmt.Errorf("approval keys: %w", err)
	}
	if created {
		logger.Info("generated approval keys", zap.String("dir", cfg.Keys.Dir))
	}
	l, err := ledger.Open(cfg.Ledger.Path, keys)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	o.Ledger = l
	o.Artifacts = storage.NewArtifactStorage(cfg.Storage.ArtifactDir)
	return nil
}

func printSessionReport(w io.Writer, s core.Session) {
	if s.Lint != nil {
		printLint(w, s.Lint)
	}
	if s.Evaluation != nil {
		printEvaluation(w, s.Evaluation)
	}
}

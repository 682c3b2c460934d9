package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jenkins2ado/internal/azure"
	"jenkins2ado/internal/core"
	"jenkins2ado/internal/jenkins"
)

var errValidationFailed = errors.New("validation failed")

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <Jenkinsfile|job.xml>",
		Short: "Check a Jenkins pipeline definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			name := filepath.Base(path)
			if !jenkins.Supported(name) {
				return core.ErrUnsupportedFile
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			res := jenkins.Validate(name, string(data))
			if opts.jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				printValidation(cmd.OutOrStdout(), name, res)
			}
			if !res.IsValid {
				return errValidationFailed
			}
			return nil
		},
	}
}

func newLintCommand(opts *rootOptions) *cobra.Command {
	var (
		fix    bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "lint <azure-pipelines.yml>",
		Short: "Check Azure DevOps YAML and optionally apply auto-fixes",
		Long: `Check Azure DevOps YAML for missing required fields, indentation and
common mistakes.

Examples:
  j2ado lint azure-pipelines.yml
  j2ado lint --fix azure-pipelines.yml          # rewrite the file in place
  j2ado lint --fix -o fixed.yml pipeline.yml    # write fixes elsewhere`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res := azure.Lint(string(data))
			if res == nil {
				return fmt.Errorf("%s: no YAML to validate", args[0])
			}

			if opts.jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				printLint(cmd.OutOrStdout(), res)
			}

			if fix && res.AutoFixed {
				dest := output
				if dest == "" {
					dest = args[0]
				}
				if err := writeOutput(dest, res.FixedYAML); err != nil {
					return err
				}
				if !opts.jsonOutput {
					successColor.Fprintf(cmd.OutOrStdout(), "Fixed YAML written to %s\n", dest)
				}
			}
			if !res.IsValid {
				return errValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "apply auto-fixes")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write fixed YAML here instead of in place")
	return cmd
}

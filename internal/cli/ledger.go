package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"jenkins2ado/internal/ledger"
	"jenkins2ado/internal/security"
	"jenkins2ado/pkg/utils"
)

func newLedgerCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or verify the approval ledger",
	}
	cmd.AddCommand(newLedgerInspectCommand(opts), newLedgerVerifyCommand(opts))
	return cmd
}

// ledgerPath is the positional argument or the configured ledger.path.
func (o *rootOptions) ledgerPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := o.config()
	if err != nil {
		return "", err
	}
	return cfg.Ledger.Path, nil
}

func newLedgerInspectCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [ledger.jsonl]",
		Short: "List approval records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.ledgerPath(args)
			if err != nil {
				return err
			}
			l, err := ledger.Open(path, nil)
			if err != nil {
				return err
			}
			records := l.Records()
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				dimColor.Fprintln(cmd.OutOrStdout(), "ledger is empty")
			}
			for _, r := range records {
				printRecord(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
}

func newLedgerVerifyCommand(opts *rootOptions) *cobra.Command {
	var (
		checkArtifacts bool
		keysDir        string
	)
	cmd := &cobra.Command{
		Use:   "verify [ledger.jsonl]",
		Short: "Check record hashes, chain links and signatures",
		Long: `Check record hashes, chain links and signatures. Every record must be
signed by the public key in --keys (default keys.dir from config); a record
re-signed with any other key fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.ledgerPath(args)
			if err != nil {
				return err
			}
			if keysDir == "" {
				cfg, err := opts.config()
				if err != nil {
					return err
				}
				keysDir = cfg.Keys.Dir
			}
			keys, err := security.LoadPublicKeyPair(keysDir)
			if err != nil {
				return fmt.Errorf("trusted key: %w", err)
			}

			l, err := ledger.Open(path, keys)
			if err != nil {
				return err
			}
			if err := l.Verify(); err != nil {
				errorColor.Fprintf(cmd.OutOrStdout(), "✗ %v\n", err)
				return fmt.Errorf("ledger verification failed")
			}
			if checkArtifacts {
				if err := verifyArtifacts(l.Records()); err != nil {
					errorColor.Fprintf(cmd.OutOrStdout(), "✗ %v\n", err)
					return fmt.Errorf("artifact verification failed")
				}
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✓ ledger ok (%d records)", len(l.Records()))
			if head := l.LastHash(); head != "" {
				dimColor.Fprintf(cmd.OutOrStdout(), " head=%s", utils.ShortHash(head))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkArtifacts, "artifacts", false, "also re-hash each approved YAML file")
	cmd.Flags().StringVar(&keysDir, "keys", "", "directory holding the trusted approver.pub")
	return cmd
}

func verifyArtifacts(records []ledger.Record) error {
	for _, r := range records {
		if r.ArtifactPath == "" {
			continue
		}
		h, err := utils.HashFile(r.ArtifactPath)
		if err != nil {
			return fmt.Errorf("record %d: %w", r.Index, err)
		}
		if h != r.YAMLHash {
			return fmt.Errorf("record %d: %s does not match its approved hash", r.Index, r.ArtifactPath)
		}
	}
	return nil
}

package cli

import (
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"jenkins2ado/internal/security"
)

func newKeygenCommand(opts *rootOptions) *cobra.Command {
	var (
		dir   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create the ed25519 key pair used to sign approvals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				cfg, err := opts.config()
				if err != nil {
					return err
				}
				dir = cfg.Keys.Dir
			}

			var (
				kp      *security.KeyPair
				created bool
				err     error
			)
			if force {
				if kp, err = security.GenerateKeyPair(); err == nil {
					err = kp.Save(dir)
				}
				created = true
			} else {
				kp, created, err = security.EnsureKeyPair(dir)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if created {
				successColor.Fprintf(out, "Generated key pair in %s\n", dir)
			} else {
				dimColor.Fprintf(out, "Key pair already present in %s (use --force to replace)\n", dir)
			}
			fmt.Fprintf(out, "public key: %s\n", hex.EncodeToString(kp.Public))
			fmt.Fprintf(out, "files: %s, %s\n",
				filepath.Join(dir, security.PublicKeyFile), filepath.Join(dir, security.PrivateKeyFile))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "key directory (default keys.dir from config)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing key pair")
	return cmd
}

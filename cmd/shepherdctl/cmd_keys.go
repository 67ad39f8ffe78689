package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgo/shepherd/api/pkg/jwt"

	"github.com/spf13/cobra"
)

func newKeysCmd(a *app) *cobra.Command {
	var (
		privatePath string
		publicPath  string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate the RSA key pair used to sign access tokens",
		Long: `Writes a 2048-bit RSA private key and its public half as PEM files.

Defaults come from JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH. Existing
files are left alone unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if privatePath == "" {
				privatePath = a.cfg.JWT.PrivateKeyPath
			}
			if publicPath == "" {
				publicPath = a.cfg.JWT.PublicKeyPath
			}

			if !force {
				for _, p := range []string{privatePath, publicPath} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s already exists (use --force to overwrite)", p)
					} else if !errors.Is(err, os.ErrNotExist) {
						return err
					}
				}
			}
			for _, p := range []string{privatePath, publicPath} {
				if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
					return fmt.Errorf("creating key directory: %w", err)
				}
			}

			if err := jwt.GenerateKeyPair(privatePath, publicPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Private key: %s\nPublic key:  %s\n", privatePath, publicPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&privatePath, "private", "", "Private key output path")
	cmd.Flags().StringVar(&publicPath, "public", "", "Public key output path")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing keys")
	return cmd
}

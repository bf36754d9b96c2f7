package cli

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/crypto"
)

// file naming convention - name.public.jwk and name.private.jwk
const (
	publicKeyFileNameFormat  = "%s.public.jwk"
	privateKeyFileNameFormat = "%s.private.jwk"
)

func newKeygenCmd() *cobra.Command {
	var (
		name      string
		outputDir string
		kid       string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 key pair in JWK format",
		Long: `Generate an Ed25519 key pair for a DID verification method.

Use the DID method id as key id so that presentations signed with the key
reference the method.

Example:
  anchors keygen --name alice --output-dir ./keys --kid "did:example:alice#key-1"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			privateKey, err := crypto.GenerateEd25519KeyPair()
			if err != nil {
				return fmt.Errorf("failed to generate Ed25519 key: %w", err)
			}
			publicKey := privateKey.Public().(ed25519.PublicKey)

			// thumbprint based key id if not provided
			keyID := kid
			if keyID == "" {
				keyID, err = crypto.GenerateKeyIDFromEd25519Key(publicKey)
				if err != nil {
					return fmt.Errorf("failed to generate key ID: %w", err)
				}
			}

			publicJWK, err := crypto.Ed25519PublicKeyToJWK(publicKey, keyID)
			if err != nil {
				return err
			}
			privateJWK, err := crypto.Ed25519PrivateKeyToJWK(privateKey, keyID)
			if err != nil {
				return err
			}

			publicName := fmt.Sprintf(publicKeyFileNameFormat, name)
			if err := crypto.SaveJWKFile(publicJWK, outputDir, publicName, 0o644); err != nil {
				return fmt.Errorf("failed to save public key: %w", err)
			}
			privateName := fmt.Sprintf(privateKeyFileNameFormat, name)
			if err := crypto.SaveJWKFile(privateJWK, outputDir, privateName, 0o600); err != nil {
				return fmt.Errorf("failed to save private key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Public JWK:  %s (kid: %s)\n", filepath.Join(outputDir, publicName), keyID)
			fmt.Fprintf(out, "✓ Private JWK: %s (kid: %s)\n", filepath.Join(outputDir, privateName), keyID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "File name prefix of the key pair [required]")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory for generated keys [required]")
	cmd.Flags().StringVarP(&kid, "kid", "k", "", "Key ID (default: derived from the key thumbprint)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("output-dir")
	return cmd
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/identity"
)

func newVPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vp",
		Short: "Sign and verify verifiable presentations (JWT)",
	}
	cmd.AddCommand(newVPSignCmd())
	cmd.AddCommand(newVPVerifyCmd(a))
	return cmd
}

func newVPSignCmd() *cobra.Command {
	var (
		holderDID string
		method    string
		keyPath   string
		audience  []string
		nonce     string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sign <vcJWT>",
		Short: "Wrap a credential JWT in a presentation signed by the holder",
		Long: `Wrap a verifiable credential (JWT) in a verifiable presentation signed with the
holder's verification method key and print the presentation JWT.

Example:
  anchors vp sign "$VC" --holder-did did:example:alice --key ./keys/alice.private.jwk --aud https://verifier.example`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKeyFile(keyPath)
			if err != nil {
				return err
			}

			token, err := identity.SignPresentation(args[0], identity.Holder{
				DID:      holderDID,
				MethodID: holderDID + "#" + method,
				Key:      key,
			}, identity.PresentationOptions{
				Audience: audience,
				Nonce:    nonce,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&holderDID, "holder-did", "", "DID of the holder [required]")
	cmd.Flags().StringVar(&method, "method", "key-1", "Fragment of the holder verification method")
	cmd.Flags().StringVar(&keyPath, "key", "", "Private JWK file of the method [required]")
	cmd.Flags().StringSliceVar(&audience, "aud", nil, "Audience of the presentation")
	cmd.Flags().StringVar(&nonce, "nonce", "", "Nonce supplied by the verifier")
	cmd.Flags().DurationVar(&ttl, "ttl", identity.DefaultPresentationTTL, "Validity of the presentation")
	cmd.MarkFlagRequired("holder-did")
	cmd.MarkFlagRequired("key")
	return cmd
}

func newVPVerifyCmd(a *app) *cobra.Command {
	var (
		audience string
		nonce    string
	)

	cmd := &cobra.Command{
		Use:   "verify <vpJWT>",
		Short: "Verify a presentation against the holder keys published on the node",
		Long: `Resolve the presentation issuer on the node, check the signature with the published
key set and validate the time claims. The decoded presentation is printed.

Example:
  anchors vp verify "$VP" --aud https://verifier.example --node http://localhost:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verifier, err := identity.NewVerifier(cmd.Context(), a.httpClient(), a.logger)
			if err != nil {
				return err
			}
			defer verifier.Close(cmd.Context())

			vp, err := verifier.VerifyPresentation(cmd.Context(), a.cfg.NodeURL, args[0], identity.VerifyOptions{
				Audience: audience,
				Nonce:    nonce,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), vp)
		},
	}

	cmd.Flags().StringVar(&audience, "aud", "", "Required audience")
	cmd.Flags().StringVar(&nonce, "nonce", "", "Required nonce")
	return cmd
}

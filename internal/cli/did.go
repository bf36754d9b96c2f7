package cli

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/identity"
)

func newDIDCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "did",
		Short: "Resolve and register DID documents on the node",
	}
	cmd.AddCommand(newDIDResolveCmd(a))
	cmd.AddCommand(newDIDRegisterCmd(a))
	return cmd
}

func newDIDResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <did|did#method>",
		Short: "Resolve a DID document or one of its verification methods",
		Long: `Resolve a DID document from the node identity endpoint and verify its integrity.
When a method reference (did#fragment) is given only that method is printed.

Example:
  anchors did resolve did:example:alice --node http://localhost:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := identity.NewResolver(a.httpClient())

			if strings.Contains(args[0], "#") {
				method, err := resolver.ResolveMethod(cmd.Context(), a.cfg.NodeURL, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), method)
			}

			doc, err := resolver.Resolve(cmd.Context(), a.cfg.NodeURL, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
}

func newDIDRegisterCmd(a *app) *cobra.Command {
	var (
		did      string
		fragment string
		keyPath  string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Publish a DID document with one Ed25519 verification method",
		Long: `Build a DID document whose verification method is the public part of --key, check
that the key signs for the method and publish the document on the node.

Example:
  anchors did register --did did:example:alice --key ./keys/alice.private.jwk`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readKeyFile(keyPath)
			if err != nil {
				return err
			}

			doc, err := identity.NewDocument(did)
			if err != nil {
				return err
			}
			method, err := doc.AddMethod(fragment, secret)
			if err != nil {
				return err
			}
			if err := identity.VerifyOwnership(doc, method.ID, secret); err != nil {
				return err
			}

			resolver := identity.NewResolver(a.httpClient())
			if err := resolver.Register(cmd.Context(), a.cfg.NodeURL, doc); err != nil {
				return err
			}
			a.logger.Info("DID document registered", slog.String("did", did), slog.String("method", method.ID))

			return printJSON(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().StringVar(&did, "did", "", "DID of the document [required]")
	cmd.Flags().StringVar(&fragment, "fragment", "key-1", "Fragment of the verification method")
	cmd.Flags().StringVar(&keyPath, "key", "", "Private JWK file of the method [required]")
	cmd.MarkFlagRequired("did")
	cmd.MarkFlagRequired("key")
	return cmd
}

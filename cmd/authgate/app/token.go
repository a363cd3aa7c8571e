package app

import (
	"fmt"
	"time"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	auth "github.com/goliatone/go-auth-gate"
)

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect bearer tokens",
	}

	issue := &cobra.Command{
		Use:   "issue <username>",
		Short: "Sign a token for username with the configured key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := tokenService(cmd, v)
			if err != nil {
				return err
			}

			ttl, err := cmd.Flags().GetDuration("ttl")
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = tokens.TTL()
			}

			token, err := tokens.IssueWithTTL(args[0], ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().Duration("ttl", 0, "Token lifetime, defaults to the configured TTL")

	inspect := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := tokenService(cmd, v)
			if err != nil {
				return err
			}

			claims, err := tokens.Claims(args[0])
			if err != nil {
				return fmt.Errorf("token rejected (%s): %w", auth.RejectReasonFor(err), err)
			}

			out := map[string]any{
				"sub":        claims.Subject,
				"exp":        claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
				"expires_in": time.Until(claims.ExpiresAt.Time).Round(time.Second).String(),
			}
			if claims.IssuedAt != nil {
				out["iat"] = claims.IssuedAt.Time.UTC().Format(time.RFC3339)
			}

			fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(out))
			return nil
		},
	}

	cmd.AddCommand(issue, inspect)
	return cmd
}

func tokenService(cmd *cobra.Command, v *viper.Viper) (*auth.TokenService, error) {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return nil, err
	}
	return auth.NewTokenServiceFromConfig(cfg, auth.NopLogger())
}

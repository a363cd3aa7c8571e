package app

import (
	"context"
	"fmt"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	auth "github.com/goliatone/go-auth-gate"
)

func newUserCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts directly in the database",
	}

	create := &cobra.Command{
		Use:   "create <username> <email>",
		Short: "Create an account, optionally with the ADMIN role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			displayName, _ := cmd.Flags().GetString("display-name")
			roleName, _ := cmd.Flags().GetString("role")

			role, ok := auth.ParseRole(roleName)
			if !ok {
				return fmt.Errorf("unknown role %q, expected one of %v", roleName, auth.GetAllRoles())
			}

			if displayName == "" {
				displayName = args[0]
			}

			return withUsers(cmd, v, func(ctx context.Context, users *auth.UsersRepository) error {
				hash, err := auth.NewBcryptHasher(0).Hash(secret)
				if err != nil {
					return err
				}

				user, err := users.Create(ctx, &auth.User{
					Username:     args[0],
					Email:        args[1],
					PasswordHash: hash,
					DisplayName:  displayName,
					Role:         role,
					Enabled:      true,
				})
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(user.Identity()))
				return nil
			})
		},
	}
	create.Flags().String("secret", "", "Account password")
	create.Flags().String("display-name", "", "Display name, defaults to the username")
	create.Flags().String("role", string(auth.RoleUser), "Account role (USER or ADMIN)")
	_ = create.MarkFlagRequired("secret")

	setEnabled := func(enabled bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd, v, func(ctx context.Context, users *auth.UsersRepository) error {
				user, err := users.FindByUsername(ctx, args[0])
				if err != nil {
					return fmt.Errorf("user %s: %w", args[0], err)
				}
				return users.SetEnabled(ctx, user.ID, enabled)
			})
		}
	}

	disable := &cobra.Command{
		Use:   "disable <username>",
		Short: "Block new logins for an account",
		Args:  cobra.ExactArgs(1),
		RunE:  setEnabled(false),
	}

	enable := &cobra.Command{
		Use:   "enable <username>",
		Short: "Re-enable a disabled account",
		Args:  cobra.ExactArgs(1),
		RunE:  setEnabled(true),
	}

	cmd.AddCommand(create, disable, enable)
	return cmd
}

func withUsers(cmd *cobra.Command, v *viper.Viper, fn func(context.Context, *auth.UsersRepository) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}

	db, err := OpenDB(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, auth.NewUsersRepository(db))
}

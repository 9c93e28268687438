package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/smart-finance/internal/accounts"
	"github.com/Veraticus/smart-finance/internal/app"
	"github.com/Veraticus/smart-finance/internal/cli"
	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/spf13/cobra"
)

func signupCmd() *cobra.Command {
	var in accounts.NewAccount

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Long: `Register a new account. Missing details are prompted for; the password is
always read interactively and never echoed.`,
		Example: `  finance signup --first-name Ada --last-name Lovelace --email ada@example.com`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()
			p := prompter(cmd)

			var err error
			if in.FirstName, err = askIfEmpty(ctx, p, in.FirstName, "First name"); err != nil {
				return err
			}
			if in.LastName, err = askIfEmpty(ctx, p, in.LastName, "Last name"); err != nil {
				return err
			}
			if in.Email, err = askIfEmpty(ctx, p, in.Email, "Email"); err != nil {
				return err
			}
			if in.Password, err = p.Password(ctx, "Password"); err != nil {
				return err
			}
			confirm, err := p.Password(ctx, "Confirm password")
			if err != nil {
				return err
			}
			if confirm != in.Password {
				return common.NewUserError("passwords do not match", nil)
			}

			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			state, err := env.app.Signup(ctx, in)
			switch {
			case errors.Is(err, accounts.ErrDuplicateEmail):
				return common.NewUserError("an account with this email already exists, log in instead", err)
			case err != nil:
				return err
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Welcome, %s! You are now logged in.", state.Account.FirstName)))
			return nil
		},
	}

	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "email address")

	return cmd
}

func loginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			p := prompter(cmd)

			addr, err := askIfEmpty(ctx, p, email, "Email")
			if err != nil {
				return err
			}
			password, err := p.Password(ctx, "Password")
			if err != nil {
				return err
			}

			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			state, err := env.app.Login(ctx, addr, password)
			if err != nil {
				if errors.Is(err, common.ErrInvalidCredentials) {
					return common.NewUserError("invalid email or password", err)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Logged in as %s", state.Account.FullName())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnvironment(commandContext(cmd))
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.app.Logout(); err != nil {
				return fmt.Errorf("failed to log out: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Logged out"))
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(_ context.Context, env *environment, state *app.State) error {
				acct := state.Account
				content := fmt.Sprintf("Name:     %s\nEmail:    %s\nJoined:   %s\nSession:  valid until %s\nRecords:  %d",
					acct.FullName(),
					acct.Email,
					acct.DateJoined,
					state.Session.ExpiresAt.Local().Format("Jan 02, 2006 15:04"),
					state.Ledger.Len())
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.UserIcon+" Account", content))
				return nil
			})
		},
	}
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the logged-in account",
	}

	cmd.AddCommand(accountUpdateCmd())
	cmd.AddCommand(accountPasswordCmd())
	cmd.AddCommand(accountDeleteCmd())

	return cmd
}

func accountUpdateCmd() *cobra.Command {
	var firstName, lastName string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the name on the account",
		Example: `  finance account update --last-name Byron`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if firstName == "" && lastName == "" {
				return common.NewUserError("nothing to update, pass --first-name and/or --last-name", nil)
			}
			return withSession(cmd, func(_ context.Context, env *environment, state *app.State) error {
				acct, err := env.app.Accounts.UpdateProfile(state.Account.Email, firstName, lastName)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Profile updated: %s", acct.FullName())))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "new first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "new last name")

	return cmd
}

func accountPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, env *environment, state *app.State) error {
				p := prompter(cmd)
				current, err := p.Password(ctx, "Current password")
				if err != nil {
					return err
				}
				next, err := p.Password(ctx, "New password")
				if err != nil {
					return err
				}
				confirm, err := p.Password(ctx, "Confirm new password")
				if err != nil {
					return err
				}
				if next != confirm {
					return common.NewUserError("passwords do not match", nil)
				}

				if err := env.app.Accounts.ChangePassword(state.Account.Email, current, next); err != nil {
					if errors.Is(err, common.ErrInvalidCredentials) {
						return common.NewUserError("current password is incorrect", err)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Password changed"))
				return nil
			})
		},
	}
}

func accountDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the logged-in account",
		Long: `Remove the account and end the session. Records are kept in the shared
record store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, env *environment, state *app.State) error {
				out := cmd.OutOrStdout()
				if !force {
					fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("This will permanently delete the account %s.", state.Account.Email)))
					ok, err := prompter(cmd).Confirm(ctx, "Continue?")
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, cli.SubtitleStyle.Render("Account deletion cancelled."))
						return nil
					}
				}

				email := state.Account.Email
				if err := env.app.DeleteAccount(state); err != nil {
					return fmt.Errorf("failed to delete account: %w", err)
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted account %s", email)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")

	return cmd
}

// askIfEmpty prompts for label unless value was already given on the
// command line.
func askIfEmpty(ctx context.Context, p *cli.Prompter, value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.AskRequired(ctx, label)
}

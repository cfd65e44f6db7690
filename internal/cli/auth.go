package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rebano/rebano-go/internal/gateway"
)

// NewLoginCommand creates the login command.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:           "login",
		Short:         "Sign in and store the session credential",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return NewExitError(ExitCommandError, "--email is required")
			}
			password, err := getPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return WrapExitError(ExitCommandError, "reading password", err)
			}
			acct, err := opts.app.session.Login(cmd.Context(), email, password)
			if err != nil {
				return WrapExitError(ExitUnauthorized, "login failed", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sesión iniciada como %s\n", acct.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:           "register",
		Short:         "Create an account",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" || strings.TrimSpace(name) == "" {
				return NewExitError(ExitCommandError, "--email and --name are required")
			}
			password, err := getPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return WrapExitError(ExitCommandError, "reading password", err)
			}
			if len(password) < 6 {
				return NewExitError(ExitCommandError, "password must be at least 6 characters")
			}
			acct, err := opts.app.session.Register(cmd.Context(), name, email, password)
			if err != nil {
				return WrapExitError(ExitFailure, "registration failed", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cuenta creada para %s. Ejecuta `rebano login` para entrar.\n", acct.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Forget the stored session credential",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.session.Logout(); err != nil {
				return WrapExitError(ExitFailure, "logout failed", err)
			}
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(opts *RootOptions) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:           "whoami",
		Short:         "Show the signed-in user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if remote {
				acct, err := opts.app.session.Whoami(cmd.Context())
				if errors.Is(err, gateway.ErrSessionExpired) {
					return NewExitError(ExitUnauthorized, "not signed in")
				}
				if err != nil {
					return WrapExitError(ExitFailure, "account lookup failed", err)
				}
				fmt.Fprintf(out, "%s <%s> (%s)\n", acct.DisplayName, acct.Email, acct.LocalID)
				return nil
			}

			user, ok, err := opts.app.session.Restore(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "verifying session", err)
			}
			if !ok {
				return NewExitError(ExitUnauthorized, "not signed in")
			}
			fmt.Fprintf(out, "%s <%s> role=%s\n", user.Name, user.Email, user.Role)
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "provider", false, "ask the auth provider instead of the API")
	return cmd
}

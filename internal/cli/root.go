package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "html"
	Verbose    bool
	Strict     bool

	app *app
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "html"}

// NewRootCommand creates the root command for the rebano CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rebano",
		Short: "Rebano - gestión de ganado",
		Long:  "Command-line client for the Rebano farm management API, with an offline content cache.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			a, err := newApp(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return WrapExitError(ExitCommandError, "loading configuration", err)
			}
			opts.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.app == nil {
				return nil
			}
			return opts.app.close(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath(), "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|html)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&opts.Strict, "strict", false, "fail on unrecognized list responses")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	for _, name := range domainNames {
		cmd.AddCommand(NewDomainCommand(opts, name))
	}
	cmd.AddCommand(NewDashboardCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))

	return cmd
}

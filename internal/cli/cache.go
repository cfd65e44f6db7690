package cli

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/rebano/rebano-go/internal/contentcache"
)

// NewCacheCommand creates the content cache command group.
func NewCacheCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the offline content cache",
	}

	cmd.AddCommand(newCacheInstallCommand(opts))
	cmd.AddCommand(newCacheStatusCommand(opts))
	cmd.AddCommand(newCacheFetchCommand(opts))
	cmd.AddCommand(newCacheSkipWaitingCommand(opts))
	cmd.AddCommand(newCachePurgeCommand(opts))
	return cmd
}

func newCacheInstallCommand(opts *RootOptions) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:           "install",
		Short:         "Install the configured cache generation",
		Long:          "Fetches every manifest entry into a bucket named after the cache version.\nOlder generations are deleted once the new one activates.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			cfg, err := a.cacheConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "cache config", err)
			}
			if cmd.Flags().Changed("wait") {
				cfg.WaitForClients = wait
			}
			w, err := a.container.Register(cmd.Context(), cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "installing "+cfg.Version, err)
			}
			fmt.Fprintf(a.out, "%s %s\n", w.Version(), w.State())
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "stay waiting while an older generation controls this client")
	return cmd
}

func newCacheSkipWaitingCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "skip-waiting",
		Short:         "Install the configured generation and activate it at once",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			cfg, err := a.cacheConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "cache config", err)
			}
			cfg.WaitForClients = true
			if _, err := a.container.Register(cmd.Context(), cfg); err != nil {
				return WrapExitError(ExitFailure, "installing "+cfg.Version, err)
			}

			msg, err := contentcache.ParseMessage([]byte(`{"action":"` + contentcache.ActionSkipWaiting + `"}`))
			if err != nil {
				return err
			}
			if err := a.container.PostMessage(cmd.Context(), msg); err != nil {
				return WrapExitError(ExitFailure, "activating "+cfg.Version, err)
			}

			active := a.container.Active()
			if active == nil {
				return NewExitError(ExitFailure, "no active cache generation")
			}
			fmt.Fprintf(a.out, "%s %s\n", active.Version(), active.State())
			return nil
		},
	}
}

func newCacheStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show cache generations and manifest coverage",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()

			names, err := a.storage.Names(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "listing cache buckets", err)
			}
			active := a.container.Active()
			activeVersion := "none"
			if active != nil {
				activeVersion = active.Version()
			}
			fmt.Fprintf(a.out, "configured: %s\nactive: %s\nbuckets: %v\n", a.cfg.Cache.Version, activeVersion, names)
			if active == nil {
				return nil
			}

			cfg, err := a.cacheConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "cache config", err)
			}
			for _, entry := range a.cfg.Cache.Manifest {
				u, err := cfg.Origin.Parse(entry)
				if err != nil {
					fmt.Fprintf(a.out, "  ?       %s (%v)\n", entry, err)
					continue
				}
				ok, err := active.Cached(ctx, u)
				if err != nil {
					return WrapExitError(ExitFailure, "reading cache", err)
				}
				mark := "missing"
				if ok {
					mark = "cached "
				}
				fmt.Fprintf(a.out, "  %s %s\n", mark, entry)
			}
			return nil
		},
	}
}

func newCacheFetchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "fetch URL",
		Short:         "Fetch a URL through the content cache and print the body",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()

			cfg, err := a.cacheConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "cache config", err)
			}
			u, err := cfg.Origin.Parse(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid URL", err)
			}

			source := "network"
			if w := a.container.Controller(clientID); w != nil {
				if ok, err := w.Cached(ctx, u); err == nil && ok {
					source = "cache"
				}
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid URL", err)
			}
			resp, err := a.container.Fetch(ctx, clientID, req)
			if err != nil {
				return WrapExitError(ExitFailure, "fetching "+u.String(), err)
			}
			defer resp.Body.Close()

			fmt.Fprintf(a.errOut, "%s (%s)\n", resp.Status, source)
			if _, err := io.Copy(a.out, resp.Body); err != nil {
				return WrapExitError(ExitFailure, "reading response", err)
			}
			if resp.StatusCode >= 400 {
				return NewExitError(ExitFailure, resp.Status)
			}
			return nil
		},
	}
}

func newCachePurgeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "purge",
		Short:         "Delete every cache bucket",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			names, err := a.storage.Names(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "listing cache buckets", err)
			}
			for _, name := range names {
				if _, err := a.storage.Delete(ctx, name); err != nil {
					return WrapExitError(ExitFailure, "deleting "+name, err)
				}
				fmt.Fprintf(a.out, "deleted %s\n", name)
			}
			return nil
		},
	}
}

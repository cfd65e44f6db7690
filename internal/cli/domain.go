package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rebano/rebano-go/internal/controller"
	"github.com/rebano/rebano-go/internal/listcache"
	"github.com/rebano/rebano-go/internal/view"
)

var domainNames = []string{
	controller.Animals,
	controller.Inventory,
	controller.Sales,
	controller.Purchases,
	controller.Feeds,
}

// NewDomainCommand creates the command group for one record domain.
func NewDomainCommand(opts *RootOptions, name string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("List and edit %s", name),
	}

	cmd.AddCommand(newListCommand(opts, name))
	cmd.AddCommand(newShowCommand(opts, name))
	cmd.AddCommand(newAddCommand(opts, name))
	cmd.AddCommand(newUpdateCommand(opts, name))
	cmd.AddCommand(newDeleteCommand(opts, name))
	if name == controller.Inventory {
		cmd.AddCommand(newStockCommand(opts))
	}
	return cmd
}

func newListCommand(opts *RootOptions, name string) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "Load and print the list",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.app.controller(name)
			if err != nil {
				return err
			}
			if err := c.Load(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "loading "+name, err)
			}
			return opts.app.writeList(name)
		},
	}
}

func newShowCommand(opts *RootOptions, name string) *cobra.Command {
	return &cobra.Command{
		Use:           "show ID",
		Short:         "Print one record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.app.controller(name)
			if err != nil {
				return err
			}
			if err := c.Load(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "loading "+name, err)
			}
			return opts.app.writeRecord(name, args[0])
		},
	}
}

func newAddCommand(opts *RootOptions, name string) *cobra.Command {
	var assignments []string

	cmd := &cobra.Command{
		Use:           "add",
		Short:         "Create a record from --set field=value pairs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.app.controller(name)
			if err != nil {
				return err
			}
			values, err := parseAssignments(assignments)
			if err != nil {
				return WrapExitError(ExitCommandError, "parsing --set", err)
			}
			form := c.NewForm()
			if err := controller.Fill(form, nil, values); err != nil {
				return WrapExitError(ExitCommandError, "invalid field", err)
			}
			rec, err := c.Create(cmd.Context(), form)
			if err != nil {
				return operationError("creating "+name, err)
			}
			return opts.app.writeRecord(name, rec.ID())
		},
	}

	cmd.Flags().StringArrayVarP(&assignments, "set", "s", nil, "field=value (repeatable)")
	return cmd
}

func newUpdateCommand(opts *RootOptions, name string) *cobra.Command {
	var assignments []string

	cmd := &cobra.Command{
		Use:           "update ID",
		Short:         "Change fields of a record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(assignments)
			if err != nil {
				return WrapExitError(ExitCommandError, "parsing --set", err)
			}
			if err := opts.app.dispatch(cmd, name, "edit", args[0], values); err != nil {
				return operationError("updating "+args[0], err)
			}
			return opts.app.writeRecord(name, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&assignments, "set", "s", nil, "field=value (repeatable)")
	return cmd
}

func newDeleteCommand(opts *RootOptions, name string) *cobra.Command {
	return &cobra.Command{
		Use:           "delete ID",
		Short:         "Delete a record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.dispatch(cmd, name, "delete", args[0], nil); err != nil {
				return operationError("deleting "+args[0], err)
			}
			return nil
		},
	}
}

func newStockCommand(opts *RootOptions) *cobra.Command {
	var (
		operation string
		quantity  float64
	)

	cmd := &cobra.Command{
		Use:           "stock ID",
		Short:         "Add, subtract or set the stock of an item",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := map[string]string{
				"operation": operation,
				"quantity":  strconv.FormatFloat(quantity, 'f', -1, 64),
			}
			if err := opts.app.dispatch(cmd, controller.Inventory, "adjust-stock", args[0], values); err != nil {
				return operationError("adjusting stock", err)
			}
			return opts.app.writeRecord(controller.Inventory, args[0])
		},
	}

	cmd.Flags().StringVar(&operation, "operation", controller.StockAdd, "add|subtract|set")
	cmd.Flags().Float64VarP(&quantity, "quantity", "q", 0, "quantity to apply")
	return cmd
}

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "dashboard",
		Short:         "Print the summary figures",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.app.registry.Dashboard(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "loading dashboard", err)
			}
			return opts.app.writeList(controller.DashboardList)
		},
	}
}

func (a *app) controller(name string) (*controller.Controller, error) {
	c, ok := a.registry.Get(name)
	if !ok {
		return nil, NewExitError(ExitCommandError, "unknown list "+name)
	}
	return c, nil
}

// dispatch loads list and then delivers the action as a delegated event,
// the same way an activated row button would.
func (a *app) dispatch(cmd *cobra.Command, list, action, id string, values map[string]string) error {
	c, err := a.controller(list)
	if err != nil {
		return err
	}
	if err := c.Load(cmd.Context()); err != nil {
		return err
	}

	attrs := map[string]string{"data-action": action, "data-id": id}
	for k, v := range values {
		attrs["data-"+k] = v
	}
	e, err := view.ParseEvent(list, attrs)
	if err != nil {
		return err
	}
	return a.registry.Events().Dispatch(cmd.Context(), e)
}

// writeRecord prints the rendered row for id.
func (a *app) writeRecord(list, id string) error {
	for _, f := range a.doc.Fragments(list) {
		if f.ID == id {
			_, err := fmt.Fprintln(a.out, f.Content)
			return err
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s %s not found", list, id))
}

// operationError maps controller failures to exit codes.
func operationError(message string, err error) error {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return err
	case controller.IsValidation(err), errors.Is(err, listcache.ErrNotFound), errors.Is(err, view.ErrNoHandler):
		return WrapExitError(ExitCommandError, message, err)
	default:
		return WrapExitError(ExitFailure, message, err)
	}
}

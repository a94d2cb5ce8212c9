package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/florijnhq/florijn/internal/cli"
	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/service"
)

func groupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"group"},
		Short:   "Manage rule groups",
		Long: `Rule groups bundle related rules and run as a unit. Groups execute
in their configured order before ungrouped rules at the same priority.`,
	}

	cmd.AddCommand(groupsListCmd())
	cmd.AddCommand(groupsCreateCmd())
	cmd.AddCommand(groupsDeleteCmd())
	cmd.AddCommand(groupsReorderCmd())

	return cmd
}

func groupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rule groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			groups, err := store.GetRuleGroups(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rule groups: %w", err)
			}

			if len(groups) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rule groups found."))
				return nil
			}

			fmt.Println(cli.FormatTitle("Rule Groups"))

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tORDER\tACTIVE")
			for _, group := range groups {
				fmt.Fprintf(w, "%s\t%s\t%d\t%v\n",
					shortID(group.ID), group.Name, group.ExecutionOrder, group.IsActive)
			}
			return w.Flush()
		},
	}
}

func groupsCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a rule group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			order, _ := cmd.Flags().GetInt("order")

			group := &model.RuleGroup{
				ID:             uuid.NewString(),
				Name:           args[0],
				ExecutionOrder: order,
				IsActive:       true,
			}
			if err := group.Validate(); err != nil {
				return fmt.Errorf("invalid group: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.CreateRuleGroup(ctx, group); err != nil {
				return fmt.Errorf("failed to create rule group: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created group %q (%s)", group.Name, group.ID)))
			return nil
		},
	}

	cmd.Flags().Int("order", 0, "Execution order (lower runs earlier)")

	return cmd
}

func groupsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Delete a rule group",
		Long: `Delete a rule group. Rules in the group are kept and become
ungrouped; they fall back to their own priority for ordering.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRuleGroup(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete rule group: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Group deleted"))
			return nil
		},
	}
}

func groupsReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <group-id>=<order> [<group-id>=<order>...]",
		Short: "Update execution order for one or more groups",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			updates := make([]service.GroupOrderUpdate, 0, len(args))
			for _, arg := range args {
				id, rawOrder, ok := strings.Cut(arg, "=")
				if !ok {
					return common.NewUserError(
						"Each argument must look like <group-id>=<order>, e.g. abc123=10.",
						fmt.Errorf("bad reorder argument %q", arg))
				}
				order, err := strconv.Atoi(rawOrder)
				if err != nil {
					return common.NewUserError(
						"Execution order must be an integer.",
						fmt.Errorf("bad execution order in %q: %w", arg, err))
				}
				updates = append(updates, service.GroupOrderUpdate{GroupID: id, ExecutionOrder: order})
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ReorderRuleGroups(ctx, updates); err != nil {
				return fmt.Errorf("failed to reorder groups: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated %d group(s)", len(updates))))
			return nil
		},
	}
}

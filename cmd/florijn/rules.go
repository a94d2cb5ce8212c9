package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/florijnhq/florijn/internal/cli"
	"github.com/florijnhq/florijn/internal/engine"
	"github.com/florijnhq/florijn/internal/migration"
	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/operator"
	"github.com/florijnhq/florijn/internal/service"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Manage categorization rules",
		Long: `Manage the declarative rules that categorize imported transactions.
Rules combine field conditions with AND/OR logic and fire in priority order.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesShowCmd())
	cmd.AddCommand(rulesCreateCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesTestCmd())
	cmd.AddCommand(rulesMigrateLegacyCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categorization rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			activeOnly, _ := cmd.Flags().GetBool("active")

			var rules []*model.Rule
			if activeOnly {
				rules, err = store.GetActiveRules(ctx)
			} else {
				rules, err = store.GetRules(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			if len(rules) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rules found. Use 'florijn rules create' to add one."))
				return nil
			}

			fmt.Println(cli.FormatTitle("Categorization Rules"))

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTIER\tCATEGORY\tPRIORITY\tACTIVE\tSTOP\tMATCHES\tMODIFIED")
			for _, rule := range rules {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%v\t%v\t%d\t%s\n",
					shortID(rule.ID), rule.Name, rule.Tier, rule.TargetCategory,
					rule.Priority, rule.IsActive, rule.StopProcessing, rule.MatchCount,
					rule.ModifiedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().Bool("active", false, "Show only active rules")

	return cmd
}

func rulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <rule-id>",
		Short: "Show a rule's conditions and actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rule, err := store.GetRule(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			fmt.Println(cli.FormatTitle(rule.Name))
			fmt.Printf("ID:             %s\n", rule.ID)
			fmt.Printf("Tier:           %s\n", rule.Tier)
			fmt.Printf("Category:       %s\n", rule.TargetCategory)
			fmt.Printf("Priority:       %d\n", rule.Priority)
			fmt.Printf("Active:         %v\n", rule.IsActive)
			fmt.Printf("Stop after:     %v\n", rule.StopProcessing)
			fmt.Printf("Matches so far: %d\n", rule.MatchCount)
			if rule.GroupID != "" {
				fmt.Printf("Group:          %s\n", rule.GroupID)
			}

			fmt.Println("\nConditions:")
			switch rule.Tier {
			case model.TierSimple:
				for i, entry := range rule.Conditions.Conditions {
					prefix := "  "
					if i > 0 {
						prefix = fmt.Sprintf("  %s ", strings.ToUpper(string(entry.Connector)))
					}
					fmt.Printf("%s%s\n", prefix, formatCondition(&entry.Condition))
				}
			case model.TierAdvanced:
				printConditionNode(rule.ConditionTree, 1)
			}

			fmt.Println("\nActions:")
			for _, action := range rule.EffectiveActions() {
				if action.Type.RequiresValue() {
					fmt.Printf("  %s = %q\n", action.Type, action.Value)
				} else {
					fmt.Printf("  %s\n", action.Type)
				}
			}

			return nil
		},
	}
}

func rulesCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a simple-tier rule with one condition",
		Long: `Create a simple-tier rule from a single field condition. Advanced
nested rules are authored through the editor, which persists them the same
way.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			name, _ := cmd.Flags().GetString("name")
			category, _ := cmd.Flags().GetString("category")
			field, _ := cmd.Flags().GetString("field")
			op, _ := cmd.Flags().GetString("operator")
			value, _ := cmd.Flags().GetString("value")
			negated, _ := cmd.Flags().GetBool("negate")
			priority, _ := cmd.Flags().GetInt("priority")
			stop, _ := cmd.Flags().GetBool("stop")
			groupID, _ := cmd.Flags().GetString("group")

			rule := &model.Rule{
				ID:             uuid.NewString(),
				Name:           name,
				TargetCategory: category,
				Tier:           model.TierSimple,
				Conditions: &model.ConditionList{
					Conditions: []model.ListCondition{{
						Condition: model.Condition{
							Field:    operator.Field(field),
							Operator: operator.Operator(op),
							Value:    value,
							Negated:  negated,
						},
					}},
				},
				Actions: []model.Action{
					{Type: model.ActionSetCategory, Value: category},
				},
				Priority:       priority,
				GroupID:        groupID,
				IsActive:       true,
				StopProcessing: stop,
			}

			if err := rule.Validate(); err != nil {
				return fmt.Errorf("invalid rule: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.CreateRule(ctx, rule); err != nil {
				return fmt.Errorf("failed to create rule: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created rule %q (%s)", rule.Name, rule.ID)))
			return nil
		},
	}

	cmd.Flags().String("name", "", "Rule name (required)")
	cmd.Flags().String("category", "", "Target category (required)")
	cmd.Flags().String("field", string(operator.FieldDescription), "Condition field")
	cmd.Flags().String("operator", string(operator.OpContains), "Condition operator")
	cmd.Flags().String("value", "", "Condition value")
	cmd.Flags().Bool("negate", false, "Negate the condition")
	cmd.Flags().Int("priority", 100, "Rule priority (lower fires earlier)")
	cmd.Flags().Bool("stop", false, "Stop processing further rules on match")
	cmd.Flags().String("group", "", "Rule group ID")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRule(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Rule deleted"))
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <rule-id>",
		Short: "Preview a rule against recent transactions",
		Long: `Run a rule against a sample of stored transactions without applying
any side effects. Reports match/no-match, a confidence score, and which
conditions matched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sampleSize, _ := cmd.Flags().GetInt("sample")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rule, err := store.GetRule(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			sample, err := store.GetTransactions(ctx, service.TransactionFilter{Limit: sampleSize})
			if err != nil {
				return fmt.Errorf("failed to load transaction sample: %w", err)
			}
			if len(sample) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No transactions to test against."))
				return nil
			}

			results, err := engine.New().Test(rule, sample)
			if err != nil {
				return fmt.Errorf("rule test failed: %w", err)
			}

			matched := 0
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TRANSACTION\tMATCH\tCONFIDENCE\tEXPLANATION")
			for _, res := range results {
				mark := cli.SubtleStyle.Render("-")
				if res.Matches {
					matched++
					mark = cli.SuccessStyle.Render(cli.SuccessIcon)
				}
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n",
					shortID(res.TransactionID), mark, res.Confidence, res.Explanation)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\n%d of %d sampled transactions match\n", matched, len(results))
			return nil
		},
	}

	cmd.Flags().Int("sample", 50, "Number of recent transactions to test against")

	return cmd
}

func rulesMigrateLegacyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate-legacy",
		Short: "Convert legacy pattern rules to enhanced rules",
		Long: `Analyze legacy single-pattern rules and create equivalent enhanced
rules. The conversion is additive: legacy rules are left untouched and can
be retired separately once the enhanced set is verified.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			legacy, err := store.GetLegacyRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to load legacy rules: %w", err)
			}

			svc := migration.NewService(store)

			analysis, err := svc.Analyze(legacy)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			fmt.Println(cli.FormatTitle("Legacy Rule Migration"))
			fmt.Printf("Legacy rules found: %d\n\n", analysis.TotalLegacyRules)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LEGACY ID\tPATTERN\tMATCH TYPE\tCATEGORY\tPRIORITY")
			for _, proposal := range analysis.Proposals {
				cond := proposal.Proposed.Conditions.Conditions[0].Condition
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
					proposal.LegacyRuleID, cond.Value, cond.Operator,
					proposal.Proposed.TargetCategory, proposal.Proposed.Priority)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if dryRun {
				fmt.Println(cli.SubtleStyle.Render("\nDry run: no rules were created."))
				return nil
			}

			created := 0
			for _, lr := range legacy {
				if _, err := svc.Migrate(ctx, lr); err != nil {
					return fmt.Errorf("failed to migrate legacy rule %d: %w", lr.ID, err)
				}
				created++
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("\nCreated %d enhanced rules", created)))
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Show proposed conversions without creating rules")

	return cmd
}

func formatCondition(cond *model.Condition) string {
	neg := ""
	if cond.Negated {
		neg = "NOT "
	}
	return fmt.Sprintf("%s%s %s %q", neg, cond.Field, cond.Operator, cond.Value)
}

func printConditionNode(node *model.ConditionNode, depth int) {
	indent := strings.Repeat("  ", depth)
	if node.IsLeaf() {
		fmt.Printf("%s%s\n", indent, formatCondition(node.Leaf))
		return
	}

	label := strings.ToUpper(string(node.Connector))
	if node.Negated {
		label = "NOT " + label
	}
	fmt.Printf("%s%s\n", indent, label)
	for _, child := range node.Children {
		printConditionNode(child, depth+1)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

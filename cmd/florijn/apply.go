package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/florijnhq/florijn/internal/cli"
	"github.com/florijnhq/florijn/internal/engine"
	"github.com/florijnhq/florijn/internal/model"
)

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply categorization rules to uncategorized transactions",
		Long: `Run the active rule set against uncategorized transactions and persist
the resulting categories, tags, and notes. Use --dry-run to see what would
change without writing anything.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			dryRun, _ := cmd.Flags().GetBool("dry-run")
			limit, _ := cmd.Flags().GetInt("limit")
			workers, _ := cmd.Flags().GetInt("workers")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.GetActiveRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			if len(rules) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No active rules. Nothing to apply."))
				return nil
			}

			groups, err := store.GetRuleGroups(ctx)
			if err != nil {
				return fmt.Errorf("failed to load rule groups: %w", err)
			}

			txns, err := store.GetUncategorizedTransactions(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to load transactions: %w", err)
			}
			if len(txns) == 0 {
				fmt.Println(cli.FormatSuccess("All transactions are categorized."))
				return nil
			}

			fmt.Println(cli.FormatTitle("Applying Rules"))
			fmt.Printf("Evaluating %d rules against %d transactions\n\n", len(rules), len(txns))

			ptrs := make([]*model.Transaction, len(txns))
			for i := range txns {
				ptrs[i] = &txns[i]
			}

			results, err := engine.New().ApplyBatch(ctx, ptrs, rules, groups, workers)
			if err != nil {
				return fmt.Errorf("rule evaluation failed: %w", err)
			}

			categorized := 0
			ruleErrors := 0
			matchCounts := make(map[string]int)
			for _, res := range results {
				if len(res.RulesFired) > 0 {
					categorized++
				}
				for _, id := range res.RulesFired {
					matchCounts[id]++
				}
				for _, ruleErr := range res.Errors {
					ruleErrors++
					slog.Warn("rule skipped during apply",
						"transaction_id", res.TransactionID,
						"rule_id", ruleErr.RuleID,
						"rule", ruleErr.RuleName,
						"error", ruleErr.Err)
				}
			}

			if dryRun {
				printDryRunSummary(results)
				fmt.Printf("\n%d of %d transactions would be categorized", categorized, len(results))
				if ruleErrors > 0 {
					fmt.Printf(" (%d rule errors)", ruleErrors)
				}
				fmt.Println()
				fmt.Println(cli.SubtleStyle.Render("Dry run: no changes were written."))
				return nil
			}

			bar := newApplyProgressBar(categorized)
			for _, res := range results {
				if len(res.ActionsApplied) == 0 {
					continue
				}
				if err := store.ApplyCategorization(ctx, res.TransactionID, res.ActionsApplied); err != nil {
					return fmt.Errorf("failed to categorize transaction %s: %w", res.TransactionID, err)
				}
				_ = bar.Add(1)
			}

			if len(matchCounts) > 0 {
				if err := store.IncrementRuleMatchCounts(ctx, matchCounts); err != nil {
					return fmt.Errorf("failed to update rule match counts: %w", err)
				}
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Categorized %d of %d transactions", categorized, len(results))))
			if ruleErrors > 0 {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("%d rule evaluations failed and were skipped; see the log for details", ruleErrors)))
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Evaluate rules without writing any changes")
	cmd.Flags().Int("limit", 0, "Maximum transactions to process (0 = all)")
	cmd.Flags().Int("workers", 0, "Parallel evaluation workers (0 = default)")

	return cmd
}

func printDryRunSummary(results []engine.ExecutionResult) {
	for _, res := range results {
		if len(res.RulesFired) == 0 {
			continue
		}
		category := res.Category
		if category == "" {
			category = cli.SubtleStyle.Render("(no category)")
		}
		fmt.Printf("  %s %s -> %s\n", cli.SuccessIcon, shortID(res.TransactionID), category)
	}
}

func newApplyProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Categorizing transactions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

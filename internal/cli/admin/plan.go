package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/spf13/cobra"
)

func PlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage billing plans",
		Long:  "Create and list the plans tenants subscribe to",
	}

	cmd.AddCommand(PlanCreateCmd())
	cmd.AddCommand(PlanListCmd())

	return cmd
}

func PlanCreateCmd() *cobra.Command {
	var input service.CreatePlanInput

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a plan",
		Long:  "Create a plan with a monthly token limit, price and overage policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Name = args[0]
			outputFormat, _ := cmd.Flags().GetString("output")
			return runPlanCreate(cmd.Context(), input, outputFormat)
		},
	}

	cmd.Flags().Int64Var(&input.MonthlyTokenLimit, "tokens", 0, "Monthly token limit (required)")
	cmd.Flags().Int64Var(&input.PriceCents, "price-cents", 0, "Monthly price in cents")
	cmd.Flags().BoolVar(&input.OverageAllowed, "overage", false, "Bill tokens beyond the limit instead of blocking")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("tokens")

	return cmd
}

func runPlanCreate(ctx context.Context, input service.CreatePlanInput, outputFormat string) error {
	env, err := openAdminEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	plan, err := env.auth.CreatePlan(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(map[string]any{
			"id":                  plan.ID,
			"name":                plan.Name,
			"monthly_token_limit": plan.MonthlyTokenLimit,
			"price_cents":         plan.PriceCents,
			"overage_allowed":     plan.OverageAllowed,
		})
	}
	fmt.Printf("Plan created: %s (%s), %d tokens/month\n", plan.Name, plan.ID, plan.MonthlyTokenLimit)
	return nil
}

func PlanListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runPlanList(cmd.Context(), outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runPlanList(ctx context.Context, outputFormat string) error {
	env, err := openAdminEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	plans, err := env.auth.ListPlans(ctx)
	if err != nil {
		return fmt.Errorf("failed to list plans: %w", err)
	}

	if outputFormat == "json" {
		items := make([]map[string]any, len(plans))
		for i, p := range plans {
			items[i] = map[string]any{
				"id":                  p.ID,
				"name":                p.Name,
				"monthly_token_limit": p.MonthlyTokenLimit,
				"price_cents":         p.PriceCents,
				"overage_allowed":     p.OverageAllowed,
			}
		}
		return printJSON(items)
	}

	if len(plans) == 0 {
		fmt.Println("No plans found")
		return nil
	}
	fmt.Println("Plans:")
	for _, p := range plans {
		overage := "hard limit"
		if p.OverageAllowed {
			overage = "overage billed"
		}
		fmt.Printf("  %s: %s (%d tokens, %d cents, %s)\n", p.ID, p.Name, p.MonthlyTokenLimit, p.PriceCents, overage)
	}
	return nil
}

package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/askbase/internal/pagination"
	"github.com/spf13/cobra"
)

func TenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
		Long:  "Create, subscribe and list tenants",
	}

	cmd.AddCommand(TenantCreateCmd())
	cmd.AddCommand(TenantSubscribeCmd())
	cmd.AddCommand(TenantListCmd())

	return cmd
}

func TenantCreateCmd() *cobra.Command {
	var (
		plan   string
		months int
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new tenant",
		Long:  "Create a new tenant, optionally subscribed to a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runTenantCreate(cmd.Context(), args[0], plan, months, outputFormat)
		},
	}

	cmd.Flags().StringVar(&plan, "plan", "", "Plan name to subscribe the tenant to")
	cmd.Flags().IntVar(&months, "months", 1, "Subscription length in months")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantCreate(ctx context.Context, name, plan string, months int, outputFormat string) error {
	env, err := openAdminEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	t, err := env.auth.CreateTenant(ctx, name, plan, months)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(map[string]any{
			"id":         t.ID,
			"name":       t.Name,
			"plan":       plan,
			"created_at": t.CreatedAt,
		})
	}
	fmt.Printf("Tenant created: %s (%s)\n", t.Name, t.ID)
	if plan != "" {
		fmt.Printf("Subscribed to plan %s for %d month(s)\n", plan, months)
	}
	return nil
}

func TenantSubscribeCmd() *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "subscribe <tenant> <plan>",
		Short: "Start a new subscription for a tenant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenantSubscribe(cmd.Context(), args[0], args[1], months)
		},
	}

	cmd.Flags().IntVar(&months, "months", 1, "Subscription length in months")

	return cmd
}

func runTenantSubscribe(ctx context.Context, tenantRef, plan string, months int) error {
	env, err := openAdminEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	t, err := env.auth.ResolveTenant(ctx, tenantRef)
	if err != nil {
		return fmt.Errorf("tenant not found: %s", tenantRef)
	}

	sub, err := env.auth.Subscribe(ctx, t.ID, plan, months)
	if err != nil {
		return fmt.Errorf("failed to subscribe tenant: %w", err)
	}
	fmt.Printf("Tenant %s subscribed to %s until %s\n", t.Name, plan, sub.CurrentPeriodEnd.Format("2006-01-02"))
	return nil
}

func TenantListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runTenantList(cmd.Context(), outputFormat, limit, cursor)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runTenantList(ctx context.Context, outputFormat string, limit int, cursorStr string) error {
	env, err := openAdminEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return fmt.Errorf("invalid cursor: %w", err)
	}
	result, err := env.tenants.ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if outputFormat == "json" {
		items := make([]map[string]any, len(result.Items))
		for i, t := range result.Items {
			items[i] = map[string]any{
				"id":         t.ID,
				"name":       t.Name,
				"created_at": t.CreatedAt,
			}
		}
		return printJSON(map[string]any{
			"items":    items,
			"cursor":   result.NextCursor,
			"has_more": result.HasMore,
		})
	}

	if len(result.Items) == 0 {
		fmt.Println("No tenants found")
		return nil
	}
	fmt.Println("Tenants:")
	for _, t := range result.Items {
		fmt.Printf("  %s: %s (created: %s)\n", t.ID, t.Name, t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if result.HasMore && result.NextCursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", result.NextCursor)
	}
	return nil
}

package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Create, list, and revoke tenant API keys",
	}

	cmd.AddCommand(APIKeyCreateCmd())
	cmd.AddCommand(APIKeyListCmd())
	cmd.AddCommand(APIKeyRevokeCmd())

	return cmd
}

func APIKeyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Create a new API key for a tenant. The token is printed once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantRef, _ := cmd.Flags().GetString("tenant")
			name, _ := cmd.Flags().GetString("name")
			outputFormat, _ := cmd.Flags().GetString("output")
			return runAPIKeyCreate(cmd.Context(), tenantRef, name, outputFormat)
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("name", "n", "", "API key name (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runAPIKeyCreate(ctx context.Context, tenantRef, name, outputFormat string) error {
	env, err := openAdminEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	t, err := env.auth.ResolveTenant(ctx, tenantRef)
	if err != nil {
		return fmt.Errorf("tenant not found: %s", tenantRef)
	}

	token, err := env.auth.CreateAPIKey(ctx, t.ID, name)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	// newest first
	var keyID string
	if keys, err := env.auth.ListAPIKeys(ctx, t.ID); err == nil && len(keys) > 0 {
		keyID = keys[0].ID
	}

	if outputFormat == "json" {
		return printJSON(map[string]any{
			"id":        keyID,
			"name":      name,
			"tenant_id": t.ID,
			"token":     token,
		})
	}
	fmt.Printf("API key created for tenant %s (%s)\n", t.Name, t.ID)
	fmt.Printf("Key ID: %s\n", keyID)
	fmt.Printf("Key Name: %s\n", name)
	fmt.Printf("Token: %s\n", token)
	fmt.Println("\nSave this token now. It cannot be shown again.")
	return nil
}

func APIKeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantRef, _ := cmd.Flags().GetString("tenant")
			outputFormat, _ := cmd.Flags().GetString("output")
			return runAPIKeyList(cmd.Context(), tenantRef, outputFormat)
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runAPIKeyList(ctx context.Context, tenantRef, outputFormat string) error {
	env, err := openAdminEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	t, err := env.auth.ResolveTenant(ctx, tenantRef)
	if err != nil {
		return fmt.Errorf("tenant not found: %s", tenantRef)
	}

	keys, err := env.auth.ListAPIKeys(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to list API keys: %w", err)
	}

	if outputFormat == "json" {
		items := make([]map[string]any, len(keys))
		for i, key := range keys {
			items[i] = map[string]any{
				"id":         key.ID,
				"name":       key.Name,
				"tenant_id":  key.TenantID,
				"created_at": key.CreatedAt,
				"revoked_at": key.RevokedAt,
				"revoked":    key.IsRevoked(),
			}
		}
		return printJSON(items)
	}

	if len(keys) == 0 {
		fmt.Printf("No API keys found for tenant %s\n", t.Name)
		return nil
	}
	fmt.Printf("API keys for tenant %s:\n", t.Name)
	for _, key := range keys {
		status := "active"
		if key.IsRevoked() {
			status = "revoked"
		}
		fmt.Printf("  %s: %s (%s, created: %s)\n", key.ID, key.Name, status, key.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func APIKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long:  "Revoke an API key by its ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPIKeyRevoke(cmd.Context(), args[0])
		},
	}

	return cmd
}

func runAPIKeyRevoke(ctx context.Context, keyID string) error {
	env, err := openAdminEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.auth.RevokeAPIKey(ctx, keyID); err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}
	fmt.Printf("API key %s revoked\n", keyID)
	return nil
}

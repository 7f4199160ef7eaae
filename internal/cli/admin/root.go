package admin

import (
	"github.com/cloo-solutions/askbase/internal/cli"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the askbased command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "askbased",
		Short:         "Askbase knowledge assistant server",
		Long:          "Askbase runs the knowledge assistant API and provisions plans, tenants and API keys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddHelpJSONFlag(root)
	root.AddCommand(ServeCmd())
	root.AddCommand(PlanCmd())
	root.AddCommand(TenantCmd())
	root.AddCommand(APIKeyCmd())

	return root
}

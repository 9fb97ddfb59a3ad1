package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yourusername/immich-mcp/pkg/tools"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the MCP tools this server exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The catalog is static; no client is needed to describe it.
			catalog := tools.Catalog(tools.NewAdapters(nil)...)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, tool := range catalog {
				fmt.Fprintf(w, "%s\t%s\n", tool.Name, tool.Description)
			}
			return w.Flush()
		},
	}
}

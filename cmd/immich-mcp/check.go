package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/yourusername/immich-mcp/pkg/immich"
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the Immich connection and API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			client := newClient(cfg)
			out := cmd.OutOrStdout()

			if err := client.ValidateConnection(cmd.Context()); err != nil {
				fmt.Fprintf(out, "%s %s %s\n", failMark("✗"), client.APIRoot(), immich.ErrorMessage(err))
				return fmt.Errorf("immich is not reachable: %w", err)
			}

			fmt.Fprintf(out, "%s %s\n", okMark("✓"), client.APIRoot())

			var about struct {
				Version string `json:"version"`
			}
			if err := client.Get(cmd.Context(), "/server/about", nil, &about); err == nil && about.Version != "" {
				fmt.Fprintf(out, "  %s %s\n", dim("server version"), about.Version)
			}

			return nil
		},
	}
}

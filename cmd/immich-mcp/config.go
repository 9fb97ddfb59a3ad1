package main

import (
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			_, err = pp.Fprintln(cmd.OutOrStdout(), cfg.Redacted())
			return err
		},
	}
}

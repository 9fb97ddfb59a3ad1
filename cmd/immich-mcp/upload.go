package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/yourusername/immich-mcp/pkg/immich"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var params immich.UploadBatchParams

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files to Immich, optionally into an album",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			params.FilePaths = args
			result := newClient(cfg).UploadAssets(cmd.Context(), params)

			printUploadResult(cmd.OutOrStdout(), result)

			if !result.Success {
				return fmt.Errorf("%d of %d uploads failed", len(result.Failed), len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&params.AlbumID, "album-id", "", "add uploaded assets to this album")
	cmd.Flags().StringVar(&params.AlbumName, "album-name", "", "add uploaded assets to the album with this name, creating it if needed")

	return cmd
}

func printUploadResult(out io.Writer, result *immich.UploadBatchResult) {
	for _, uploaded := range result.Uploaded {
		fmt.Fprintf(out, "%s %s %s\n", okMark("✓"), uploaded.FilePath, dim(uploaded.AssetID+" "+uploaded.Status))
	}
	for _, failed := range result.Failed {
		fmt.Fprintf(out, "%s %s %s\n", failMark("✗"), failed.FilePath, failed.Error)
	}
	if result.AlbumID != "" {
		fmt.Fprintf(out, "%s %s\n", dim("album"), result.AlbumID)
	}
	fmt.Fprintf(out, "%d uploaded, %d failed\n", len(result.Uploaded), len(result.Failed))
}

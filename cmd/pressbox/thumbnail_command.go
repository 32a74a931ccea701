package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pressbox/internal/media/probe"
	"pressbox/internal/thumbnail"
)

func newThumbnailCommand(ctx *commandContext) *cobra.Command {
	var at float64
	var width int
	var output string

	cmd := &cobra.Command{
		Use:   "thumbnail <source>",
		Short: "Extract a preview frame from a video asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()

			info, err := probe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0], cfg.ProbeTimeout())
			if err != nil {
				return err
			}

			if width <= 0 {
				width = cfg.Pipeline.ThumbnailWidth
			}
			if strings.TrimSpace(output) == "" {
				base := filepath.Base(args[0])
				output = filepath.Join(cfg.Paths.OutputDir, strings.TrimSuffix(base, filepath.Ext(base))+"-thumb.png")
			}

			if err := thumbnail.Save(cmd.Context(), thumbnail.Options{
				Binary:           cfg.FFmpegBinary(),
				SourcePath:       args[0],
				TimestampSeconds: at,
				DurationSeconds:  info.DurationSeconds,
				Width:            width,
				Timeout:          cfg.ProbeTimeout(),
			}, output); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote thumbnail to %s\n", output)
			return nil
		},
	}

	cmd.Flags().Float64Var(&at, "at", 0, "Timestamp in seconds (clamped to the timeline)")
	cmd.Flags().IntVar(&width, "width", 0, "Thumbnail width in pixels (defaults to config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (defaults to the output directory)")
	return cmd
}

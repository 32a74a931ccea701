package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pressbox/internal/media/probe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <source>",
		Short: "Inspect a video asset's container metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			info, err := probe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0], cfg.ProbeTimeout())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Container", info.Container},
				{"Video codec", info.VideoCodec},
				{"Duration", fmt.Sprintf("%.2f s", info.DurationSeconds)},
				{"Resolution", fmt.Sprintf("%dx%d", info.Width, info.Height)},
				{"Size", humanize.Bytes(uint64(info.SizeBytes))},
				{"Has audio", fmt.Sprintf("%t", info.HasAudio)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pressbox/internal/pipeline"
)

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var targetSize string
	var profileName string
	var preserveAudio bool

	cmd := &cobra.Command{
		Use:   "compress <source>",
		Short: "Compress a video asset under a target size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()

			target, err := humanize.ParseBytes(targetSize)
			if err != nil {
				return fmt.Errorf("parse target size %q: %w", targetSize, err)
			}
			if strings.TrimSpace(profileName) == "" {
				profileName = cfg.Pipeline.DefaultProfile
			}

			orchestrator, err := ctx.orchestrator(ctx.logger())
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			request := pipeline.Request{
				SourcePath:      args[0],
				TargetSizeBytes: int64(target),
				ProfileName:     profileName,
				PreserveAudio:   preserveAudio,
			}

			var bar *progressbar.ProgressBar
			if isatty.IsTerminal(os.Stderr.Fd()) {
				bar = progressbar.NewOptions(100,
					progressbar.OptionSetDescription("compressing"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
				request.Progress = func(percent float64) {
					_ = bar.Set(int(percent))
				}
			}

			result, err := orchestrator.Compress(runCtx, request)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderResult(result))
			for _, warning := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetSize, "target-size", "t", "50MB", "Target output size (e.g. 50MB, 1.5GB)")
	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "Compression profile (defaults to config)")
	cmd.Flags().BoolVar(&preserveAudio, "preserve-audio", true, "Keep the source audio track when the profile allows it")
	return cmd
}

func renderResult(result pipeline.Result) string {
	rows := [][]string{
		{"Output", result.OutputPath},
		{"Original size", humanize.Bytes(uint64(result.OriginalSizeBytes))},
		{"Compressed size", humanize.Bytes(uint64(result.CompressedSizeBytes))},
		{"Compression ratio", fmt.Sprintf("%.2fx", result.CompressionRatio)},
		{"Duration", fmt.Sprintf("%d ms", result.ProcessingDurationMs)},
		{"Profile", fmt.Sprintf("%s (quality %d)", result.ProfileUsed, result.QualityScore)},
		{"Speed factor", fmt.Sprintf("%.2f", result.SpeedFactor)},
		{"Audio preserved", fmt.Sprintf("%t", result.AudioPreserved)},
	}
	if result.PassThrough {
		rows = append(rows, []string{"Pass-through", "source already under target"})
	}
	if result.ThumbnailPath != "" {
		rows = append(rows, []string{"Thumbnail", result.ThumbnailPath})
	}
	if result.OutputURL != "" {
		rows = append(rows, []string{"Public URL", result.OutputURL})
	}
	return renderTable([]string{"Field", "Value"}, rows)
}

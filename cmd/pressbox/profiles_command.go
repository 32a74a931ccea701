package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pressbox/internal/profile"
)

func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "profiles",
		Short:       "List the available compression profiles",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderProfiles(profile.DefaultCatalog()))
			return nil
		},
	}
}

func renderProfiles(catalog *profile.Catalog) string {
	titler := cases.Title(language.English)
	rows := make([][]string, 0, len(catalog.Profiles()))
	for _, p := range catalog.Profiles() {
		label := titler.String(strings.ReplaceAll(p.Name, "-", " "))
		audio := "-"
		if p.HasAudio() {
			audio = humanize.SI(float64(p.AudioBitrateBps), "bps")
		}
		rows = append(rows, []string{
			p.Name,
			label,
			fmt.Sprintf("%.2f", p.ScaleFactor),
			fmt.Sprintf("%d", p.TargetFrameRate),
			fmt.Sprintf("%d", p.FrameStride),
			humanize.SI(float64(p.VideoBitrateBps), "bps"),
			audio,
			fmt.Sprintf("%d", p.QualityScore),
		})
	}
	return renderTable(
		[]string{"Profile", "Label", "Scale", "FPS", "Stride", "Video", "Audio", "Quality"},
		rows,
		2, 3, 4, 5, 6, 7,
	)
}

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PorunC/telegram-sticker-maker/internal/analyzer"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <file|dir>...",
		Short: "Show what each input is and how it would be converted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectInputs(args)
			if err != nil {
				return err
			}
			cfg := ctx.configValue()
			a := analyzer.New(cfg.FFprobeBinary(), ctx.log())

			assets := make([]analyzer.MediaAsset, 0, len(files))
			for _, f := range files {
				asset, err := a.Analyze(cmd.Context(), f)
				if err != nil {
					return err
				}
				assets = append(assets, asset)
			}

			if asJSON {
				return writeJSON(cmd, assets)
			}
			rows := make([][]string, 0, len(assets))
			for _, as := range assets {
				rows = append(rows, []string{
					filepath.Base(as.Path),
					fmt.Sprintf("%.1f", float64(as.Size)/1024),
					dimensions(as.Width, as.Height),
					yesNo(as.Animated),
					fmt.Sprintf("%d", as.FrameCount),
					fmt.Sprintf("%.2f", as.Duration),
					fmt.Sprintf("%.1f", as.FrameRate),
					fmt.Sprintf("%.1f", as.Complexity),
					string(as.Recommended),
					strings.Join(as.Warnings, "; "),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"File", "KB", "Size", "Animated", "Frames", "Seconds", "FPS", "Complexity", "Target", "Warnings"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	return cmd
}

func dimensions(w, h int) string {
	if w <= 0 || h <= 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d", w, h)
}

package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PorunC/telegram-sticker-maker/internal/pipeline"
)

type makeOptions struct {
	name     string
	title    string
	emojis   []string
	emojiSet bool
	keep     bool
	noUpload bool
	json     bool
}

func newMakeCommand(ctx *commandContext) *cobra.Command {
	var opts makeOptions

	cmd := &cobra.Command{
		Use:   "make <file|dir>...",
		Short: "Convert inputs and create a sticker pack",
		Long: "Convert every input to sticker format, then create one pack with the results.\n" +
			"Directories are expanded to the supported files they contain.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectInputs(args)
			if err != nil {
				return err
			}
			cfg := ctx.configValue()

			label := strings.TrimSpace(opts.name)
			if label == "" {
				label = cfg.Telegram.PackNamePrefix
			}
			req := pipeline.Request{
				AccountID: cfg.Telegram.UserID,
				Label:     label,
				Title:     opts.title,
				Files:     files,
				Emojis:    splitEmojis(opts.emojis),
				Emoji:     opts.emojiSet,
				Keep:      opts.keep,
			}
			report := progressPrinter(cmd, opts.json)

			var res pipeline.Result
			var runErr error
			if opts.noUpload {
				res, runErr = ctx.pipeline(nil).Convert(cmd.Context(), req, report)
			} else {
				orch, err := ctx.orchestrator(cmd.Context())
				if err != nil {
					return err
				}
				res, runErr = ctx.pipeline(orch).Run(cmd.Context(), req, report)
			}

			if opts.json {
				if err := writeJSON(cmd, newMakeView(res, runErr)); err != nil {
					return err
				}
				return runErr
			}
			printMakeResult(cmd, res, opts.noUpload)
			return runErr
		},
	}

	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Pack label (defaults to telegram.pack_name_prefix)")
	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "Pack title (defaults to a title derived from the label)")
	cmd.Flags().StringArrayVarP(&opts.emojis, "emoji", "e", nil, "Emoji per input, in order (repeatable or comma-separated)")
	cmd.Flags().BoolVar(&opts.emojiSet, "emoji-size", false, "Convert to 100x100 custom emoji size")
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "Keep converted files and write pack_info.json")
	cmd.Flags().BoolVar(&opts.noUpload, "no-upload", false, "Convert only; files are kept in the output directory")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	return cmd
}

func progressPrinter(cmd *cobra.Command, quiet bool) pipeline.Reporter {
	if quiet {
		return nil
	}
	out := cmd.ErrOrStderr()
	return func(p pipeline.Progress) {
		fmt.Fprintf(out, "[%3.0f%%] %s\n", p.Percent, p.Message)
	}
}

func printMakeResult(cmd *cobra.Command, res pipeline.Result, convertOnly bool) {
	out := cmd.OutOrStdout()
	if len(res.Conversions) > 0 {
		rows := make([][]string, 0, len(res.Conversions))
		for i, c := range res.Conversions {
			status := "ok"
			if c.Err != nil {
				status = c.Err.Error()
			}
			a := c.Artifact
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				filepath.Base(c.Input),
				a.Format,
				fmt.Sprintf("%.1f", a.SizeKB()),
				dimensions(a.Width, a.Height),
				c.Emoji,
				status,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Input", "Format", "KB", "Size", "Emoji", "Status"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
		))
	}
	if res.OutputDir != "" {
		fmt.Fprintf(out, "Output: %s\n", res.OutputDir)
	}
	if convertOnly {
		return
	}
	u := res.Upload
	if u.Success {
		fmt.Fprintf(out, "Pack: %s (%s)\n", u.PackName, u.PackTitle)
		fmt.Fprintf(out, "Uploaded %d, failed %d\n", u.UploadedCount, u.FailedCount)
		fmt.Fprintf(out, "Link: %s\n", u.PackURL)
	}
	for _, e := range u.Errors {
		fmt.Fprintf(out, "  ! %s\n", e)
	}
}

type conversionView struct {
	Input  string  `json:"input"`
	Output string  `json:"output,omitempty"`
	Format string  `json:"format,omitempty"`
	SizeKB float64 `json:"size_kb"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
	Emoji  string  `json:"emoji"`
	Error  string  `json:"error,omitempty"`
}

type makeView struct {
	Conversions []conversionView `json:"conversions"`
	Upload      any              `json:"upload,omitempty"`
	OutputDir   string           `json:"output_dir,omitempty"`
	Manifest    string           `json:"manifest,omitempty"`
	Error       string           `json:"error,omitempty"`
}

func newMakeView(res pipeline.Result, err error) makeView {
	view := makeView{Conversions: []conversionView{}, OutputDir: res.OutputDir, Manifest: res.ManifestPath}
	for _, c := range res.Conversions {
		cv := conversionView{Input: c.Input, Emoji: c.Emoji}
		if c.Err != nil {
			cv.Error = c.Err.Error()
		} else {
			cv.Output = c.Artifact.Path
			cv.Format = c.Artifact.Format
			cv.SizeKB = c.Artifact.SizeKB()
			cv.Width = c.Artifact.Width
			cv.Height = c.Artifact.Height
		}
		view.Conversions = append(view.Conversions, cv)
	}
	if res.Upload.PackName != "" || len(res.Upload.Errors) > 0 {
		view.Upload = res.Upload
	}
	if err != nil {
		view.Error = err.Error()
	}
	return view
}

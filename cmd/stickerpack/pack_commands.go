package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PorunC/telegram-sticker-maker/internal/uploader"
)

func newPackCommand(ctx *commandContext) *cobra.Command {
	packCmd := &cobra.Command{
		Use:   "pack",
		Short: "Manage existing sticker packs",
	}

	packCmd.AddCommand(newPackUploadCommand(ctx))
	packCmd.AddCommand(newPackAddCommand(ctx))
	packCmd.AddCommand(newPackShowCommand(ctx))
	packCmd.AddCommand(newPackCloneCommand(ctx))
	packCmd.AddCommand(newPackBackupCommand(ctx))
	packCmd.AddCommand(newPackEmojiCommand(ctx))
	packCmd.AddCommand(newPackKeywordsCommand(ctx))
	packCmd.AddCommand(newPackReorderCommand(ctx))
	packCmd.AddCommand(newPackDeleteCommand(ctx))
	packCmd.AddCommand(newPackDeleteStickerCommand(ctx))
	packCmd.AddCommand(newPackTitleCommand(ctx))
	packCmd.AddCommand(newPackThumbnailCommand(ctx))

	return packCmd
}

// newPackUploadCommand creates a pack from files that already meet the
// sticker limits, without converting them.
func newPackUploadCommand(ctx *commandContext) *cobra.Command {
	var title string
	var emojis []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "upload <label> <file>...",
		Short: "Create a pack from already converted files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			res := orch.UploadBatch(cmd.Context(), uploader.BatchRequest{
				AccountID: ctx.configValue().Telegram.UserID,
				Label:     args[0],
				Title:     title,
				Files:     args[1:],
				Emojis:    splitEmojis(emojis),
			})
			if asJSON {
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
			} else {
				printBatchUpload(cmd, res)
			}
			if !res.Success {
				return errors.New("pack creation failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Pack title")
	cmd.Flags().StringArrayVarP(&emojis, "emoji", "e", nil, "Emoji per file, in order")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func printBatchUpload(cmd *cobra.Command, res uploader.UploadBatchResult) {
	out := cmd.OutOrStdout()
	if res.Success {
		fmt.Fprintf(out, "Created %s (%s format, %d stickers)\n", res.PackName, res.Format, res.UploadedCount)
		fmt.Fprintf(out, "Link: %s\n", res.PackURL)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  ! %s\n", e)
	}
}

func newPackAddCommand(ctx *commandContext) *cobra.Command {
	var emoji string
	var keywords []string
	var emojiSize bool

	cmd := &cobra.Command{
		Use:   "add <pack> <file>",
		Short: "Convert a file and append it to an existing pack",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			cfg := ctx.configValue()
			dir, err := os.MkdirTemp(cfg.Paths.WorkDir, "add-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)

			artifact, err := ctx.pipeline(nil).ConvertFile(cmd.Context(), args[1], emojiSize, dir)
			if err != nil {
				return fmt.Errorf("convert %s: %w", args[1], err)
			}
			if err := orch.Add(cmd.Context(), uploader.AddRequest{
				AccountID: cfg.Telegram.UserID,
				Name:      args[0],
				File:      artifact.Path,
				Emoji:     emoji,
				Keywords:  keywords,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s (%s, %.1f KB)\n", args[1], args[0], artifact.Format, artifact.SizeKB())
			return nil
		},
	}
	cmd.Flags().StringVarP(&emoji, "emoji", "e", "", "Emoji for the sticker")
	cmd.Flags().StringSliceVarP(&keywords, "keywords", "k", nil, "Search keywords")
	cmd.Flags().BoolVar(&emojiSize, "emoji-size", false, "Convert to 100x100 custom emoji size")
	return cmd
}

func newPackShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <pack>",
		Short: "Show the stickers in a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			analysis, err := orch.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, analysis)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", analysis.Title, analysis.Name)
			fmt.Fprintf(out, "Type: %s  Video: %s  Animated: %s  Stickers: %d\n",
				analysis.StickerType, yesNo(analysis.IsVideo), yesNo(analysis.IsAnimated), analysis.TotalStickers)
			fmt.Fprintf(out, "Link: %s\n", analysis.URL)

			rows := make([][]string, 0, len(analysis.Stickers))
			for _, s := range analysis.Stickers {
				rows = append(rows, []string{
					strconv.Itoa(s.Position),
					s.Emoji,
					dimensions(s.Width, s.Height),
					fmt.Sprintf("%.1f", float64(s.FileSize)/1024),
					s.FileID,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Emoji", "Size", "KB", "File ID"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	return cmd
}

func newPackCloneCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "clone <source> <target>",
		Short: "Copy a pack into a new pack owned by this bot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			res := orch.Clone(cmd.Context(), args[0], args[1], title, ctx.configValue().Telegram.UserID)
			if !res.Success {
				return errors.New(res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cloned %d stickers into %s\nLink: %s\n", res.ClonedStickers, res.PackName, res.PackURL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title for the new pack")
	return cmd
}

func newPackBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <pack>",
		Short: "Save a JSON summary of a pack to the output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			path, err := orch.Backup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
			return nil
		},
	}
}

// newPackEmojiCommand takes FILE_ID=EMOJI[,EMOJI] pairs so several stickers
// can be updated in one call.
func newPackEmojiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "emoji <file_id>=<emoji>[,<emoji>]...",
		Short: "Replace the emoji of one or more stickers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates := make([]uploader.EmojiUpdate, 0, len(args))
			for _, arg := range args {
				id, list, _ := strings.Cut(arg, "=")
				var emojis []string
				for _, e := range splitEmojis([]string{list}) {
					if e != "" {
						emojis = append(emojis, e)
					}
				}
				updates = append(updates, uploader.EmojiUpdate{FileID: strings.TrimSpace(id), EmojiList: emojis})
			}
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			return reportBatch(cmd, orch.BatchUpdateEmojis(cmd.Context(), updates))
		},
	}
}

func newPackKeywordsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "keywords <file_id> [keyword]...",
		Short: "Replace the search keywords of a sticker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			if err := orch.SetKeywords(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated keywords for %s\n", args[0])
			return nil
		},
	}
}

func newPackReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <pack> <file_id>...",
		Short: "Move stickers so they appear in the given order",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			return reportBatch(cmd, orch.Reorganize(cmd.Context(), args[0], args[1:]))
		},
	}
}

func reportBatch(cmd *cobra.Command, res uploader.BatchResult) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d of %d succeeded\n", res.Successful, res.Total)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  ! %s\n", e)
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d updates failed", res.Failed)
	}
	return nil
}

func newPackDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <pack>",
		Short: "Delete a whole pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", args[0])
			}
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			if err := orch.DeleteSet(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func newPackDeleteStickerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-sticker <file_id>",
		Short: "Remove one sticker from its pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			if err := orch.DeleteSticker(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newPackTitleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "title <pack> <title>",
		Short: "Rename a pack",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			if err := orch.SetTitle(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], args[1])
			return nil
		},
	}
}

func newPackThumbnailCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "thumbnail <pack> <file>",
		Short: "Set the pack thumbnail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			if err := orch.SetThumbnail(cmd.Context(), args[0], ctx.configValue().Telegram.UserID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Thumbnail updated for %s\n", args[0])
			return nil
		},
	}
}

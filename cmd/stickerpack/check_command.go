package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PorunC/telegram-sticker-maker/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify binaries, directories, and bot credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, s := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				kind, detail := statusOK, s.Command
				if !s.Available {
					kind, detail = statusError, s.Detail
					if s.Optional {
						kind = statusWarn
					} else {
						failures++
					}
				}
				fmt.Fprintln(out, renderStatusLine(s.Name, kind, detail, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			failures += len(preflight.Failed(results))
			if err := cfg.RequireTelegram(); err != nil {
				fmt.Fprintln(out, renderStatusLine("Telegram bot", statusWarn, "not configured", colorize))
			}

			if failures > 0 {
				return fmt.Errorf("%d checks failed", failures)
			}
			return nil
		},
	}
}

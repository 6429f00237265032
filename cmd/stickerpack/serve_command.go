package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/notifications"
	"github.com/PorunC/telegram-sticker-maker/internal/preflight"
	"github.com/PorunC/telegram-sticker-maker/internal/server"
	"github.com/PorunC/telegram-sticker-maker/internal/tasks"
)

// Finished tasks stay pollable for this long.
const taskRetention = time.Hour

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.log()
			if b := strings.TrimSpace(bind); b != "" {
				cfg.Paths.APIBind = b
			}

			for _, r := range preflight.Failed(preflight.RunAll(cmd.Context(), cfg)) {
				if strings.HasSuffix(r.Name, "directory") {
					return fmt.Errorf("%s: %s", r.Name, r.Detail)
				}
				logger.Warn("preflight check failed", logging.String("check", r.Name), logging.String("detail", r.Detail))
			}

			notifier := notifications.NewService(cfg)
			store := tasks.NewStore(logger, tasks.WithFinishHook(server.NotifyHook(notifier, logger)))
			opts := server.Options{Config: cfg, Tasks: store, Logger: logger}
			if cfg.RequireTelegram() == nil {
				orch, err := ctx.orchestrator(cmd.Context())
				if err != nil {
					return err
				}
				opts.Manager = orch
				opts.Runner = ctx.pipeline(orch)
			} else {
				logger.Warn("telegram credentials missing; pack routes disabled")
			}

			srv, err := server.New(opts)
			if err != nil {
				return err
			}
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			defer srv.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
					if n := store.Prune(time.Now().Add(-taskRetention)); n > 0 {
						logger.Debug("pruned finished tasks", logging.Int("count", n))
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}

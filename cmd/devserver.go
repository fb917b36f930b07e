package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/mockapi"
)

const shutdownTimeout = 10 * time.Second

func newDevServerCmd(a *app) *cobra.Command {
	var addr, email, password string
	var noSeed bool
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Serve an in-memory TeamLink API for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.DevServer.Addr
			}
			if !a.cfg.Debug {
				a.logger.SetLevel(log.InfoLevel)
			}

			opts := mockapi.Options{Secret: []byte(a.cfg.DevServer.Secret), Logger: a.logger}
			if a.cfg.Session.RedisURL != "" {
				opts.Deduper = mockapi.NewRedisDeduper(a.redisClient(), a.cfg.DevServer.DedupeTTL)
			} else {
				opts.Deduper = mockapi.NewMemoryDeduper(a.cfg.DevServer.DedupeTTL)
			}
			srv := mockapi.New(opts)

			if !noSeed {
				demo, err := srv.Store.SeedDemo(email, password)
				if err != nil {
					return fmt.Errorf("seed demo data: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Demo user:  %s / %s\nWorkspace:  %s\nProject:    %s\n",
					demo.Email, demo.Password, demo.Project.WorkspaceID, demo.Project.ProjectID)
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.WithField("addr", addr).Info("devserver.listening")
				errCh <- srv.Start(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			a.logger.Info("devserver.stopped")
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&email, "seed-email", "demo@teamlink.dev", "email of the demo user")
	cmd.Flags().StringVar(&password, "seed-password", "demo1234", "password of the demo user")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "start with an empty store")
	return cmd
}

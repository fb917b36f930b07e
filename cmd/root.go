// Package cmd implements the teamlink command line client.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/backend"
	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/config"
	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/session"
)

// app carries what the subcommands share. It is filled in by the root
// command's pre-run hook.
type app struct {
	configPath string
	envFile    string

	cfg      config.Config
	logger   *log.Logger
	provider session.Provider
	redis    *redis.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "teamlink",
		Short:         "TeamLink board client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "path to a .env file")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newBoardCmd(a),
		newDevServerCmd(a),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = log.New()
	a.logger.SetOutput(cmd.ErrOrStderr())
	a.logger.SetLevel(log.WarnLevel)
	if cfg.Debug {
		a.logger.SetLevel(log.DebugLevel)
	}
	return nil
}

func (a *app) close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// redisClient connects to the configured Redis, accepting either a redis://
// URL or a bare address.
func (a *app) redisClient() *redis.Client {
	if a.redis != nil {
		return a.redis
	}
	opts, err := redis.ParseURL(a.cfg.Session.RedisURL)
	if err != nil {
		opts = &redis.Options{Addr: a.cfg.Session.RedisURL}
	}
	a.redis = redis.NewClient(opts)
	return a.redis
}

// sessions returns the session provider: Redis when a URL is configured,
// otherwise a per-profile file.
func (a *app) sessions() (session.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	if a.cfg.Session.RedisURL != "" {
		a.provider = session.NewRedisStore(a.redisClient(), a.cfg.Session.Profile, a.cfg.Session.TTL)
		return a.provider, nil
	}
	path, err := a.cfg.SessionFile()
	if err != nil {
		return nil, err
	}
	a.provider = session.NewFileStore(path)
	return a.provider, nil
}

func (a *app) client() (*backend.Client, error) {
	provider, err := a.sessions()
	if err != nil {
		return nil, err
	}
	c := backend.New(a.cfg.API.URL, provider, a.logger)
	c.HTTP.Timeout = a.cfg.API.Timeout
	return c, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

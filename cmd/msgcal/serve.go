package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"msgcal/internal/extract"
	appLog "msgcal/internal/log"
	"msgcal/internal/prefs"
	"msgcal/internal/web"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(parent context.Context, listen string) error {
	appLog.Info("msgcal starting", "version", version)

	conf, path, err := loadConfig(false)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", path)
		return err
	}

	// CLI --listen overrides config file listen if provided.
	if listen != "" {
		conf.Listen = listen
	}

	prefsPath := conf.PrefsPath(path)
	store, err := prefs.Open(prefsPath)
	if err != nil {
		return errors.Wrap(err, "open preferences")
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"default_duration_minutes", conf.DefaultDurationMinutes,
		"fallback", conf.Resolver.Fallback,
		"prefs_path", prefsPath,
		"prefs_chats", store.Len(),
		"prefs_reload", conf.Prefs.ReloadCron,
	)

	if parent == nil {
		parent = context.Background()
	}
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := startPrefsReload(conf.Prefs.ReloadCron, store)
	if err != nil {
		return err
	}
	if sched != nil {
		defer func() {
			<-sched.Stop().Done()
		}()
	}

	srv := web.NewServer(conf, extract.NewPipeline(newResolver(conf)), store)
	if err := web.Run(ctx, conf.Listen, srv.Handler()); err != nil {
		appLog.Error("http server failed", err)
		return err
	}

	appLog.Info("msgcal exiting")
	return nil
}

// startPrefsReload schedules store.Reload. An empty schedule disables it.
func startPrefsReload(schedule string, store *prefs.Store) (*cron.Cron, error) {
	if schedule == "" || store.Path() == "" {
		return nil, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := store.Reload(); err != nil {
			appLog.Error("preferences reload failed", err, "path", store.Path())
			return
		}
		appLog.Debug("preferences reloaded", "chats", store.Len())
	}); err != nil {
		return nil, errors.Wrapf(err, "invalid prefs.reload_cron %q", schedule)
	}
	c.Start()
	return c, nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"concierge/internal/config"
	"concierge/internal/ics"
	appLog "concierge/internal/log"
	"concierge/internal/metrics"
	"concierge/internal/scheduler"
	"concierge/internal/web"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}

func subscriptionSources(cfg *config.Config) []ics.Source {
	out := make([]ics.Source, 0, len(cfg.Subscriptions))
	for i, sub := range cfg.Subscriptions {
		id := sub.ID
		if id == "" {
			id = sub.Name
		}
		if id == "" {
			id = fmt.Sprintf("subscription-%d", i+1)
		}
		out = append(out, ics.Source{ID: id, URL: sub.URL})
	}
	return out
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// CLI --listen overrides config file listen if provided.
	if serveListen != "" {
		cfg.Listen = serveListen
	}

	appLog.Info("concierge starting",
		"version", version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"data_path", cfg.DataPath,
		"subscription_count", len(cfg.Subscriptions),
		"backup_cron", cfg.BackupCron,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			appLog.Error("failed to close store", err)
		}
	}()

	m := metrics.New(nil)
	sources := subscriptionSources(cfg)
	sched, err := scheduler.New(scheduler.Config{
		BackupCron:       cfg.BackupCron,
		BackupDir:        cfg.BackupDir,
		SubscriptionCron: cfg.SubscriptionCron,
		Sources:          sources,
		Location:         cfg.Location(),
	}, st, ics.NewFetcher(cfg.CacheDir, &http.Client{Timeout: 15 * time.Second}), m)
	if err != nil {
		return err
	}

	srv := web.NewServer(web.Options{
		Config:        cfg,
		Store:         st,
		Subscriptions: sched,
		Metrics:       m,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	g.Go(func() error {
		sched.Start()
		if len(sources) > 0 {
			// Warm the subscription cache instead of waiting for the first tick.
			if err := sched.SyncSubscriptions(ctx); err != nil {
				appLog.Warn("initial subscription sync incomplete", "error", err.Error())
			}
		}
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return sched.Stop(stopCtx)
	})

	err = g.Wait()
	appLog.Info("concierge exiting")
	return err
}

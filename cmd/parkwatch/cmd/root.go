// Package cmd implements the parkwatch CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skitools/parkwatch/internal/config"
	"github.com/skitools/parkwatch/internal/honk"
	"github.com/skitools/parkwatch/internal/metrics"
	"github.com/skitools/parkwatch/internal/notify"
	"github.com/skitools/parkwatch/internal/watcher"
	"github.com/skitools/parkwatch/pkg/logger"
	domain "github.com/skitools/parkwatch/pkg/types"
)

// Browser fetch pacing. Every fetch is a full headless-Chrome page load, so
// the ceiling mostly protects against a misconfigured --interval.
const (
	fetchPerMinute   = 10.0
	fetchBurst       = 4
	fetchDailyBudget = 5000
)

var (
	flagDates       []string
	flagLocation    string
	flagInterval    int
	flagNotify      []string
	flagNtfyTopic   string
	flagStopOnFound bool
	flagHealthcheck bool
	flagConfigFile  string
	flagMetricsAddr string
	flagLogLevel    string
	flagLogFormat   string

	rootCmd = &cobra.Command{
		Use:   "parkwatch",
		Short: "Watch Palisades Tahoe parking availability",
		Long: "parkwatch polls the Palisades Tahoe parking reservation site for\n" +
			"open slots on your target dates and alerts you through ntfy push,\n" +
			"email, SMS, or a desktop notification the moment one appears.",
		Example: `  parkwatch --date 2026-02-21 --location palisades
  parkwatch --date 2026-02-21 --location alpine --interval 60
  parkwatch --date 2026-02-21 --date 2026-02-22 --location both --notify ntfy
  parkwatch --date 2026-03-01 -l palisades -i 30 -n ntfy -n email`,
		SilenceUsage: true,
		RunE:         runWatch,
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringArrayVarP(&flagDates, "date", "d", nil,
		"target date(s) to check in YYYY-MM-DD format (repeatable)")
	rootCmd.Flags().StringVarP(&flagLocation, "location", "l", "palisades",
		"parking location to check (palisades, alpine, both)")
	rootCmd.Flags().IntVarP(&flagInterval, "interval", "i", 0,
		"check interval in seconds; 0 = single check")
	rootCmd.Flags().StringArrayVarP(&flagNotify, "notify", "n", nil,
		"notification channel(s) when spots are found (desktop, ntfy, email, sms)")
	rootCmd.Flags().StringVar(&flagNtfyTopic, "ntfy-topic", "",
		"ntfy.sh topic name (or set NTFY_TOPIC)")
	rootCmd.Flags().BoolVarP(&flagStopOnFound, "stop-on-found", "s", false,
		"stop checking once availability is found")
	rootCmd.Flags().BoolVar(&flagHealthcheck, "healthcheck", false,
		"send a status notification every cycle regardless of availability")
	rootCmd.Flags().StringVar(&flagConfigFile, "config", "",
		"YAML config file for notifier credentials")
	rootCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address (e.g. :9106)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&flagLogFormat, "log-format", "",
		"log format (text, json)")

	cobra.CheckErr(rootCmd.MarkFlagRequired("date"))

	rootCmd.AddCommand(versionCommand())
}

func runWatch(cmd *cobra.Command, _ []string) error {
	dates := make([]string, 0, len(flagDates))
	for _, d := range flagDates {
		date, err := domain.ParseDate(d)
		if err != nil {
			return err
		}
		dates = append(dates, date)
	}

	locations, err := domain.ParseLocations(flagLocation)
	if err != nil {
		return err
	}

	channels, err := notify.ParseChannels(flagNotify)
	if err != nil {
		return err
	}

	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		return err
	}

	// Flags win over file and environment.
	if flagNtfyTopic != "" {
		cfg.Ntfy.Topic = flagNtfyTopic
	}
	if flagMetricsAddr != "" {
		cfg.MetricsAddr = flagMetricsAddr
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Logging.Format = flagLogFormat
	}

	if err := cfg.ValidateChannels(channels); err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	notifiers, err := buildNotifiers(channels, cfg)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		metrics.Listen(cfg.MetricsAddr, log)
	}

	printBanner(cmd, locations, dates, channels)

	browser := honk.NewBrowser(
		honk.WithBrowserLogger(log),
		honk.WithRateLimiter(honk.NewRateLimiter(fetchPerMinute, fetchBurst, fetchDailyBudget)),
	)
	defer browser.Close()

	w, err := watcher.New(
		browser,
		notifiers,
		domain.Targets(locations, dates),
		watcher.WithInterval(time.Duration(flagInterval)*time.Second),
		watcher.WithStopOnFound(flagStopOnFound),
		watcher.WithHealthcheck(flagHealthcheck),
		watcher.WithLogger(log),
		watcher.WithOutput(cmd.OutOrStdout()),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(cmd.OutOrStdout(), "\n\nStopped by user.")
			return nil
		}
		return err
	}
	return nil
}

// buildNotifiers constructs the requested channels in CLI order. The SMS
// channel rides the same SMTP settings as email.
func buildNotifiers(channels []notify.Channel, cfg *config.Config) ([]notify.Notifier, error) {
	var (
		notifiers []notify.Notifier
		emailer   *notify.EmailNotifier
	)

	smtp := func() *notify.EmailNotifier {
		if emailer == nil {
			emailer = notify.NewEmailNotifier(
				cfg.SMTP.Host, cfg.SMTP.Port,
				cfg.SMTP.User, cfg.SMTP.Pass,
				cfg.SMTP.From, cfg.SMTP.To,
			)
		}
		return emailer
	}

	for _, ch := range channels {
		switch ch {
		case notify.ChannelDesktop:
			notifiers = append(notifiers, notify.NewDesktopNotifier())
		case notify.ChannelNtfy:
			notifiers = append(notifiers, notify.NewNtfyNotifier(cfg.Ntfy.Server, cfg.Ntfy.Topic))
		case notify.ChannelEmail:
			notifiers = append(notifiers, smtp())
		case notify.ChannelSMS:
			sms, err := notify.NewSMSNotifier(smtp(), cfg.SMS.Phone, cfg.SMS.Carrier)
			if err != nil {
				return nil, err
			}
			notifiers = append(notifiers, sms)
		}
	}

	return notifiers, nil
}

func printBanner(cmd *cobra.Command, locations []domain.Location, dates []string, channels []notify.Channel) {
	out := cmd.OutOrStdout()

	labels := make([]string, len(locations))
	for i, loc := range locations {
		labels[i] = loc.Label()
	}
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = string(ch)
	}

	fmt.Fprintln(out, "Palisades Tahoe Parking Checker")
	fmt.Fprintf(out, "  Location(s): %s\n", strings.Join(labels, ", "))
	fmt.Fprintf(out, "  Date(s):     %s\n", strings.Join(dates, ", "))
	if flagInterval > 0 {
		fmt.Fprintf(out, "  Interval:    every %ds\n", flagInterval)
	}
	if len(names) > 0 {
		fmt.Fprintf(out, "  Notify via:  %s\n", strings.Join(names, ", "))
	}
	if flagStopOnFound {
		fmt.Fprintln(out, "  Stop on hit: YES")
	}
	fmt.Fprintf(out, "  Reservation: %s\n", honk.SiteURL)
}

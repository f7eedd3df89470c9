package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"notioncal/internal/capture"
	"notioncal/internal/config"
	appLog "notioncal/internal/log"
	"notioncal/internal/notify"
	"notioncal/internal/notion"
	"notioncal/internal/reminder"
	"notioncal/internal/web"
)

const version = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		appLog.Error("notioncal failed", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "notioncal",
		Usage:   "Weekly calendar companion for a Notion event database",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file (default: ~/.notioncal/config.yaml)"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				appLog.SetLevel(appLog.LevelDebug)
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			remindCmd(),
			addCmd(),
			snapshotCmd(),
		},
		DefaultCommand: "serve",
	}
}

// loadConfig resolves the config path (flag or per-user default) and
// loads it. An unreadable config is fatal to the command.
func loadConfig(c *cli.Context) (*config.Config, string, error) {
	path := c.String("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, path, nil
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI, periodic refresh and daily reminder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, path, err := loadConfig(c)
			if err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				cfg.Listen = l
			}

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				appLog.Info("signal received, shutting down", "signal", sig.String())
				cancel()
			}()

			srv := web.NewServer(cfg, path)

			// Daily reminder, resolving the adapter per fire so settings
			// saves take effect without a restart.
			sched := reminder.New(reminder.SystemClock(), cfg.ReminderHour,
				func() reminder.Querier { return srv.Client() },
				notify.NewDesktop())
			go sched.Run(ctx)

			// Periodic view refresh: drop the cached week so the next
			// render re-queries the remote source.
			cr := cron.New()
			if _, err := cr.AddFunc(cfg.RefreshCron, srv.InvalidateEvents); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
			}
			cr.Start()
			defer cr.Stop()

			httpSrv := &http.Server{Addr: cfg.Listen, Handler: srv.Handler()}
			go func() {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = httpSrv.Shutdown(shutdownCtx)
			}()

			appLog.Info("notioncal serving",
				"listen", "http://"+cfg.Listen,
				"refresh", cfg.RefreshCron,
				"reminder_hour", cfg.ReminderHour,
			)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			appLog.Info("notioncal exiting")
			return nil
		},
	}
}

func remindCmd() *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "Run the tomorrow-events reminder check once and exit",
		Action: func(c *cli.Context) error {
			cfg, _, err := loadConfig(c)
			if err != nil {
				return err
			}

			client := notion.NewClient(cfg.Token, cfg.DatabaseID, cfg.DataSourceID)
			sched := reminder.New(reminder.SystemClock(), cfg.ReminderHour,
				func() reminder.Querier { return client },
				notify.NewDesktop())

			if err := sched.RunOnce(c.Context); err != nil {
				if notion.IsConfigError(err) {
					return cli.Exit("settings incomplete: "+err.Error(), 2)
				}
				return err
			}
			return nil
		},
	}
}

func addCmd() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Create a new event record",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Event name", Required: true},
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "ISO date or datetime (2006-01-02[T15:04])", Required: true},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "repeat", Value: "None", Usage: "Recurrence weekday (Sunday..Saturday) or None"},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := loadConfig(c)
			if err != nil {
				return err
			}

			client := notion.NewClient(cfg.Token, cfg.DatabaseID, cfg.DataSourceID)
			params := notion.CreateParams{
				Name:      c.String("name"),
				Date:      c.String("date"),
				Tags:      splitTags(c.String("tags")),
				RepeatDay: c.String("repeat"),
			}
			if err := client.CreateEvent(c.Context, params); err != nil {
				if notion.IsConfigError(err) {
					return cli.Exit("settings incomplete: "+err.Error(), 2)
				}
				return err
			}

			fmt.Fprintf(c.App.Writer, "created: %s (%s)\n", params.Name, params.Date)
			return nil
		},
	}
}

func snapshotCmd() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Capture the served week view to a PNG via headless Chromium",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Week view URL (default: the configured listen address)"},
			&cli.StringFlag{Name: "out", Usage: "Output PNG path (default: preview.png next to the config file)"},
		},
		Action: func(c *cli.Context) error {
			cfg, path, err := loadConfig(c)
			if err != nil {
				return err
			}

			url := c.String("url")
			if url == "" {
				url = "http://" + cfg.Listen + "/"
			}
			out := c.String("out")
			if out == "" {
				out = filepath.Join(filepath.Dir(path), "preview.png")
			}

			if err := capture.WeekPNG(c.Context, capture.Options{URL: url, OutputPath: out}); err != nil {
				return err
			}
			appLog.Info("snapshot written", "url", url, "path", out)
			return nil
		},
	}
}

func splitTags(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

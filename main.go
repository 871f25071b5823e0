package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kashbor/bankmail-to-sheets/cmd"
	"github.com/kashbor/bankmail-to-sheets/config"
	"github.com/kashbor/bankmail-to-sheets/filter"
	"github.com/kashbor/bankmail-to-sheets/mailbox"
	"github.com/kashbor/bankmail-to-sheets/progress"
	"github.com/kashbor/bankmail-to-sheets/runner"
	"github.com/kashbor/bankmail-to-sheets/sheets"
	"github.com/kashbor/bankmail-to-sheets/stats"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bankmail-to-sheets",
		Short: "Extract financial movements from bank notification mail into a spreadsheet",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting bankmail-to-sheets", "source", sourceName(cfg), "sheet", cfg.SheetName, "dryRun", cfg.DryRun, "pollInterval", cfg.PollInterval)

			return run(cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(cmd.NewAnalyzeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	for {
		err := runCycle(cfg, logger)
		if cfg.PollInterval <= 0 {
			return err
		}
		if err != nil {
			// Keep polling: a failed cycle retries after the interval.
			logger.Error("cycle error", "err", err)
		}
		time.Sleep(cfg.PollInterval)
	}
}

func runCycle(cfg config.Config, logger *slog.Logger) error {
	r, err := runner.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}
	log := r.Logger()
	defer func() {
		if err := r.Close(); err != nil {
			log.Error("close processed-id cache", "err", err)
		}
	}()

	f, err := filter.New(filter.Options{
		Senders:        cfg.Senders,
		IncludeSubject: cfg.IncludeSubject,
		IncludeBody:    cfg.IncludeBody,
		ExcludeSubject: cfg.ExcludeSubject,
		ExcludeBody:    cfg.ExcludeBody,
	})
	if err != nil {
		return fmt.Errorf("filter.New: %w", err)
	}

	var sink sheets.Appender
	if !cfg.DryRun {
		client, err := sheets.NewClient(r.Context(), sheets.Options{
			CredentialsFile: cfg.CredentialsFile,
			SpreadsheetID:   cfg.SpreadsheetID,
			SheetName:       cfg.SheetName,
		}, log)
		if err != nil {
			return fmt.Errorf("sheets.NewClient: %w", err)
		}
		if err := client.EnsureHeader(r.Context()); err != nil {
			return fmt.Errorf("ensure header: %w", err)
		}
		ids, err := client.LoadIdentitySet(r.Context())
		if err != nil {
			return fmt.Errorf("load identity set: %w", err)
		}
		r.SeedIdentities(ids)
		log.Debug("identity set loaded", "ids", len(ids))
		sink = client
	}

	var src mailbox.Source
	if cfg.MboxPath != "" {
		total, err := mailbox.CountMessages(cfg.MboxPath)
		if err != nil {
			return fmt.Errorf("count mbox messages: %w", err)
		}
		bar := progress.New(total, r.Tracker().Snapshot().Processed, cfg.LogLevel)
		progress.NewReporter(r, bar, log)
		defer bar.Stop()

		src, err = mailbox.NewMboxSource(cfg.MboxPath, f, log)
		if err != nil {
			return fmt.Errorf("mailbox.NewMboxSource: %w", err)
		}
	} else {
		stats.NewReporter(r, log)

		src, err = mailbox.NewIMAPSource(mailbox.IMAPOptions{
			Host:               cfg.IMAPHost,
			Port:               cfg.IMAPPort,
			Username:           cfg.IMAPUser,
			Password:           cfg.IMAPPass,
			UseTLS:             cfg.UseTLS,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			Mailbox:            cfg.Mailbox,
			Senders:            cfg.Senders,
			LimitPerSender:     cfg.LimitPerSender,
		}, f, log)
		if err != nil {
			return fmt.Errorf("mailbox.NewIMAPSource: %w", err)
		}
	}

	if _, err := mailbox.NewProducer(src, r); err != nil {
		return fmt.Errorf("mailbox.NewProducer: %w", err)
	}
	if _, err := sheets.NewUploader(sink, r, cfg.DryRun, log); err != nil {
		return fmt.Errorf("sheets.NewUploader: %w", err)
	}

	return r.Start()
}

func sourceName(cfg config.Config) string {
	if cfg.MboxPath != "" {
		return cfg.MboxPath
	}
	return cfg.IMAPHost
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("bankmail-to-sheets-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}

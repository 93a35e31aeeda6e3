package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-auction-lister/config"
	"github.com/aluiziolira/go-auction-lister/driver"
	"github.com/aluiziolira/go-auction-lister/models"
	"github.com/aluiziolira/go-auction-lister/notify"
	"github.com/aluiziolira/go-auction-lister/parser"
	"github.com/aluiziolira/go-auction-lister/pipeline"
	"github.com/aluiziolira/go-auction-lister/probe"
	"github.com/aluiziolira/go-auction-lister/sequencer"
)

func init() {
	defaults := config.DefaultConfig()
	flags := runCmd.Flags()
	flags.StringP("input", "i", "", "Delimited listing sheet")
	flags.String("images", "", "Folder holding the listing images")
	flags.String("encoding", "", "Sheet encoding: utf-8 or shift_jis")
	flags.Int("max-retries", defaults.MaxRetries, "Failed attempts allowed per item before the run fails")
	flags.Duration("inter-item-delay", defaults.InterItemDelay, "Wait between posted items")
	flags.Duration("retry-delay", defaults.RetryDelay, "Wait before retrying after a page reload")
	flags.Duration("element-timeout", defaults.ElementTimeout, "How long to wait for each form element")
	flags.String("sell-url", "", "Sell form URL")
	flags.String("profile", "", "Chrome profile directory")
	flags.Bool("headless", defaults.Headless, "Run Chrome without a window")
	flags.Bool("probe", defaults.Probe.Enabled, "Probe the sell page before each reload")
	flags.Bool("notify", false, "Send the final result to ChatWork")
	flags.String("report", "", "Report file path")
	flags.String("format", "", "Report format: csv, json, or both")
	flags.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run --input <items.csv> --images <dir>",
	Short: "Posts every listing in the sheet, retrying failed items after a page reload.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.ValidateRun(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return runListing(cmd.Context(), cmd.OutOrStdout(), cfg)
	},
}

func runListing(ctx context.Context, out io.Writer, cfg *config.Config) error {
	enc, err := parser.ParseEncoding(cfg.Encoding)
	if err != nil {
		return err
	}
	records, err := parser.ParseFile(cfg.InputFile, enc)
	if err != nil {
		return err
	}
	images, err := driver.NewImageResolver(cfg.ImageDir, 0)
	if err != nil {
		return err
	}

	slog.Info("starting listing run",
		slog.String("input", cfg.InputFile),
		slog.Int("items", len(records)),
		slog.Int("max_retries", cfg.MaxRetries),
		slog.Bool("notify", cfg.Chatwork.Enabled),
	)

	browser, err := driver.Launch(ctx, driver.BrowserOptions{
		Headless:     cfg.Headless,
		ProfileDir:   cfg.ProfileDir,
		TypeDelayMin: cfg.TypeDelayMin,
		TypeDelayMax: cfg.TypeDelayMax,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := browser.Close(); err != nil {
			slog.Error("close browser", slog.Any("error", err))
		}
	}()

	opts := driver.Options{SellURL: cfg.SellURL, Timing: driverTiming(cfg)}
	if cfg.Probe.Enabled {
		opts.Probe = probe.NewChecker(probeOptions(cfg, nil))
	}
	d := driver.New(browser, images, opts)
	if err := d.Open(ctx); err != nil {
		return fmt.Errorf("open sell page: %w", err)
	}

	metrics := sequencer.NewMetrics()
	stopMetrics := serveMetrics(cfg.MetricsAddr, metrics)
	defer stopMetrics()

	seqOpts, recorder, writer, err := openRunOptions(cfg, metrics)
	if err != nil {
		return err
	}

	seq := sequencer.New(d, notify.NewLogger(slog.Default()), seqOpts)
	startTime := time.Now()
	if err := seq.Start(ctx, records, sequencer.RunConfig{
		MaxRetries: cfg.MaxRetries,
		Notify:     cfg.Chatwork.Enabled,
	}); err != nil {
		recorder.Close()
		return err
	}

	// The run context is the signal context, so an interrupt ends the run
	// as Stopped and Wait still returns.
	state, runErr := seq.Wait(context.Background())

	if err := recorder.Close(); err != nil {
		slog.Error("report shutdown failed", slog.Any("error", err))
	} else if err := writer.Validate(); err != nil {
		slog.Error("report validation failed", slog.Any("error", err))
	}

	printSummary(out, seq.Snapshot(), recorder.Counts(), time.Since(startTime), cfg.ReportFile)

	switch state {
	case sequencer.Completed:
		return nil
	case sequencer.Stopped:
		return errors.New("listing run stopped before all items were posted")
	default:
		return runErr
	}
}

func driverTiming(cfg *config.Config) driver.Timing {
	t := driver.DefaultTiming()
	t.ElementTimeout = cfg.ElementTimeout
	t.ReloadSettle = cfg.ReloadSettle
	t.PauseMin = cfg.PauseMin
	t.PauseMax = cfg.PauseMax
	return t
}

func serveMetrics(addr string, metrics *sequencer.Metrics) func() {
	if addr == "" {
		return func() {}
	}
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func printSummary(w io.Writer, p sequencer.Progress, counts map[models.ItemStatus]int, duration time.Duration, report string) {
	t := newTable(w)
	t.SetTitle("Listing run %s", p.State)
	t.AppendRows([]table.Row{
		{"Run ID", p.RunID},
		{"Posted", fmt.Sprintf("%d / %d", p.Index, p.Total)},
		{"Attempts", p.Attempts},
		{"Retries", p.Retried},
		{"Failed attempts", counts[models.StatusRetrying] + counts[models.StatusFailed]},
		{"Duration", duration.Round(time.Second)},
		{"Report", report},
	})
	t.Render()
}

// openRunOptions builds the relay, then the report writer and its recorder.
// A relay config error leaves no report file or recorder behind. The caller
// closes the returned recorder.
func openRunOptions(cfg *config.Config, metrics *sequencer.Metrics) (sequencer.Options, *pipeline.Recorder, pipeline.OutputWriter, error) {
	opts := sequencer.Options{
		InterItemDelay: cfg.InterItemDelay,
		RetryDelay:     cfg.RetryDelay,
		Metrics:        metrics,
	}
	if cfg.Chatwork.Enabled {
		relay, err := notify.NewChatwork(notify.ChatworkOptions{
			Endpoint: cfg.Chatwork.Endpoint,
			APIKey:   cfg.Chatwork.APIKey,
			RoomID:   cfg.Chatwork.RoomID,
		})
		if err != nil {
			return sequencer.Options{}, nil, nil, err
		}
		opts.Relay = relay
	}

	writer, err := pipeline.NewWriter(cfg.ReportFormat, cfg.ReportFile)
	if err != nil {
		return sequencer.Options{}, nil, nil, fmt.Errorf("create report: %w", err)
	}
	recorder := pipeline.NewRecorder(writer, pipeline.Options{})
	recorder.Start()
	if cfg.Verbose {
		recorder.StartReporting(30 * time.Second)
	}
	opts.Sink = recorder
	return opts, recorder, writer, nil
}

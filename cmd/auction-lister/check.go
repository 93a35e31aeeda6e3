package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-auction-lister/config"
	"github.com/aluiziolira/go-auction-lister/probe"
)

func init() {
	flags := checkCmd.Flags()
	flags.String("sell-url", "", "Page to probe (defaults to the sell page)")
	flags.StringSlice("marker", nil, "CSS selector to look for in the response (repeatable)")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [--sell-url <url>]",
	Short: "Probes the sell page and reports status, latency and markers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		markers, err := cmd.Flags().GetStringSlice("marker")
		if err != nil {
			return err
		}

		checker := probe.NewChecker(probeOptions(cfg, markers))
		result, err := checker.Check(cmd.Context(), cfg.SellURL)

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Probe", "Result"})
		t.AppendRow(table.Row{"URL", cfg.SellURL})
		if err != nil {
			t.AppendRow(table.Row{"Error type", probe.ErrorType(err)})
			t.AppendRow(table.Row{"Error", err.Error()})
			t.Render()
			return fmt.Errorf("sell page unreachable: %w", err)
		}
		t.AppendRow(table.Row{"Status", result.StatusCode})
		t.AppendRow(table.Row{"Latency", result.Latency.Round(time.Millisecond)})
		names := make([]string, 0, len(result.Markers))
		for m := range result.Markers {
			names = append(names, m)
		}
		sort.Strings(names)
		for _, m := range names {
			t.AppendRow(table.Row{"Marker " + m, result.Markers[m]})
		}
		t.Render()
		return nil
	},
}

func probeOptions(cfg *config.Config, markers []string) probe.Options {
	return probe.Options{
		UserAgent:   cfg.Probe.UserAgent,
		Timeout:     cfg.Probe.Timeout,
		MaxAttempts: cfg.Probe.MaxAttempts,
		Backoff:     cfg.Probe.RetryBackoff,
		BackoffMax:  cfg.Probe.RetryBackoffMax,
		Markers:     markers,
	}
}

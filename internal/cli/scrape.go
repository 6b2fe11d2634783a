package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/internal/pipeline"
	"github.com/FranksOps/leadscout/internal/report"
	"github.com/FranksOps/leadscout/internal/storage"
	"github.com/spf13/cobra"
)

var (
	scrapeAction       string
	scrapeIndustry     string
	scrapeBusinessSize string
	scrapeLocation     string
	scrapeSignals      []string
	scrapeCustom       string
	scrapeSources      []string
	scrapeReport       string
	scrapeOut          string
	scrapeSave         bool
	scrapeTimeout      time.Duration
	scrapeMetricsAddr  string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one lead search and print the results",
	Long: `Scrape builds a keyword query from the selected problem signals, queries
the chosen sources concurrently, and prints the ranked leads as JSON.

Problem signals: no_leads, low_conversions, no_marketing, looking_for_clients,
bad_ads, hiring_marketing, weak_branding, competitor_complaints.
Sources: reddit, fiverr, gozambiajobs, google, apollo.

Example:
  leadscout scrape --sources reddit,google --signals no_leads,weak_branding --industry Retail
  leadscout scrape --sources fiverr --report html --out report.html
  leadscout scrape --sources apollo,gozambiajobs --location Lusaka --save`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVar(&scrapeAction, "action", pipeline.ActionScrape, "action (find, scrape, analyze)")
	scrapeCmd.Flags().StringVar(&scrapeIndustry, "industry", "", "industry to target")
	scrapeCmd.Flags().StringVar(&scrapeBusinessSize, "business-size", "", "business size (informational)")
	scrapeCmd.Flags().StringVar(&scrapeLocation, "location", "", "location to target")
	scrapeCmd.Flags().StringSliceVar(&scrapeSignals, "signals", nil, "problem signals to search for")
	scrapeCmd.Flags().StringVar(&scrapeCustom, "custom", "", "extra free-text signal")
	scrapeCmd.Flags().StringSliceVar(&scrapeSources, "sources", []string{"reddit"}, "sources to query")
	scrapeCmd.Flags().StringVar(&scrapeReport, "report", "", "print a run summary instead of leads (text, json, html)")
	scrapeCmd.Flags().StringVarP(&scrapeOut, "out", "o", "", "write output to this file instead of stdout")
	scrapeCmd.Flags().BoolVar(&scrapeSave, "save", false, "persist leads to the configured store")
	scrapeCmd.Flags().DurationVar(&scrapeTimeout, "timeout", 2*time.Minute, "overall run timeout")
	scrapeCmd.Flags().StringVar(&scrapeMetricsAddr, "metrics-addr", "", "serve /metrics on this address while the run lasts")
}

func runScrape(cmd *cobra.Command, args []string) error {
	switch scrapeReport {
	case "", "text", "json", "html":
	default:
		return fmt.Errorf("unknown --report format %q (text, json, html)", scrapeReport)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, verbose, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, scrapeTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if scrapeSave && a.store == nil {
		return fmt.Errorf("--save needs storage.driver set (sqlite, postgres, csv or json)")
	}
	if scrapeMetricsAddr != "" {
		ms := metrics.Start(scrapeMetricsAddr, logger)
		defer func() { _ = ms.Stop(context.Background()) }()
	}

	resp, err := a.pipeline.Run(ctx, pipeline.Request{
		Action: scrapeAction,
		Params: pipeline.Params{
			Industry:       scrapeIndustry,
			BusinessSize:   scrapeBusinessSize,
			Location:       scrapeLocation,
			ProblemSignals: scrapeSignals,
			CustomSignals:  scrapeCustom,
			Sources:        scrapeSources,
		},
		Credential: a.credential(ctx),
	})
	if err != nil {
		return err
	}

	if scrapeSave {
		n, err := storage.SaveAll(ctx, a.store, resp.Leads)
		if err != nil {
			return err
		}
		logger.Info("leads saved", "count", n, "driver", cfg.Storage.Driver)
	}

	w := cmd.OutOrStdout()
	if scrapeOut != "" {
		f, err := os.Create(scrapeOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writeScrapeOutput(w, scrapeReport, resp)
}

func writeScrapeOutput(w io.Writer, format string, resp *pipeline.Response) error {
	if format == "" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return report.Write(w, format, report.GenerateSummary(resp.Leads, resp.Meta))
}

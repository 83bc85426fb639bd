package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/collect"
	"github.com/sells-group/bbb-collector/internal/export"
	"github.com/sells-group/bbb-collector/internal/pipeline"
)

var (
	scrapeURL        string
	scrapePages      int
	scrapePerSession int
	scrapeSave       bool
	scrapeOut        string
	scrapeFormats    []string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect businesses from BBB search results",
	Long:  "Crawls the search result pages, extracts every unique business profile in batched browser sessions, writes export files and optionally saves the records.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if scrapePerSession > 0 {
			cfg.Scraper.BusinessesPerSession = scrapePerSession
		}
		pages := scrapePages
		if pages == 0 {
			pages = cfg.Scraper.TotalPages
		}
		if pages < 1 || pages > cfg.Scraper.MaxPages {
			return eris.Errorf("scrape: --pages must be between 1 and %d", cfg.Scraper.MaxPages)
		}
		baseURL := scrapeURL
		if baseURL == "" {
			baseURL = cfg.Scraper.BaseURL
		}

		outDir := scrapeOut
		if outDir == "" {
			outDir = cfg.Output.Dir
		}
		names := scrapeFormats
		if len(names) == 0 {
			names = cfg.Output.Formats
		}
		formats, err := export.ParseFormats(names)
		if err != nil {
			return err
		}

		svc, st, err := initCollector(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		out, err := svc.Collect(ctx, pipeline.Request{BaseURL: baseURL, TotalPages: pages}, scrapeSave)
		return exportOutcome(os.Stdout, out, err, outDir, time.Now(), formats)
	},
}

// exportOutcome writes the export files for out, even when collectErr
// reports a failed save, then prints the summary. It returns collectErr
// wrapped, or the export error.
func exportOutcome(w io.Writer, out *collect.Outcome, collectErr error, dir string, day time.Time, formats []export.Format) error {
	if out == nil {
		return eris.Wrap(collectErr, "scrape")
	}

	paths, err := export.WriteFiles(dir, day, out.Records, formats)
	for _, p := range paths {
		zap.L().Info("scrape: wrote export", zap.String("path", p))
	}
	formatScrapeSummary(w, out, paths)

	if collectErr != nil {
		return eris.Wrap(collectErr, "scrape")
	}
	return err
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeURL, "url", "", "search URL or search term (default from config)")
	scrapeCmd.Flags().IntVar(&scrapePages, "pages", 0, "number of search result pages (default from config)")
	scrapeCmd.Flags().IntVar(&scrapePerSession, "per-session", 0, "businesses per browser session (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapeSave, "save", true, "save records to the configured store")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "", "export directory (default from config)")
	scrapeCmd.Flags().StringSliceVar(&scrapeFormats, "format", nil, "export formats: json, csv, xlsx (default from config)")
	rootCmd.AddCommand(scrapeCmd)
}

// formatScrapeSummary writes the run statistics and export paths to w.
func formatScrapeSummary(out io.Writer, o *collect.Outcome, paths []string) {
	s := o.Stats
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if o.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", o.RunID)
	}
	_, _ = fmt.Fprintf(w, "Pages:\t%d (%d failed)\n", s.PagesRequested, s.PagesFailed)
	_, _ = fmt.Fprintf(w, "Candidates:\t%d (%d unique)\n", s.CandidatesFound, s.UniqueCandidates)
	_, _ = fmt.Fprintf(w, "Batches:\t%d (%d failed to open)\n", s.Batches, s.BatchesFailed)
	_, _ = fmt.Fprintf(w, "Detail failures:\t%d\n", s.DetailFailures)
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", s.Records)
	_, _ = fmt.Fprintf(w, "Saved:\t%d\n", o.Saved)
	if s.Duration != "" {
		_, _ = fmt.Fprintf(w, "Duration:\t%s\n", s.Duration)
	}
	for _, p := range paths {
		_, _ = fmt.Fprintf(w, "Wrote:\t%s\n", p)
	}
	_ = w.Flush()
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/library"
	"github.com/brogergvhs/noveld/internal/novel"
	"github.com/brogergvhs/noveld/internal/providers"
	"github.com/brogergvhs/noveld/internal/providers/jjwxc"
	"github.com/brogergvhs/noveld/internal/providers/qidian"
	"github.com/brogergvhs/noveld/internal/ui"
	"github.com/brogergvhs/noveld/internal/util"
)

var (
	// selection
	flagURL   string
	flagRange string

	// runtime
	flagOutput    string
	flagWorkers   int
	flagRetries   int
	flagRateLimit float64
	flagEPUB      bool
	flagDryRun    bool

	// headers/auth
	flagCookie           string
	flagCookieFile       string
	flagUserAgent        string
	flagCloudflareBypass bool
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download novel chapters as text files. Uses the defaults from the selected config, overwritten by CLI flags",
		RunE:  runDownload,
	}

	// selection
	downloadCmd.Flags().StringVar(&flagURL, "url", "", "novel book page URL")
	downloadCmd.Flags().StringVar(&flagRange, "range", "", "1-based inclusive chapter range (e.g. 5-12, 5-, -12, 7)")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "destination folder for chapter files")
	downloadCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel chapter downloads")
	downloadCmd.Flags().IntVar(&flagRetries, "retries", 0, "extra attempts per request on network errors and 5xx")
	downloadCmd.Flags().Float64Var(&flagRateLimit, "rate-limit", 0, "requests per second across all workers, 0 = unlimited")
	downloadCmd.Flags().BoolVar(&flagEPUB, "epub", false, "compile downloaded chapters into an EPUB")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would be downloaded, don't download")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "pin one User-Agent instead of rotating")
	downloadCmd.Flags().BoolVar(&flagCloudflareBypass, "cloudflare-bypass", false, "use a Cloudflare-friendly TLS fingerprint")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	var retries *int
	if cmd.Flags().Changed("retries") {
		retries = &flagRetries
	}

	cfg, usedPath, err := loadConfig(config.Options{
		Output:           flagOutput,
		Workers:          flagWorkers,
		Retries:          retries,
		RateLimit:        flagRateLimit,
		DefaultURL:       flagURL,
		DefaultRange:     flagRange,
		Cookie:           flagCookie,
		CookieFile:       flagCookieFile,
		UserAgent:        flagUserAgent,
		CloudflareBypass: flagCloudflareBypass,
		EPUB:             flagEPUB,
	})
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	log.Debugf("config file: %s", usedPath)

	if cfg.DefaultURL == "" {
		return errors.New("missing --url and no default_url in config")
	}

	start, end, err := chapters.ParseRange(cfg.DefaultRange)
	if err != nil {
		return err
	}

	client, err := fetch.NewClient(fetch.Options{
		Timeout:          time.Duration(cfg.ContentTimeout) * time.Second,
		UserAgent:        cfg.UserAgent,
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		RateLimit:        cfg.RateLimit,
		Retries:          cfg.Retries,
		Logger:           log,
	})
	if err != nil {
		return err
	}

	catalogTimeout := time.Duration(cfg.CatalogTimeout) * time.Second
	registry := providers.NewRegistry(
		qidian.New(client, catalogTimeout),
		jjwxc.New(client, catalogTimeout),
	)

	ctx, stop := util.InterruptContext(context.Background(), func() {
		log.Warnf("interrupt received, finishing in-flight chapters (press Ctrl+C again to quit)")
	})
	defer stop()

	opts := novel.Options{
		Registry:       registry,
		Fetcher:        client,
		Workers:        cfg.Workers,
		ContentTimeout: time.Duration(cfg.ContentTimeout) * time.Second,
		Logger:         log,
	}

	if !flagDryRun {
		lib, err := library.Open(ctx, cfg.LibraryPath)
		if err != nil {
			log.Warnf("library unavailable, run will not be recorded: %v", err)
		} else {
			defer lib.Close()
			opts.Library = lib
		}
	}

	runner := novel.NewRunner(opts)
	req := novel.Request{
		SourceURL:   cfg.DefaultURL,
		Destination: cfg.Output,
		RangeStart:  start,
		RangeEnd:    end,
		EPUB:        cfg.EPUB,
	}

	plan, err := runner.Plan(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagDryRun {
		fmt.Fprintf(out, "Dry-run: %q by %s, %d of %d chapters selected.\n\n",
			plan.Work.Title, plan.Work.Author, len(plan.Chapters), plan.Catalog)
		fmt.Fprintln(out, renderPlan(plan, cfg.Output))
		return nil
	}

	stream := ui.NewStream(64)
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		ui.Render(stream.Events(), plan.Work.Title, os.Stdout, log)
	}()

	sum, runErr := runner.Execute(ctx, plan, req, stream)
	<-rendered

	st := stream.Stats()
	log.Debugf("stream: %d chapters, %d failed, %s", st.Chapters.Load(), st.Failed.Load(), util.Human(st.Bytes.Load()))

	if sum == nil {
		return runErr
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSummary(sum))
	if len(sum.Failures) > 0 {
		fmt.Fprintln(out, "\nFailed chapters:")
		fmt.Fprintln(out, renderFailures(sum.Failures))
	}
	if len(sum.Warnings) > 0 {
		fmt.Fprintln(out, "\nDuplicate titles (not downloaded):")
		fmt.Fprintln(out, renderFailures(sum.Warnings))
	}
	if sum.EPUBPath != "" {
		fmt.Fprintf(out, "\nEPUB: %s (%d chapters)\n", sum.EPUBPath, sum.EPUBChapters)
	}

	if runErr != nil {
		return runErr
	}
	if !sum.OK() {
		return fmt.Errorf("%d of %d chapters failed", sum.Failed, sum.Total)
	}

	log.Infof("all done: %d downloaded, %d already present", sum.Completed, sum.Skipped)
	return nil
}

func renderPlan(plan *novel.Plan, dest string) string {
	rows := make([][]string, 0, len(plan.Chapters))
	for _, ch := range plan.Chapters {
		present := ""
		if _, err := os.Stat(ch.Path(dest)); err == nil {
			present = "yes"
		}
		rows = append(rows, []string{strconv.Itoa(ch.Index), ch.Title, ch.FileName(), present})
	}

	return renderTable([]string{"#", "Title", "File", "On disk"}, rows, []columnAlignment{alignRight})
}

func renderSummary(sum *novel.Summary) string {
	rows := [][]string{
		{"Work", fmt.Sprintf("%s / %s", sum.Work.Title, sum.Work.Author)},
		{"Destination", sum.Destination},
		{"Selected", strconv.Itoa(sum.Total)},
		{"Downloaded", strconv.Itoa(sum.Completed)},
		{"Already present", strconv.Itoa(sum.Skipped)},
		{"Failed", strconv.Itoa(sum.Failed)},
		{"Duplicates", strconv.Itoa(sum.Duplicates)},
		{"Not started", strconv.Itoa(sum.Pending)},
		{"Data", util.Human(sum.Bytes)},
		{"Time", sum.Elapsed.Round(time.Second).String()},
	}

	return renderTable([]string{"Download Summary", ""}, rows, nil)
}

func renderFailures(list []novel.Failure) string {
	rows := make([][]string, 0, len(list))
	for _, f := range list {
		rows = append(rows, []string{strconv.Itoa(f.Index), f.Title, f.Reason})
	}

	return renderTable([]string{"#", "Title", "Reason"}, rows, []columnAlignment{alignRight})
}

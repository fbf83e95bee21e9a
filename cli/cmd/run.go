package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/dredge/catalog"
	"github.com/justapithecus/dredge/engine"
	"github.com/justapithecus/dredge/metrics"
	"github.com/justapithecus/dredge/types"
)

// Exit codes for the run command.
const (
	exitCompleted           = 0
	exitCompletedWithErrors = 1
	exitAuthExpired         = 2
	exitStartupFailure      = 3
)

// RunCommand returns the run command. SIGINT/SIGTERM pause the run
// cooperatively; a final checkpoint is always written.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start or resume a crawl run",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source context as type:id (e.g. spaces:42)",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Catalog listing URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (generated when omitted)",
			},
			&cli.BoolFlag{
				Name:  "resume",
				Usage: "Resume from the stored checkpoint",
			},
			&cli.StringFlag{
				Name:  "page",
				Usage: "Crawl a saved page file instead of the live listing",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Detail fetch workers",
			},
			&cli.IntFlag{
				Name:  "idle-rounds",
				Usage: "Consecutive non-growth rounds before discovery completes",
			},
			&cli.BoolFlag{
				Name:  "download-previews",
				Usage: "Download preview images alongside detail fetches",
			},
			&cli.StringFlag{
				Name:  "preview-dir",
				Usage: "Directory for downloaded previews",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress result output",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	src, err := resolveSource(c, cfg)
	if err != nil {
		return err
	}
	if err := src.Validate(); err != nil {
		return fmt.Errorf("%w (set source in dredge.yaml or pass --source type:id)", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("checkpoint store: %v", err), exitStartupFailure)
	}

	allowlist := catalog.NewAllowlist(cfg.Crawl.AllowedHosts)
	fetcher, err := catalog.NewHTTPFetcher(catalog.HTTPFetcherConfig{
		Headers:   cfg.Auth.Headers,
		Timeout:   cfg.Crawl.FetchTimeout.Duration,
		ProxyURL:  cfg.Crawl.ProxyURL,
		Allowlist: allowlist,
	})
	if err != nil {
		return fmt.Errorf("fetcher: %w", err)
	}

	view, err := buildView(c, fetcher, src)
	if err != nil {
		return err
	}

	downloadPreviews := resolveBool(c, "download-previews", cfg.Crawl.DownloadPreviews)
	var downloader catalog.Downloader
	if downloadPreviews {
		downloader = catalog.NewHTTPDownloader(cfg.Auth.Headers, cfg.Crawl.FetchTimeout.Duration, allowlist)
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return fmt.Errorf("adapter: %w", err)
	}
	if notifier != nil {
		defer func() { _ = notifier.Close() }()
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}

	backend := cfg.Checkpoint.Backend
	if backend == "" {
		backend = "fs"
	}
	collector := metrics.NewCollector(string(src.Key()), backend, runID)

	controller, err := engine.NewController(engine.ControllerConfig{
		Source:     src,
		RunID:      runID,
		View:       view,
		Fetcher:    fetcher,
		Parser:     catalog.NewDetailParser(),
		Downloader: downloader,
		Store:      store,
		Discovery: engine.DiscoveryConfig{
			IdleThreshold: resolveInt(c, "idle-rounds", cfg.Crawl.IdleRounds),
			SettleDelay:   cfg.Crawl.SettleDelay.Duration,
		},
		Workers: engine.WorkerConfig{
			Workers:          resolveInt(c, "workers", cfg.Crawl.Workers),
			Pause:            cfg.Crawl.WorkerPause.Duration,
			FailureBackoff:   cfg.Crawl.FailureBackoff.Duration,
			DownloadPreviews: downloadPreviews,
			PreviewDir:       resolveString(c, "preview-dir", cfg.Crawl.PreviewDir),
		},
		CheckpointInterval: cfg.Crawl.CheckpointInterval.Duration,
		Notifier:           notifier,
		Collector:          collector,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	result, err := controller.Execute(ctx, c.Bool("resume"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("startup failed: %v", err), exitStartupFailure)
	}

	if !c.Bool("quiet") {
		printRunResult(result)
	}

	return cli.Exit("", outcomeToExitCode(result.Outcome.Status))
}

// buildView selects the discovery view: a saved page file with --page,
// otherwise the live paged listing at the source URL.
func buildView(c *cli.Context, fetcher catalog.Fetcher, src types.SourceContext) (catalog.View, error) {
	if page := c.String("page"); page != "" {
		return catalog.NewFileView(page, src.URL)
	}
	if src.URL == "" {
		return nil, errors.New("a listing URL is required (set source.url in dredge.yaml, pass --url, or use --page)")
	}
	return catalog.NewPagedView(fetcher, src.URL), nil
}

// outcomeToExitCode maps a run outcome to the process exit code. A
// cooperative pause is a clean exit; the stored checkpoint carries the
// partial progress.
func outcomeToExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeCompleted, types.OutcomePaused:
		return exitCompleted
	case types.OutcomeCompletedWithErrors, types.OutcomeDiscoveryFailed:
		return exitCompletedWithErrors
	case types.OutcomeAuthExpired:
		return exitAuthExpired
	default:
		return exitCompletedWithErrors
	}
}

func printRunResult(result *engine.RunResult) {
	fmt.Printf("\nrun_id=%s, outcome=%s, duration=%s\n",
		result.RunID,
		result.Outcome.Status,
		result.Duration.Round(time.Millisecond),
	)
	fmt.Printf("discovered=%d, done=%d, errored=%d, pending=%d\n",
		result.Status.Discovered,
		result.Status.Done,
		result.Status.Errored,
		result.Status.Pending,
	)
	if result.Outcome.Message != "" {
		fmt.Println(result.Outcome.Message)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mamamialezatoz/go-techstack/internal/browser"
	"github.com/mamamialezatoz/go-techstack/internal/config"
	"github.com/mamamialezatoz/go-techstack/internal/logger"
	"github.com/mamamialezatoz/go-techstack/internal/messaging"
	"github.com/mamamialezatoz/go-techstack/internal/reconciler"
	"github.com/mamamialezatoz/go-techstack/internal/store"
)

type scanOptions struct {
	Timeout time.Duration
	outputOptions
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Load a page in a headless browser and detect its technologies",
		Long: `Load a page in a headless Chromium tab. DOM evidence is collected inside the
page, response headers from the navigation, and both are reconciled into one
result for the visit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&opts.Timeout, "timeout", 0, "navigation timeout (default from config)")
	flags.BoolVar(&opts.JSON, "json", false, "print the export report as JSON")
	flags.StringVarP(&opts.Output, "output", "o", "", "write the export report to a file")
	return cmd
}

func runScan(ctx context.Context, target string, opts *scanOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !strings.Contains(target, "://") {
		target = "https://" + target
	}

	if loadedConfigFile != "" {
		stopWatch := watchConfig(ctx, loadedConfigFile)
		defer stopWatch()
	}

	db, err := loadSignatures(ctx, cfg.Signatures)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	rec := reconciler.New(db,
		reconciler.WithCompleteAfter(cfg.Reconciler.CompleteAfter),
		reconciler.WithStore(st),
		reconciler.WithBadgeSink(messaging.LogBadge{}),
	)
	if err := rec.Restore(); err != nil {
		logger.Warnf("failed to restore visit records: %v", err)
	}

	coord := messaging.NewCoordinator(rec, cfg.Reconciler.SweepInterval)
	runCtx, stopCoord := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = coord.Run(runCtx)
	}()
	defer func() {
		stopCoord()
		<-stopped
	}()

	spinner, _ := pterm.DefaultSpinner.Start("Launching browser...")
	b, err := browser.Launch(cfg.Browser)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	defer b.Close()

	relays := messaging.NewRelays()
	host := browser.NewHost(b, coord, relays, db)
	host.NavigationTimeout = cfg.Browser.NavigationTimeout
	if opts.Timeout > 0 {
		host.NavigationTimeout = opts.Timeout
	}

	spinner.UpdateText("Loading " + target)
	tab, err := host.Visit(ctx, target)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	defer func() {
		if err := host.Close(context.Background(), tab); err != nil {
			logger.Debugf("failed to close tab %d: %v", tab, err)
		}
	}()

	reader := messaging.NewReader(relays, coord)
	reader.RetryDelay = cfg.Reader.RetryDelay
	res, err := reader.Detections(ctx, tab)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success("Analyzed " + res.Domain)

	logger.WithField("source", string(res.Source)).Debugf("read %d technologies for visit %s", len(res.Technologies), res.Visit)
	return emit(opts.outputOptions, db, res.Domain, res.Technologies)
}

// watchConfig applies log settings from the config file while a scan runs
func watchConfig(ctx context.Context, path string) func() {
	w, err := config.NewWatcher(path, cfg)
	if err != nil {
		logger.Warnf("config watcher disabled: %v", err)
		return func() {}
	}
	w.ErrorHandler = func(err error) {
		logger.Warnf("%v", err)
	}
	w.AddCallback(func(oldConfig, newConfig *config.Config) error {
		m := logger.Current()
		if m == nil {
			return nil
		}
		return m.UpdateConfig(&newConfig.Log)
	})

	if err := w.Start(ctx); err != nil {
		logger.Warnf("config watcher disabled: %v", err)
		w.Close()
		return func() {}
	}
	return func() { w.Close() }
}

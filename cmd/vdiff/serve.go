package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vdiff/internal/config"
	"github.com/vango-dev/vdiff/internal/devserver"
	"github.com/vango-dev/vdiff/pkg/journal"
	"github.com/vango-dev/vdiff/pkg/memdom"
	"github.com/vango-dev/vdiff/pkg/runtime"
)

type serveOptions struct {
	addr    string
	journal string
	record  bool
	tick    time.Duration
}

func serveCmd(flags *globalFlags) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo program behind the development server",
		Long: `Run a demo program whose task list edits itself on every tick, and
serve its render cycles:

  /snapshot  HTML of the live tree
  /ws        snapshot and patch frames as they are drawn
  /metrics   Prometheus metrics
  /journal   recorded cycles (with --record or journal.enabled)

Examples:
  vdiff serve
  vdiff serve --addr=:8080 --tick=250ms
  vdiff serve --record --journal=demo.journal`,
		Args: rangeArgs(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Dev.Addr = opts.addr
			}
			if opts.journal != "" {
				cfg.Journal.Path = opts.journal
				opts.record = true
			}
			if opts.record {
				cfg.Journal.Enabled = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg, flags, opts.tick)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from "+config.ConfigFileName+")")
	cmd.Flags().BoolVar(&opts.record, "record", false, "Record every cycle to the journal")
	cmd.Flags().StringVar(&opts.journal, "journal", "", "Journal path; implies --record")
	cmd.Flags().DurationVar(&opts.tick, "tick", time.Second, "Interval between demo edits")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, flags *globalFlags, tick time.Duration) error {
	logger := flags.logger(cmd, cfg)
	w := cmd.OutOrStdout()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var j *journal.Journal
	if cfg.Journal.Enabled {
		var err error
		j, err = journal.Open(cfg.JournalPath())
		if err != nil {
			return err
		}
		defer j.Close()
		info(w, "Recording to %s", cfg.JournalPath())
	}

	srv := devserver.New(devserver.Options{
		Addr:           cfg.Dev.Addr,
		Gatherer:       reg,
		Journal:        j,
		AllowedOrigins: cfg.Dev.AllowedOrigins,
		Logger:         logger,
	})

	opts := []runtime.Option{
		runtime.WithLogger(logger),
		runtime.WithScheduler(runtime.NewTickerScheduler(cfg.Runtime.FrameInterval.Duration)),
		runtime.WithRegistry(reg),
		runtime.WithNamespace(cfg.Runtime.Namespace),
		runtime.WithObserver(srv.Observer()),
	}
	if j != nil {
		opts = append(opts, runtime.WithObserver(j.Observer(logger)))
	}
	p := runtime.New(memdom.NewDocument(), newBoard(), updateBoard, viewBoard, opts...)
	srv.SetProgram(p)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- p.Run(ctx)
		cancel()
	}()
	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Dispatch(tickMsg{}, false)
			}
		}
	}()

	success(w, "Serving demo on http://%s", cfg.Dev.Addr)
	serveErr := srv.ListenAndServe(ctx)
	cancel()
	if err := <-runErr; err != nil && !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if serveErr != nil {
		return serveErr
	}
	info(w, "Shut down")
	return nil
}

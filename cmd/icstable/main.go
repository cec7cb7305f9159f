package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"icstable/internal/config"
	"icstable/internal/ics"
	appLog "icstable/internal/log"
	"icstable/internal/metrics"
	"icstable/internal/refresh"
	"icstable/internal/transcode"
	"icstable/internal/value"
	"icstable/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	format     string
	strict     bool
	folded     bool
	serve      bool
	watch      bool
	inputs     []string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		appLog.Warn("failed to load .env", "err", err)
	}

	flags := parseFlags()

	// One-shot transcoding never writes a default config file.
	load := config.Read
	if flags.serve || flags.watch {
		load = config.Load
	}
	conf, err := load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.format != "" {
		conf.Format = flags.format
	}
	format, err := value.ParseFormat(conf.Format)
	if err != nil {
		appLog.Error("invalid output format", err, "format", conf.Format)
		os.Exit(2)
	}
	strict := conf.Strict || flags.strict

	appLog.Debug("effective config",
		"listen", conf.Listen,
		"format", format,
		"strict", strict,
		"refresh", conf.Refresh,
		"source_count", len(conf.Sources),
		"serve", flags.serve,
		"watch", flags.watch,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !flags.serve && !flags.watch {
		opts := ics.Options{Strict: strict, Folded: flags.folded}
		if err := runOnce(flags.inputs, opts, format, os.Stdout); err != nil {
			appLog.Error("transcode failed", err)
			os.Exit(1)
		}
		return
	}

	runner := refresh.NewRunner(ics.NewFetcher(conf.CacheDir), strict)

	if flags.watch {
		stop, err := startWatch(ctx, conf, runner, format)
		if err != nil {
			appLog.Error("failed to start watch", err, "refresh", conf.Refresh)
			os.Exit(1)
		}
		defer stop()
	}

	if flags.serve {
		if err := web.NewServer(conf, runner).ListenAndServe(ctx); err != nil {
			appLog.Error("HTTP server failed", err, "listen", conf.Listen)
			os.Exit(1)
		}
	} else {
		<-ctx.Done()
	}
	appLog.Info("icstable exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./icstable.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.format, "format", "", "Output format: json or yaml (overrides config if set)")
	flag.BoolVar(&cfg.strict, "strict", false, "Also validate every document with golang-ical")
	flag.BoolVar(&cfg.folded, "folded", false, "Input keeps RFC 5545 line folding; do not trim lines")
	flag.BoolVar(&cfg.serve, "serve", false, "Serve the HTTP API")
	flag.BoolVar(&cfg.watch, "watch", false, "Transcode configured sources on the refresh schedule")

	flag.Parse()
	cfg.inputs = flag.Args()

	return cfg
}

// runOnce transcodes each named file, or stdin when none is given, and
// writes one encoded value per input.
func runOnce(inputs []string, opts ics.Options, format value.Format, out io.Writer) error {
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	w := bufio.NewWriter(out)
	for _, name := range inputs {
		data, err := readInput(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		start := time.Now()
		v := transcode.FromICS(string(data), value.Span{Start: 0, End: len(data)}, opts)
		sum := transcode.Summarize(v)
		metrics.Observe("cli", sum, time.Since(start))
		if sum.Failed > 0 {
			appLog.Warn("some documents could not be parsed", "input", name, "documents", sum.Documents, "failed", sum.Failed)
		}

		if err := value.Encode(w, v, format); err != nil {
			return err
		}
	}
	return w.Flush()
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

// startWatch runs one refresh immediately and then on every tick of the
// configured cron schedule. The returned func stops the scheduler and
// waits for a running refresh to finish.
func startWatch(ctx context.Context, conf *config.Config, runner *refresh.Runner, format value.Format) (func(), error) {
	sources := refresh.SourcesFromConfig(conf)
	if len(sources) == 0 {
		appLog.Warn("watch enabled but no sources configured")
	}

	job := func() {
		outs, errs := runner.Run(ctx, sources, "watch")
		if len(errs) > 0 {
			appLog.Error("refresh: one or more fetches failed", errors.Join(errs...), "error_count", len(errs))
		}
		if err := refresh.WriteOutputs(conf.OutputDir, outs, format); err != nil {
			appLog.Error("refresh: write outputs failed", err, "output_dir", conf.OutputDir)
			return
		}
		appLog.Info("refresh completed", "sources", len(outs), "output_dir", conf.OutputDir)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(conf.Refresh, job); err != nil {
		return nil, err
	}

	go job()
	c.Start()
	appLog.Info("watch started", "refresh", conf.Refresh, "sources", len(sources))

	return func() {
		<-c.Stop().Done()
	}, nil
}

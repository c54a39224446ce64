package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"tina/internal/condition"
	"tina/internal/config"
	"tina/internal/destination"
	"tina/internal/router"
	"tina/internal/supervisor"
	"tina/internal/telegram"
	"tina/internal/telemetry/health"
	"tina/internal/telemetry/logging"
	"tina/internal/telemetry/metrics"
	"tina/internal/wni"
)

// buildVersion is overridden at link time with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

const defaultConfigPath = "config/tina.yaml"

func main() {
	var showVersion bool
	var metricsAddr, healthAddr string
	flag.BoolVar(&showVersion, "v", false, "print build revision and exit")
	flag.BoolVar(&showVersion, "version", false, "print build revision and exit")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on (disabled when empty)")
	flag.StringVar(&healthAddr, "health-addr", "", "address to serve /healthz on (disabled when empty)")
	flag.Parse()

	if showVersion {
		fmt.Println("tina", buildVersion)
		os.Exit(0)
	}

	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("load config %s: %v", path, err)
	}

	logger := logging.New(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.Level})))

	areaDict, err := telegram.LoadCodeTableCSV(cfg.AreaDictPath)
	if err != nil {
		log.Fatalf("load area dictionary: %v", err)
	}
	epicenterDict, err := telegram.LoadCodeTableCSV(cfg.EpicenterDictPath)
	if err != nil {
		log.Fatalf("load epicenter dictionary: %v", err)
	}
	dicts := telegram.NewDictionaries(epicenterDict, areaDict)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloader, err := telegram.NewDictionaryReloader(dicts, cfg.EpicenterDictPath, cfg.AreaDictPath)
	if err != nil {
		log.Printf("dictionary hot-reload disabled: %v", err)
	} else {
		defer reloader.Close()
		errs, err := reloader.Watch(ctx)
		if err != nil {
			log.Printf("dictionary hot-reload disabled: %v", err)
		} else {
			go func() {
				for werr := range errs {
					logger.WarnCtx(ctx, "dictionary reload failed", slog.String("error", werr.Error()))
				}
			}()
		}
	}

	client := wni.NewClient(cfg.WNI.ID, cfg.WNI.TerminalID, cfg.WNI.Password, cfg.WNI.ServerListURL)
	client.WireLog = newWireLogger(cfg.Log)

	var provider metrics.Provider = metrics.NewNoopProvider()
	var promProvider *metrics.PrometheusProvider
	if metricsAddr != "" {
		promProvider = metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})
		provider = promProvider
	}

	eewLogger := logging.New(slog.New(slog.NewJSONHandler(logSinkWriter(cfg.Log.EEWStdoutLog, cfg.Log.EEWLogPath), &slog.HandlerOptions{Level: cfg.Log.Level})))
	destLogger := logging.New(slog.New(slog.NewJSONHandler(logSinkWriter(cfg.Log.DestDebugStdoutLog, cfg.Log.DestDebugLogPath), &slog.HandlerOptions{Level: slog.LevelDebug})))
	routers, workers := buildDestinations(cfg, eewLogger, destLogger, provider)
	if len(routers) == 0 {
		log.Fatalf("no destinations configured: enable at least one of logging/slack/twitter")
	}

	sup := supervisor.New(client, dicts, cfg.Supervisor.HistoryCapacity, routers,
		supervisor.WithLogger(logger),
		supervisor.WithReaderCount(cfg.Supervisor.ReaderCount),
		supervisor.WithIngestBuffer(cfg.Supervisor.IngestBuffer),
		supervisor.WithMetrics(supervisor.NewMetrics(provider)),
	)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("signal received; initiating graceful shutdown...")
		cancel()
		<-sigCh
		log.Println("second signal received; forcing exit")
		os.Exit(1)
	}()

	for i, w := range workers {
		go w.Run(ctx, routers[i].Deliveries())
	}

	if promProvider != nil {
		serveMetrics(ctx, metricsAddr, promProvider)
	}
	if healthAddr != "" {
		serveHealth(ctx, healthAddr, buildHealthEvaluator(sup, routers))
	}

	if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("supervisor exited: %v", err)
	}
}

// configPath resolves the config file path per the daemon's process
// surface: the first positional argument, else TINA_CONF_PATH, else the
// built-in default.
func configPath() string {
	if flag.NArg() > 0 {
		return flag.Arg(0)
	}
	if p := os.Getenv("TINA_CONF_PATH"); p != "" {
		return p
	}
	return defaultConfigPath
}

// buildDestinations turns the config's destination sections into parallel
// router/worker slices, one router per enabled destination, each gating its
// own worker's inbound channel. Routers and outbound workers log through
// the per-destination debug channel; the logging destination itself writes
// its full-detail dumps through the EEW delivery channel.
func buildDestinations(cfg *config.Config, eewLogger, destLogger logging.Logger, provider metrics.Provider) ([]*router.Router, []destination.Worker) {
	var routers []*router.Router
	var workers []destination.Worker

	routerMetrics := router.NewMetrics(provider)
	workerMetrics := destination.NewMetrics(provider)

	if cfg.Logging == nil || cfg.Logging.Enabled {
		var cond condition.Condition = condition.Constant(true)
		if cfg.Logging != nil {
			cond = cfg.Logging.Condition
		}
		r := router.New("logging", cond, destLogger, router.WithMetrics(routerMetrics))
		routers = append(routers, r)
		w := destination.NewLoggingWorker(eewLogger)
		w.SetMetrics(workerMetrics)
		workers = append(workers, w)
	}

	if cfg.Slack != nil {
		r := router.New("slack", cfg.Slack.Condition, destLogger, router.WithMetrics(routerMetrics))
		routers = append(routers, r)
		w := destination.NewSlackWorker(cfg.Slack.WebhookURL, destLogger)
		w.SetMetrics(workerMetrics)
		workers = append(workers, w)
	}

	if cfg.Twitter != nil {
		r := router.New("twitter", cfg.Twitter.Condition, destLogger, router.WithMetrics(routerMetrics))
		routers = append(routers, r)
		w := destination.NewTwitterWorker(destination.TwitterCredentials{
			ConsumerKey:    cfg.Twitter.ConsumerKey,
			ConsumerSecret: cfg.Twitter.ConsumerSecret,
			AccessKey:      cfg.Twitter.AccessKey,
			AccessSecret:   cfg.Twitter.AccessSecret,
		}, cfg.Twitter.ReplyChain, destLogger)
		w.SetMetrics(workerMetrics)
		workers = append(workers, w)
	}

	return routers, workers
}

func buildHealthEvaluator(sup *supervisor.Supervisor, routers []*router.Router) *health.Evaluator {
	e := health.NewEvaluator(2 * time.Second)
	for _, r := range routers {
		r := r
		e.Register(health.ChannelFillProbe(r.Name(), func() (int, int) { return r.Len(), r.Cap() }, 0.8))
	}
	e.Register(health.ProbeFunc(func(context.Context) health.ProbeResult {
		return health.Healthy(fmt.Sprintf("history(%d tracked)", sup.History().Len()))
	}))
	return e
}

func serveMetrics(ctx context.Context, addr string, provider interface{ MetricsHandler() http.Handler }) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	go func() {
		log.Printf("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server stopped: %v", err)
		}
	}()
}

func serveHealth(ctx context.Context, addr string, evaluator *health.Evaluator) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		snap := evaluator.Evaluate(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if snap.Overall == health.StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(snap)
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	go func() {
		log.Printf("health endpoint listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server stopped: %v", err)
		}
	}()
}

// wireLogger fans every raw wire line out to stdout and/or a log file
// per the configured sinks.
type wireLogger struct {
	stdout bool
	file   *os.File
}

func newWireLogger(cfg config.LogConfig) *wireLogger {
	wl := &wireLogger{stdout: cfg.WNIStdoutLog}
	if cfg.WNILogPath != "" {
		f, err := os.OpenFile(cfg.WNILogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Printf("open wni log file %s: %v", cfg.WNILogPath, err)
		} else {
			wl.file = f
		}
	}
	return wl
}

func (w *wireLogger) LogLine(server, line string) {
	if w.stdout {
		fmt.Printf("[%s] %s\n", server, line)
	}
	if w.file != nil {
		fmt.Fprintf(w.file, "[%s] %s\n", server, line)
	}
}

// logSinkWriter builds the sink for one log channel, combining stdout
// and a log file exactly like newWireLogger does for the raw wire log.
// A channel with neither sink configured gets io.Discard: the channel
// exists but its output is off.
func logSinkWriter(stdout bool, path string) io.Writer {
	var writers []io.Writer
	if stdout {
		writers = append(writers, os.Stdout)
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Printf("open log file %s: %v", path, err)
		} else {
			writers = append(writers, f)
		}
	}
	if len(writers) == 0 {
		return io.Discard
	}
	return io.MultiWriter(writers...)
}

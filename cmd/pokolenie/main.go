// Command pokolenie checks a Python submission against fixture files, or
// serves check jobs from Kafka.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/WinMir22/pokolenie-python/internal/app/checker"
	"github.com/WinMir22/pokolenie-python/internal/app/worker"
	"github.com/WinMir22/pokolenie-python/internal/domain/execution"
	"github.com/WinMir22/pokolenie-python/internal/infra/docker"
	kafkainfra "github.com/WinMir22/pokolenie-python/internal/infra/kafka"
	"github.com/WinMir22/pokolenie-python/internal/infra/process"
	"github.com/WinMir22/pokolenie-python/internal/ports"
	"github.com/WinMir22/pokolenie-python/internal/runtime"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "check":
			return runCheck(ctx, args[1:], stdout, stderr)
		case "serve":
			return runServe(ctx, args[1:], stdout, stderr)
		case "submit":
			return runSubmit(ctx, args[1:], stdout, stderr)
		case "help", "-h", "--help":
			writeUsage(stdout)
			return exitOK
		}
	}
	return runCheck(ctx, args, stdout, stderr)
}

// commonFlags are shared by every subcommand. Values are applied over the
// loaded configuration only when the flag was given explicitly.
type commonFlags struct {
	config   string
	backend  string
	python   string
	logLevel string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", os.Getenv("POKOLENIE_CONFIG"), "YAML configuration file")
	fs.StringVar(&f.backend, "backend", defaultBackend, "python backend: process or docker")
	fs.StringVar(&f.python, "python", defaultPython, "python interpreter for the process backend")
	fs.StringVar(&f.logLevel, "log-level", defaultLogLevel, "diagnostic log level")
}

func (f *commonFlags) apply(fs *flag.FlagSet, cfg *appConfig) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "backend":
			cfg.Backend = f.backend
		case "python":
			cfg.Python = f.python
		case "log-level":
			cfg.LogLevel = f.logLevel
		}
	})
}

func runCheck(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { writeUsage(stderr) }

	var common commonFlags
	common.register(fs)
	results := fs.String("results", "", "write the transcript to this file instead of the console")
	colorize := fs.Bool("color", false, "colorize pass and fail markers")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if len(positional) < 1 || len(positional) > 3 {
		fmt.Fprintln(stderr, "error: expected <code-file> [input-file] [output-file]")
		writeUsage(stderr)
		return exitUsage
	}

	cfg, err := loadAppConfig(common.config)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}
	common.apply(fs, &cfg)
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "color" {
			cfg.Color = *colorize
		}
	})

	logger, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	defer func() { _ = logger.Sync() }()

	opts := checker.Options{CodePath: positional[0], ResultsPath: *results}
	if len(positional) > 1 {
		opts.InputPath = positional[1]
	}
	if len(positional) > 2 {
		opts.OutputPath = positional[2]
	}

	// Path problems are reported before the interpreter or the Docker daemon
	// is touched.
	if err := checker.Validate(opts); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}

	runner, err := openRunner(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}

	service := checker.NewService(runner,
		checker.WithLogger(logger),
		checker.WithConsole(stdout, stderr),
		checker.WithColor(cfg.Color),
	)
	defer func() {
		if cerr := service.Close(); cerr != nil {
			logger.Warn("failed to close runner", zap.Error(cerr))
		}
	}()

	if err := service.CheckCode(ctx, opts); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}
	return exitOK
}

func runServe(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)
	maxJobs := fs.Int("max-jobs", 0, "stop after this many jobs (0 means unlimited)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "error: unexpected argument %q\n", fs.Arg(0))
		return exitUsage
	}

	cfg, err := loadAppConfig(common.config)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}
	common.apply(fs, &cfg)
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "max-jobs" && *maxJobs >= 0 {
			cfg.Kafka.MaxJobs = *maxJobs
		}
	})

	logger, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	defer func() { _ = logger.Sync() }()

	runner, err := openRunner(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}
	checkerService := checker.NewService(runner, checker.WithLogger(logger), checker.WithColor(cfg.Color))
	defer func() {
		if cerr := checkerService.Close(); cerr != nil {
			logger.Warn("failed to close runner", zap.Error(cerr))
		}
	}()

	consumer, err := kafkainfra.NewConsumer(cfg.consumerConfig())
	if err != nil {
		fmt.Fprintf(stderr, "error: initialize kafka consumer: %v\n", err)
		return exitFatal
	}
	defer func() {
		if cerr := consumer.Close(); cerr != nil {
			logger.Warn("failed to close kafka consumer", zap.Error(cerr))
		}
	}()

	var publisher ports.VerdictPublisher
	if cfg.Kafka.ResultsTopic != "" {
		p, err := kafkainfra.NewPublisher(cfg.publisherConfig())
		if err != nil {
			fmt.Fprintf(stderr, "error: initialize kafka publisher: %v\n", err)
			return exitFatal
		}
		publisher = p
	}

	service := worker.NewService(checkerService, publisher, logger)
	defer func() {
		if cerr := service.Close(); cerr != nil {
			logger.Warn("failed to close kafka publisher", zap.Error(cerr))
		}
	}()

	logger.Info("serving check jobs",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.JobsTopic),
		zap.String("backend", cfg.Backend),
	)

	if err := service.ExecuteFromProducer(ctx, consumer, cfg.Kafka.MaxJobs, func(verdict execution.Verdict) {
		printVerdict(stdout, verdict)
	}); err != nil {
		fmt.Fprintf(stderr, "error: execute jobs: %v\n", err)
		return exitFatal
	}
	return exitOK
}

func runSubmit(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", os.Getenv("POKOLENIE_CONFIG"), "YAML configuration file")
	jobID := fs.String("id", "", "job identifier (defaults to the code file name)")
	done := fs.Bool("done", false, "tell workers to stop after the queued jobs")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if len(positional) > 3 || (len(positional) == 0 && !*done) {
		fmt.Fprintln(stderr, "error: expected <code-file> [input-file] [output-file] or --done")
		return exitUsage
	}

	cfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}

	var job kafkainfra.Job
	if len(positional) > 0 {
		opts := checker.Options{CodePath: positional[0]}
		if len(positional) > 1 {
			opts.InputPath = positional[1]
		}
		if len(positional) > 2 {
			opts.OutputPath = positional[2]
		}
		if err := checker.Validate(opts); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFatal
		}
		src, err := checker.ReadSources(opts)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFatal
		}
		job = kafkainfra.Job{
			ID:         *jobID,
			Submission: src.Submission,
			Input:      src.Input,
			Output:     src.Output,
		}
		if job.ID == "" {
			job.ID = filepath.Base(opts.CodePath)
		}
	}

	submitter, err := kafkainfra.NewSubmitter(kafkainfra.PublisherConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.JobsTopic,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: initialize kafka submitter: %v\n", err)
		return exitFatal
	}
	defer func() {
		if cerr := submitter.Close(); cerr != nil {
			fmt.Fprintf(stderr, "warning: failed to close kafka submitter: %v\n", cerr)
		}
	}()

	if len(positional) > 0 {
		if err := submitter.SubmitJob(ctx, job); err != nil {
			fmt.Fprintf(stderr, "error: submit job: %v\n", err)
			return exitFatal
		}
		fmt.Fprintf(stdout, "submitted job %q to %s\n", job.ID, cfg.Kafka.JobsTopic)
	}
	if *done {
		if err := submitter.SubmitDone(ctx); err != nil {
			fmt.Fprintf(stderr, "error: submit done marker: %v\n", err)
			return exitFatal
		}
	}
	return exitOK
}

func printVerdict(w io.Writer, verdict execution.Verdict) {
	if verdict.Err != nil {
		fmt.Fprintf(w, "job %q failed: %v\n", verdict.Suite.ID, verdict.Err)
		return
	}
	passed := 0
	for _, test := range verdict.Tests {
		if test.Passed() {
			passed++
		}
	}
	fmt.Fprintf(w, "job %q: %d/%d tests passed\n", verdict.Suite.ID, passed, len(verdict.Tests))
}

// openRunner builds the registry of known backends and opens the configured
// one.
func openRunner(cfg appConfig, logger *zap.Logger) (ports.PythonRunner, error) {
	registry := runtime.NewRegistry()

	err := errors.Join(
		registry.Register(runtime.BackendProcess, func() (ports.PythonRunner, error) {
			runner, err := process.New(cfg.processRunnerConfig())
			if err != nil {
				return nil, err
			}
			return runner, nil
		}),
		registry.Register(runtime.BackendDocker, func() (ports.PythonRunner, error) {
			dockerCfg := cfg.dockerRunnerConfig()
			dockerCfg.Logger = logger
			runner, err := docker.New(dockerCfg)
			if err != nil {
				return nil, err
			}
			return runner, nil
		}),
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("opening python backend", zap.String("backend", cfg.Backend))
	return registry.Open(cfg.Backend)
}

func newLogger(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		lvl,
	)
	return zap.New(core), nil
}

// parseInterleaved lets flags follow positional arguments, so both
// "check --results r.txt code.py" and "check code.py --results r.txt" work.
// Everything after a "--" terminator is positional.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		consumed := len(args) - fs.NArg()
		terminated := consumed > 0 && args[consumed-1] == "--"
		args = fs.Args()
		if terminated {
			return append(positional, args...), nil
		}
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func writeUsage(w io.Writer) {
	fmt.Fprint(w, `usage:
  pokolenie [check] [flags] <code-file> [input-file] [output-file]
  pokolenie serve [flags]
  pokolenie submit [--id <id>] [--done] [<code-file> [input-file] [output-file]]

input-file defaults to input.txt and output-file to output.txt.

check flags:
  --results <path>   write the transcript to a file instead of the console
  --color            colorize pass and fail markers
serve flags:
  --max-jobs <n>     stop after n jobs
common flags:
  --backend <name>   process (default) or docker
  --python <path>    interpreter for the process backend
  --config <path>    YAML configuration file
  --log-level <lvl>  diagnostic log level (default warn)
`)
}
